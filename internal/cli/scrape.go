package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/pipeline"
	"github.com/ppiankov/legisla/internal/store"
	"github.com/ppiankov/legisla/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scrapeYear    int
	metadataOnly  bool
	idsFile       string
	scrapeWorkers int
	scrapeTimeout time.Duration
	noCache       bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch votation metadata and roll calls into the store",
	Long: `Scrape updates the vote record store in two steps:
- Search the chamber's votation listing for a year and store new votations
- Fetch the roll call of every votation not yet scraped

Votations that fail to fetch or parse stay unscraped and are retried on the
next run.

Example:
  legisla scrape --year 2024
  legisla scrape --metadata-only
  legisla scrape --ids-file votations.txt --workers 2`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVar(&scrapeYear, "year", 0, "votation year to search (default: scrape.year from config)")
	scrapeCmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "only update votation metadata")
	scrapeCmd.Flags().StringVar(&idsFile, "ids-file", "", "limit roll-call scraping to votation ids listed in a file (one per line)")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "number of concurrent workers (default: concurrency.workers from config)")
	scrapeCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 30*time.Minute, "overall scrape timeout")
	scrapeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if scrapeYear > 0 {
		cfg.Scrape.Year = scrapeYear
	}
	if scrapeWorkers > 0 {
		cfg.Concurrency.Workers = scrapeWorkers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	var only []string
	if idsFile != "" {
		only, err = worker.ReadVotationIDs(idsFile)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scrapeTimeout)
	defer cancel()

	banner("Legisla Scrape")
	fmt.Fprintf(os.Stderr, "  Source:       %s\n", cfg.Scrape.BaseURL)
	fmt.Fprintf(os.Stderr, "  Year:         %d\n", cfg.Scrape.Year)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	summary, err := scrape(ctx, cfg, logger, only, metadataOnly)
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}

	banner("Scrape Complete")
	fmt.Fprintf(os.Stderr, "  Attempted: %d votations\n", summary.Attempted)
	fmt.Fprintf(os.Stderr, "  Saved:     %d\n", summary.Saved)
	fmt.Fprintf(os.Stderr, "  Records:   %d\n", summary.Records)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(summary.Failed))
	fmt.Fprintf(os.Stderr, "  Duration:  %v\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	failed := make([]string, 0, len(summary.Failed))
	for id := range summary.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", id, summary.Failed[id])
	}

	return nil
}

// scrape updates metadata, then roll calls unless metadataOnly. The summary is nil when roll calls were skipped.
func scrape(ctx context.Context, cfg *model.Config, logger *zap.Logger, only []string, metadataOnly bool) (*pipeline.Summary, error) {
	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	scraper := pipeline.NewScraper(st, cfg, logger)

	added, err := scraper.UpdateMetadata(ctx, cfg.Scrape.Year)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "✓ %d new votations listed\n", added)

	if metadataOnly {
		return nil, nil
	}

	summary, err := scraper.UpdateVotes(ctx, only)
	if err != nil {
		return summary, fmt.Errorf("update votes: %w", err)
	}
	return summary, nil
}
