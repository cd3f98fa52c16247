package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/legisla/internal/analysis"
	"github.com/ppiankov/legisla/internal/llm"
	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/report"
	"github.com/ppiankov/legisla/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	groupBy        string
	governingBlock string
	outDir         string
	noLLM          bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute deputy statistics over every scraped votation",
	Long: `Analyze recomputes the statistics from the whole store:
- Resolve each block's preference per votation (strict majority, ties negative)
- Classify every vote as loyal to its block and as officialist
- Aggregate per block and deputy across votations

Outputs are written to the output directory:
  statistics.json, statistics.csv   per-deputy statistics
  run.json                          votations included and skipped
  dashboard.json, report.md         summary view
  summary.llm.md                    optional LLM narrative

Example:
  legisla analyze
  legisla analyze --group-by deputy --out ./reports
  legisla analyze --governing-block "Unión por la Patria"`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&groupBy, "group-by", "", "aggregate by block_deputy or deputy (default: analysis.group_by from config)")
	analyzeCmd.Flags().StringVar(&governingBlock, "governing-block", "", "block whose preference defines officialism (default: analysis.governing_block from config)")
	analyzeCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: output.dir from config)")
	analyzeCmd.Flags().BoolVar(&noLLM, "no-llm", false, "skip the LLM summary even when a provider is configured")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyAnalysisFlags(cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	banner("Legisla Analysis")
	fmt.Fprintf(os.Stderr, "  Store:            %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Governing block:  %s\n", cfg.Analysis.GoverningBlock)
	fmt.Fprintf(os.Stderr, "  Group by:         %s\n", cfg.Analysis.GroupBy)
	fmt.Fprintf(os.Stderr, "  Output dir:       %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	run, d, err := analyze(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Analyzed %d votations (%d skipped)\n", len(run.Votations), len(run.Skipped))
	fmt.Fprintf(os.Stderr, "✓ %d statistics rows\n", len(run.Statistics))
	fmt.Fprintf(os.Stderr, "✓ Reports written to %s\n\n", cfg.Output.Dir)

	return report.WriteTable(os.Stdout, d)
}

func applyAnalysisFlags(cfg *model.Config) {
	if groupBy != "" {
		cfg.Analysis.GroupBy = groupBy
	}
	if governingBlock != "" {
		cfg.Analysis.GoverningBlock = governingBlock
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if noLLM {
		cfg.LLM.Provider = ""
	}
}

// analyze runs the pipeline and writes every output file. Votations are
// marked analyzed only once the outputs are on disk.
func analyze(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*analysis.Run, *report.Dashboard, error) {
	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = st.Close() }()

	run, d, err := computeDashboard(ctx, st, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := writeOutputs(cfg.Output.Dir, run, d); err != nil {
		return nil, nil, err
	}

	if err := st.MarkAnalyzed(ctx, run.AnalyzedIDs()); err != nil {
		return nil, nil, fmt.Errorf("mark analyzed: %w", err)
	}

	if err := writeSummary(ctx, cfg, logger, run, d); err != nil {
		return nil, nil, err
	}
	return run, d, nil
}

// computeDashboard runs the analysis and builds its dashboard without writing to the store
func computeDashboard(ctx context.Context, st *store.Store, cfg *model.Config, logger *zap.Logger) (*analysis.Run, *report.Dashboard, error) {
	analyzer, err := analysis.NewAnalyzer(st, cfg.Analysis, logger)
	if err != nil {
		return nil, nil, err
	}

	run, err := analyzer.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}

	var latestVotes []model.VoteRecord
	latest, err := st.LatestVotation(ctx)
	switch {
	case err == nil:
		latestVotes, err = st.GetVotes(ctx, latest.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("latest votation: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		logger.Info("no scraped votation for chamber composition")
	default:
		return nil, nil, fmt.Errorf("latest votation: %w", err)
	}

	return run, report.Build(run, latestVotes), nil
}

func writeOutputs(dir string, run *analysis.Run, d *report.Dashboard) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"statistics.json", func(w io.Writer) error { return report.WriteJSON(w, run.Statistics) }},
		{"statistics.csv", func(w io.Writer) error { return report.WriteStatisticsCSV(w, run.Statistics) }},
		{"run.json", func(w io.Writer) error { return report.WriteJSON(w, run) }},
		{"dashboard.json", func(w io.Writer) error { return report.WriteJSON(w, d) }},
		{"report.md", func(w io.Writer) error { return report.WriteMarkdown(w, d) }},
	}
	for _, o := range outputs {
		if err := writeFile(filepath.Join(dir, o.name), o.write); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary generates the optional LLM narrative. Provider failures only produce warnings.
func writeSummary(ctx context.Context, cfg *model.Config, logger *zap.Logger, run *analysis.Run, d *report.Dashboard) error {
	if cfg.LLM.Provider == "" {
		return nil
	}

	summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		logger.Warn("LLM summary disabled", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.LLM.Timeout+5)*time.Second)
	defer cancel()

	summary, err := summarizer.GenerateSummary(ctx, d, votationURLs(cfg.Scrape.BaseURL, run))
	if err != nil {
		return fmt.Errorf("llm summary: %w", err)
	}
	if summary == nil {
		return nil
	}
	for _, w := range summary.Warnings {
		logger.Debug("llm summary note", zap.String("provider", summary.Provider), zap.String("note", w))
	}

	md := llm.RenderSeparateMarkdown(summary)
	if md == "" {
		logger.Warn("LLM summary not generated", zap.Strings("warnings", summary.Warnings))
		return nil
	}
	return writeFile(filepath.Join(cfg.Output.Dir, "summary.llm.md"), func(w io.Writer) error {
		_, err := io.WriteString(w, md)
		return err
	})
}

// votationURLs lists the roll-call pages a summary may cite
func votationURLs(baseURL string, run *analysis.Run) []string {
	base := strings.TrimRight(baseURL, "/")
	urls := make([]string, 0, len(run.Votations))
	for _, v := range run.Votations {
		urls = append(urls, base+"/votacion/"+url.PathEscape(v.ID))
	}
	return urls
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
