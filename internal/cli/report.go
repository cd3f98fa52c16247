package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/legisla/internal/cache"
	"github.com/ppiankov/legisla/internal/report"
	"github.com/ppiankov/legisla/internal/store"
	"github.com/spf13/cobra"
)

var (
	reportFormat string
	reportBlock  string
	reportDeputy string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Display the statistics dashboard",
	Long: `Report recomputes the statistics from the store and prints them.
The store is left untouched; use analyze to record a run.

Example:
  legisla report
  legisla report --format md
  legisla report --block "Unión por la Patria"
  legisla report --deputy "PEREZ, Juan" --format json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "output format (table, json, md, csv)")
	reportCmd.Flags().StringVar(&reportBlock, "block", "", "list the deputies of one block")
	reportCmd.Flags().StringVar(&reportDeputy, "deputy", "", "show the rows of one deputy")
	reportCmd.Flags().StringVar(&groupBy, "group-by", "", "aggregate by block_deputy or deputy (default: analysis.group_by from config)")
	reportCmd.Flags().StringVar(&governingBlock, "governing-block", "", "block whose preference defines officialism (default: analysis.governing_block from config)")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyAnalysisFlags(cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	run, d, err := computeDashboard(ctx, st, cfg, logger)
	if err != nil {
		return err
	}

	if reportBlock != "" || reportDeputy != "" {
		list := report.ListDeputies(run.Statistics, reportBlock)
		if reportDeputy != "" {
			rows := report.FindDeputy(list.Rows, reportDeputy)
			if len(rows) == 0 {
				return fmt.Errorf("deputy not found: %s", reportDeputy)
			}
			list = report.ListDeputies(rows, reportBlock)
		}
		return writeDeputies(os.Stdout, format, list)
	}

	renderer := report.NewRenderer(cache.NewMemoryCache(10*time.Minute, 30*time.Minute), 10*time.Minute)
	return renderer.Render(os.Stdout, format, run, d)
}

func writeDeputies(w io.Writer, format report.Format, list report.DeputyList) error {
	switch format {
	case report.FormatJSON:
		return report.WriteJSON(w, list)
	case report.FormatCSV:
		return report.WriteStatisticsCSV(w, list.Rows)
	case report.FormatTable:
		report.WriteDeputiesTable(w, list)
		return nil
	default:
		return fmt.Errorf("format %s is not supported for deputy listings", format)
	}
}
