package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ppiankov/legisla/internal/cache"
	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/report"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cronSpec string

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Periodically scrape and analyze",
	Long: `Schedule runs scrape followed by analyze on a cron schedule until
interrupted. Overlapping runs are skipped.

Example:
  legisla schedule
  legisla schedule --cron "0 */6 * * *"`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "", "cron expression (default: schedule.cron from config)")
	scheduleCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 30*time.Minute, "timeout for each run")
	scheduleCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: output.dir from config)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyAnalysisFlags(cfg)
	if cronSpec != "" {
		cfg.Schedule.Cron = cronSpec
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cronLog := cronLogger{logger: logger.Named("cron")}
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))

	// Renders are memoized across runs; unchanged inputs skip the markdown rebuild
	renderer := report.NewRenderer(cache.NewMemoryCache(24*time.Hour, time.Hour), 24*time.Hour)

	if _, err := c.AddFunc(cfg.Schedule.Cron, func() { scheduledRun(ctx, cfg, logger, renderer) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule.Cron, err)
	}

	banner("Legisla Schedule")
	fmt.Fprintf(os.Stderr, "  Cron:         %s\n", cfg.Schedule.Cron)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	c.Start()
	logger.Info("scheduler started", zap.String("cron", cfg.Schedule.Cron))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
	return nil
}

func scheduledRun(ctx context.Context, cfg *model.Config, logger *zap.Logger, renderer *report.Renderer) {
	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	start := time.Now()
	if _, err := scrape(ctx, cfg, logger, nil, false); err != nil {
		logger.Error("scheduled scrape failed", zap.Error(err))
		return
	}

	run, d, err := analyze(ctx, cfg, logger)
	if err != nil {
		logger.Error("scheduled analysis failed", zap.Error(err))
		return
	}

	if err := writeFile(filepath.Join(cfg.Output.Dir, "report.txt"), func(w io.Writer) error {
		return renderer.Render(w, report.FormatTable, run, d)
	}); err != nil {
		logger.Error("write report table", zap.Error(err))
		return
	}

	logger.Info("scheduled run complete",
		zap.String("run_id", run.ID),
		zap.Int("votations", len(run.Votations)),
		zap.Int("skipped", len(run.Skipped)),
		zap.Duration("duration", time.Since(start)),
	)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
