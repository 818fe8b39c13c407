package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yulin-dev/jobsift/internal/model"
	"github.com/yulin-dev/jobsift/internal/pipeline"
	"github.com/yulin-dev/jobsift/internal/store"
)

var (
	dryRun     bool
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion cycle and exit",
	Long:  "Fetch every enabled source once, persist the results, sweep stale postings and print the per-source reports.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run against an in-memory store, persist nothing")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the whole run after this long (0 disables)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	var (
		jobStore model.JobStore
		closer   func()
	)
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		jobStore = store.NewMemoryStore()
		closer = func() {}
	} else {
		jobStore, closer, err = openStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
	}
	defer closer()

	p := buildPipeline(cfg, jobStore, logger)
	reports, err := p.Run(ctx)
	for _, r := range reports {
		logger.Info("report",
			"source", r.SourceSite,
			"status", r.Status,
			"scraped", r.Scraped,
			"new", r.New,
			"updated", r.Updated,
			"skipped", r.Skipped,
			"errors", r.Errors,
		)
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrAllSourcesFailed) {
			logger.Error("run produced no data", "error", err)
		} else {
			logger.Error("run aborted", "error", err)
		}
		os.Exit(1)
	}
	if failed := failedSources(reports); len(failed) > 0 {
		logger.Error("run finished with failed sources", "sources", failed)
		os.Exit(1)
	}
	return nil
}

// failedSources lists the sources whose report ended in failure, so the exit
// status can reflect a partial run.
func failedSources(reports []model.RunReport) []string {
	var failed []string
	for _, r := range reports {
		if r.Status == model.RunFailed {
			failed = append(failed, r.SourceSite)
		}
	}
	return failed
}
