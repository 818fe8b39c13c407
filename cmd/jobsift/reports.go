package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/yulin-dev/jobsift/internal/tui"
)

var reportsLimit int

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse recent run reports",
	Long:  "Open an interactive browser over the run reports persisted by previous pipeline runs.",
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 50, "maximum number of reports to load")
	rootCmd.AddCommand(reportsCmd)
}

func runReports(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	jobStore, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closer()

	return tui.RunReportsTUI(ctx, jobStore, reportsLimit)
}
