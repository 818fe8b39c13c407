package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yulin-dev/jobsift/internal/model"
)

var (
	reclassifyAll      bool
	reclassifyCategory string
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run classification over stored postings",
	Long: "Re-classify postings already in the store with the current provider chain and keyword rules. " +
		"Useful after tuning the rules or switching models.",
	RunE: runReclassify,
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyAll, "all", false, "reclassify every stored posting")
	reclassifyCmd.Flags().StringVar(&reclassifyCategory, "category", "", "reclassify only postings currently in this category")
	rootCmd.AddCommand(reclassifyCmd)
}

func runReclassify(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	if !reclassifyAll && reclassifyCategory == "" {
		logger.Error("pass --all or --category to choose which postings to reclassify")
		os.Exit(1)
	}

	var filter model.Category
	if reclassifyCategory != "" {
		c, ok := model.ParseCategory(reclassifyCategory)
		if !ok {
			logger.Error("unknown category", "category", reclassifyCategory)
			os.Exit(1)
		}
		filter = c
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closer()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	classifier := buildClassifier(cfg, httpClient, logger)

	postings, err := jobStore.ListPostings(ctx, filter)
	if err != nil {
		logger.Error("failed to list postings", "error", err)
		os.Exit(1)
	}
	logger.Info("reclassifying", "count", len(postings))

	changed := 0
	for _, p := range postings {
		if ctx.Err() != nil {
			logger.Warn("interrupted", "done", changed)
			break
		}

		categories, err := classifier.Classify(ctx, p.Title, p.Description)
		if err != nil {
			logger.Warn("classification cancelled", "url", p.OriginalURL, "error", err)
			break
		}
		if categoriesEqual(p.Categories, categories) {
			continue
		}

		if err := jobStore.UpdateCategories(ctx, p.ID, categories); err != nil {
			logger.Error("failed to update categories", "url", p.OriginalURL, "error", err)
			continue
		}
		logger.Info("reclassified", "url", p.OriginalURL, "from", p.Categories, "to", categories)
		changed++
	}

	logger.Info("reclassify complete", "total", len(postings), "changed", changed)
	return nil
}

func categoriesEqual(a, b []model.Category) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
