package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/yulin-dev/jobsift/internal/adapter"
	"github.com/yulin-dev/jobsift/internal/classify"
	"github.com/yulin-dev/jobsift/internal/config"
	"github.com/yulin-dev/jobsift/internal/filter"
	"github.com/yulin-dev/jobsift/internal/model"
	"github.com/yulin-dev/jobsift/internal/notifier"
	"github.com/yulin-dev/jobsift/internal/pipeline"
	"github.com/yulin-dev/jobsift/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Remote job ingestion pipeline",
	Long:  "Jobsift scrapes remote job boards, dedups and classifies the postings, and keeps the feed fresh.",
	// Default to `run` so that `jobsift` with no args does one ingestion
	// cycle. Cron-style deployments invoke the binary directly.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIFT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIFT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSIFT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// openStore constructs the configured JobStore. The returned closer is a
// no-op for backends without connections to release.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.JobStore, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres store")
		return pg, pg.Close, nil
	case "memory":
		logger.Info("using in-memory store, nothing will be persisted")
		return store.NewMemoryStore(), func() {}, nil
	default:
		sq, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", "path", cfg.Store.Path)
		return sq, func() { sq.Close() }, nil
	}
}

// buildClassifier assembles the provider chain: OpenAI first when enabled,
// Ollama as the local fallback, keyword rules always.
func buildClassifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Classifier {
	var providers []classify.LLMProvider
	callTimeout := 30 * time.Second

	if cfg.Classifier.OpenAI.Enabled {
		p := cfg.Classifier.OpenAI
		providers = append(providers, classify.NewOpenAIProvider(p.BaseURL, p.APIKey, p.Model, httpClient))
		callTimeout = p.Timeout
		logger.Info("openai classification enabled", "model", p.Model)
	}
	if cfg.Classifier.Ollama.Enabled {
		p := cfg.Classifier.Ollama
		providers = append(providers, classify.NewOllamaProvider(p.BaseURL, p.Model, httpClient))
		if p.Timeout > callTimeout {
			callTimeout = p.Timeout
		}
		logger.Info("ollama fallback enabled", "model", p.Model)
	}
	if len(providers) == 0 {
		logger.Info("no LLM providers enabled, classification is keyword-only")
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Classifier.RPS), 1)
	return classify.NewChain(providers, classify.NewRuleEngine(), limiter, callTimeout, logger)
}

// buildAdapters constructs one SourceAdapter per enabled source. A source
// that cannot be configured (e.g. v2ex without a token) is skipped with a
// warning rather than failing the whole run.
func buildAdapters(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.SourceAdapter {
	var adapters []model.SourceAdapter
	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}

		var (
			a   model.SourceAdapter
			err error
		)
		switch src.Name {
		case "remoteok":
			ra := adapter.NewRemoteOKAdapter(httpClient, src.MinDelay)
			if src.BaseURL != "" {
				ra.SetBaseURL(src.BaseURL)
			}
			a = ra
		case "v2ex":
			va, verr := adapter.NewV2EXAdapter(src.Token, httpClient, src.MinDelay)
			if verr != nil {
				err = verr
			} else {
				if src.BaseURL != "" {
					va.SetBaseURL(src.BaseURL)
				}
				a = va
			}
		case "eleduck":
			ea := adapter.NewEleduckAdapter(httpClient, src.MinDelay)
			if src.BaseURL != "" {
				ea.SetBaseURL(src.BaseURL)
			}
			a = ea
		case "rwfa":
			wa := adapter.NewRWFAAdapter(httpClient, src.MinDelay)
			if src.BaseURL != "" {
				wa.SetBaseURL(src.BaseURL)
			}
			a = wa
		}

		if err != nil {
			logger.Warn("skipping misconfigured source", "source", src.Name, "error", err)
			continue
		}
		adapters = append(adapters, a)
		logger.Info("registered source", "name", src.Name, "min_delay", src.MinDelay.String())
	}
	return adapters
}

// buildNotifier constructs the configured notifier, or nil when notifications
// are disabled. A webhook gets Slack delivery; otherwise announcements go to
// the structured log.
func buildNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	if !cfg.Notify.Enabled {
		return nil
	}
	if cfg.Notify.SlackWebhookURL != "" {
		logger.Info("slack notifications enabled")
		return notifier.NewSlackNotifier(cfg.Notify.SlackWebhookURL, httpClient, logger)
	}
	logger.Info("log notifications enabled")
	return notifier.NewLogNotifier(logger)
}

// buildPipeline wires the full ingestion pipeline from config.
func buildPipeline(cfg *config.Config, jobStore model.JobStore, logger *slog.Logger) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	adapters := buildAdapters(cfg, httpClient, logger)
	classifier := buildClassifier(cfg, httpClient, logger)

	opts := pipeline.Options{
		Store:               jobStore,
		Classifier:          classifier,
		Workers:             cfg.Run.Workers,
		SourceTimeout:       cfg.Run.SourceTimeout,
		ClassifyConcurrency: cfg.Classifier.Concurrency,
		StalenessDays:       cfg.Run.StalenessDays,
		Logger:              logger,
	}
	if n := buildNotifier(cfg, httpClient, logger); n != nil {
		opts.Notifier = n
		opts.NotifyFilter = filter.New(cfg.Notify.TitleKeywords, cfg.Notify.Categories)
	}

	return pipeline.New(adapters, opts)
}
