package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/yulin-dev/jobsift/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion daemon",
	Long:  "Run the pipeline on the configured cron schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Run.Schedule == "" {
		logger.Error("run.schedule is required for daemon mode")
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

	var lock scheduler.RunLock = scheduler.NopLock{}
	if cfg.Lock.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.Addr,
			Password: cfg.Lock.Password,
			DB:       cfg.Lock.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis unavailable", "addr", cfg.Lock.Addr, "error", err)
			os.Exit(1)
		}
		lock = scheduler.NewRedisLock(client, cfg.Lock.Key, cfg.Lock.TTL)
		logger.Info("run lock enabled", "key", cfg.Lock.Key, "ttl", cfg.Lock.TTL.String())
	}

	p := buildPipeline(cfg, jobStore, logger)
	sched := scheduler.New(p, lock, cfg.Run.Schedule, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
