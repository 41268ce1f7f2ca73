package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	appintegration "github.com/santi-junco/sync-tiendanube/internal/application/integration"
	"github.com/santi-junco/sync-tiendanube/internal/bootstrap"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/config"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/logger"
)

func main() {
	// Parse flags
	var (
		job      string
		logLevel string
	)

	flag.StringVar(&job, "job", "", "Sync job to run ("+strings.Join(bootstrap.JobNames(), ", ")+")")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if job == "" {
		printUsage()
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(log, job))
}

func run(log *zap.Logger, job string) int {
	defer func() {
		_ = logger.Sync(log)
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{})
	if err != nil {
		log.Error("Failed to build sync components", zap.Error(err))
		return 1
	}
	defer func() {
		_ = components.Close()
	}()

	runner, err := components.Runner(job)
	if err != nil {
		log.Error("Invalid job", zap.Error(err))
		printUsage()
		return 2
	}

	if cfg.Scheduler.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scheduler.JobTimeout)
		defer cancel()
	}

	log.Info("Running sync job", zap.String("job", job), zap.Int("stores", len(cfg.Storefront.Stores)))
	report, runErr := runner.Run(ctx)

	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(appintegration.ToSyncReportResponse(report)); err != nil {
			log.Error("Failed to write report", zap.Error(err))
		}
	}
	if runErr != nil {
		log.Error("Sync job failed", zap.String("job", job), zap.Error(runErr))
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: syncctl -job <job> [options]

Jobs:
  stock         Push recent Tiendanube stock changes to Shopify
  catalog       Upsert every Tiendanube product into Shopify
  collections   Mirror Tiendanube categories as Shopify smart collections

Options:
  -log-level    Log level (debug, info, warn, error)

Configuration is read from config.toml, .env and SYNC_* environment variables.`)
}
