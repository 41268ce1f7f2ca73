package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/bootstrap"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/config"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/logger"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/handler"
	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/router"
)

//	@title			Sincronizacion de Tiendanube
//	@version		1.0.0
//	@description	API para recibir webhooks de Shopify y sincronizar con Tiendanube
//	@BasePath		/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		Output:        cfg.Log.Output,
		TimeFormat:    "2006-01-02T15:04:05.000Z07:00",
		Dir:           cfg.Log.Dir,
		RetentionDays: cfg.Log.RetentionDays,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	zap.ReplaceGlobals(log)

	log.Info("Starting Tiendanube sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Int("stores", len(cfg.Storefront.Stores)),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	components, err := bootstrap.Build(context.Background(), cfg, log, bootstrap.Options{WithDeliveries: true})
	if err != nil {
		log.Fatal("Failed to build sync components", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("Error closing sync components", zap.Error(err))
		}
	}()

	sched, err := components.NewScheduler()
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Scheduler started",
			zap.Duration("stock_interval", cfg.Scheduler.StockInterval),
			zap.Duration("catalog_interval", cfg.Scheduler.CatalogInterval),
			zap.Duration("collections_interval", cfg.Scheduler.CollectionsInterval),
		)
	} else {
		log.Info("Scheduler disabled, jobs run only on manual trigger")
	}

	info := handler.DefaultSystemInfo()
	if cfg.App.Version != "" {
		info.Version = cfg.App.Version
	}

	routerCfg := router.Config{
		Info:           info,
		Logger:         log,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		WebhookSecret:  cfg.CommerceHub.WebhookSecret,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Orders:         components.Orders,
		Jobs:           sched,
	}
	if components.Metrics != nil {
		routerCfg.Webhooks = components.Metrics
		routerCfg.HTTP = components.Metrics
		routerCfg.MetricsHandler = components.MetricsHandler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.CommerceHub.WebhookSecret == "" {
		log.Warn("Webhook secret not configured, order webhooks are accepted unsigned")
	}

	engine, err := router.NewEngine(routerCfg)
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// In-flight sync runs are cancelled and awaited until ctx expires
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(ctx); err != nil {
			log.Error("Scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
