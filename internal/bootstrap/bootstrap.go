// Package bootstrap assembles the sync components from configuration.
// Both the server and the one-shot CLI build their object graph here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/santi-junco/sync-tiendanube/internal/application/integration"
	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/domain/taxonomy"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/cache"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/config"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/ecommerce"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/event"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/scheduler"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/telemetry"
)

// Job names accepted by the scheduler and the CLI
const (
	JobCatalog     = string(integration.SyncKindCatalog)
	JobStock       = string(integration.SyncKindStock)
	JobCollections = string(integration.SyncKindCollections)
)

// ErrUnknownJob is returned when a job name is not one of the sync jobs
var ErrUnknownJob = errors.New("unknown sync job")

// JobNames lists the sync jobs in registration order
func JobNames() []string {
	return []string{JobStock, JobCatalog, JobCollections}
}

// SyncRunner is one reconciliation routine
type SyncRunner interface {
	Run(ctx context.Context) (*integration.SyncReport, error)
}

// Components is the assembled object graph
type Components struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *telemetry.SyncMetrics // nil when metrics are disabled
	Stores  *integration.StoreRegistry
	Events  *event.InMemoryEventBus

	Catalog     *appintegration.CatalogSyncService
	Stock       *appintegration.StockSyncService
	Collections *appintegration.CollectionSyncService
	Orders      *appintegration.OrderWebhookService

	closers []io.Closer
}

// Options selects optional parts of the graph
type Options struct {
	// WithDeliveries connects the webhook de-duplication store
	WithDeliveries bool
}

// Build creates every component described by cfg
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*Components, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Components{Config: cfg, Logger: log}

	if cfg.Metrics.Enabled {
		mcfg := telemetry.DefaultSyncMetricsConfig()
		if cfg.Metrics.Namespace != "" {
			mcfg.Namespace = cfg.Metrics.Namespace
		}
		c.Metrics = telemetry.NewSyncMetrics(mcfg)
	}

	stores, err := integration.NewStoreRegistry(cfg.Storefront.Stores)
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	c.Stores = stores

	hub, err := ecommerce.NewShopifyAdapter(shopifyConfig(cfg.CommerceHub), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Commerce Hub adapter: %w", err)
	}
	storefront, err := ecommerce.NewTiendanubeAdapter(tiendanubeConfig(cfg.Storefront), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storefront adapter: %w", err)
	}
	if c.Metrics != nil {
		hub.SetObserver(c.Metrics)
		storefront.SetObserver(c.Metrics)
	}

	c.Events = event.NewInMemoryEventBus(log)
	c.Events.Subscribe("log", event.LogHandler(log))
	if cfg.Events.Enabled {
		kafka, err := event.NewKafkaPublisher(event.KafkaConfig{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			WriteTimeout: cfg.Events.WriteTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}
		c.Events.Subscribe("kafka", kafka)
		c.closers = append(c.closers, kafka)
		log.Info("Publishing sync events to Kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}

	var observer appintegration.ReportObserver
	if c.Metrics != nil {
		observer = c.Metrics
	}

	builder := appintegration.NewPayloadBuilder(taxonomy.NewClassifier(), log)
	coordinator := appintegration.NewStockCoordinator(hub, storefront)

	var images appintegration.AttachmentSource
	if cfg.Sync.ImageMode == config.ImageModeAttachment {
		images = ecommerce.NewImageProcessor(cfg.Sync.ImageTimeout, cfg.Sync.ImageMaxDimension, log)
	}

	c.Catalog = appintegration.NewCatalogSyncService(appintegration.CatalogSyncServiceConfig{
		Storefront:  storefront,
		Hub:         hub,
		Stores:      stores,
		Builder:     builder,
		Coordinator: coordinator,
		Images:      images,
		Events:      c.Events,
		Observer:    observer,
		Options: appintegration.CatalogSyncOptions{
			ImageConcurrency: cfg.Sync.ImageConcurrency,
			ImageMode:        cfg.Sync.ImageMode,
			SortBy:           cfg.Sync.CatalogSortBy,
		},
		Logger: log,
	})
	c.Stock = appintegration.NewStockSyncService(appintegration.StockSyncServiceConfig{
		Storefront:  storefront,
		Hub:         hub,
		Stores:      stores,
		Coordinator: coordinator,
		Events:      c.Events,
		Observer:    observer,
		Window:      cfg.Sync.StockWindow,
		Logger:      log,
	})
	c.Collections = appintegration.NewCollectionSyncService(appintegration.CollectionSyncServiceConfig{
		Storefront: storefront,
		Hub:        hub,
		Stores:     stores,
		Events:     c.Events,
		Observer:   observer,
		Logger:     log,
	})

	var deliveries integration.IdempotencyStore
	if opts.WithDeliveries && cfg.Idempotency.Enabled {
		factory := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.Redis.Required),
		)
		deliveries, err = factory.CreateStore(ctx)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.closers = append(c.closers, deliveries)
	}

	c.Orders = appintegration.NewOrderWebhookService(appintegration.OrderWebhookServiceConfig{
		Hub:         hub,
		Stores:      stores,
		Coordinator: coordinator,
		Deliveries:  deliveries,
		Idempotency: integration.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		},
		Events: c.Events,
		Logger: log,
	})

	return c, nil
}

// Runner returns the sync routine registered under job
func (c *Components) Runner(job string) (SyncRunner, error) {
	switch job {
	case JobCatalog:
		return c.Catalog, nil
	case JobStock:
		return c.Stock, nil
	case JobCollections:
		return c.Collections, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
}

// NewScheduler registers the three sync jobs with the configured intervals
func (c *Components) NewScheduler() (*scheduler.SyncScheduler, error) {
	scfg := scheduler.DefaultSyncSchedulerConfig()
	if c.Config.Scheduler.JobTimeout > 0 {
		scfg.JobTimeout = c.Config.Scheduler.JobTimeout
	}
	scfg.RunOnStart = c.Config.Scheduler.RunOnStart

	s, err := scheduler.NewSyncScheduler(scfg, c.Logger)
	if err != nil {
		return nil, err
	}
	if c.Metrics != nil {
		s.SetObserver(c.Metrics)
	}

	intervals := map[string]time.Duration{
		JobStock:       c.Config.Scheduler.StockInterval,
		JobCatalog:     c.Config.Scheduler.CatalogInterval,
		JobCollections: c.Config.Scheduler.CollectionsInterval,
	}
	for _, name := range JobNames() {
		runner, _ := c.Runner(name)
		if err := s.Register(scheduler.JobDefinition{
			Name:     name,
			Interval: intervals[name],
			Run:      jobFunc(runner),
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MetricsHandler returns the Prometheus handler, or nil when metrics are disabled
func (c *Components) MetricsHandler() http.Handler {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Handler()
}

// Close releases the event publisher and the delivery store
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// jobFunc adapts a sync routine to the scheduler; the report rides on the log
// and the metrics, the run only records success or failure
func jobFunc(runner SyncRunner) scheduler.JobFunc {
	return func(ctx context.Context, _ *scheduler.SyncRun) error {
		_, err := runner.Run(ctx)
		return err
	}
}

func shopifyConfig(cfg config.CommerceHubConfig) *ecommerce.ShopifyConfig {
	sc := ecommerce.NewShopifyConfig(cfg.ShopDomain, cfg.AccessToken)
	sc.APIBaseURL = cfg.APIBaseURL
	if cfg.APIVersion != "" {
		sc.APIVersion = cfg.APIVersion
	}
	if cfg.DefaultLocationID != 0 {
		sc.DefaultLocationID = cfg.DefaultLocationID
	}
	if cfg.Timeout > 0 {
		sc.TimeoutSeconds = int(cfg.Timeout.Seconds())
	}
	if cfg.RequestsPerSecond > 0 {
		sc.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.Burst > 0 {
		sc.Burst = cfg.Burst
	}
	if cfg.MaxRetries > 0 {
		sc.Retry.MaxAttempts = cfg.MaxRetries
	}
	return sc
}

func tiendanubeConfig(cfg config.StorefrontConfig) *ecommerce.TiendanubeConfig {
	tc := ecommerce.NewTiendanubeConfig()
	if cfg.UserAgent != "" {
		tc.UserAgent = cfg.UserAgent
	}
	if cfg.Language != "" {
		tc.Language = cfg.Language
	}
	if cfg.PageSize > 0 {
		tc.PageSize = cfg.PageSize
	}
	if cfg.Timeout > 0 {
		tc.TimeoutSeconds = int(cfg.Timeout.Seconds())
	}
	if cfg.RequestsPerSecond > 0 {
		tc.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.Burst > 0 {
		tc.Burst = cfg.Burst
	}
	if cfg.MaxRetries > 0 {
		tc.Retry.MaxAttempts = cfg.MaxRetries
	}
	return tc
}
