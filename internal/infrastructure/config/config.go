package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

const (
	// EnvPrefix prefixes every environment override (SYNC_COMMERCE_HUB_ACCESS_TOKEN, ...)
	EnvPrefix = "SYNC"
	// StoresJSONEnv carries the store list as a JSON array
	StoresJSONEnv = "SYNC_STOREFRONT_STORES_JSON"
	// LegacyStoresEnv carries the store list as a JSON object keyed by store id
	LegacyStoresEnv = "TIENDAS"
)

// Image upload modes
const (
	ImageModeSrc        = "src"
	ImageModeAttachment = "attachment"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	CommerceHub CommerceHubConfig
	Storefront  StorefrontConfig
	Sync        SyncConfig
	Scheduler   SchedulerConfig
	Metrics     MetricsConfig
	Events      EventsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, daily, or file path
	// Dir is where daily log files are written when Output is "daily"
	Dir           string
	RetentionDays int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
}

// RedisConfig holds Redis connection settings for webhook de-duplication
type RedisConfig struct {
	Enabled bool
	// Required disables the in-memory fallback when Redis is unreachable
	Required    bool
	Host        string
	Port        int
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// IdempotencyConfig controls duplicate webhook detection
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// CommerceHubConfig holds the destination store settings
type CommerceHubConfig struct {
	ShopDomain        string
	APIBaseURL        string
	APIVersion        string
	AccessToken       string
	DefaultLocationID int64
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	// WebhookSecret enables HMAC verification of order webhooks when set
	WebhookSecret string
}

// StorefrontConfig holds the source platform settings shared by every store
type StorefrontConfig struct {
	UserAgent         string
	Language          string
	PageSize          int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Stores            []integration.StoreConfig
}

// SyncConfig tunes the reconciliation engines
type SyncConfig struct {
	StockWindow       time.Duration
	ImageConcurrency  int
	ImageMode         string
	ImageMaxDimension int
	ImageTimeout      time.Duration
	CatalogSortBy     string
}

// SchedulerConfig holds the periodic job settings
type SchedulerConfig struct {
	Enabled             bool
	StockInterval       time.Duration
	CatalogInterval     time.Duration
	CollectionsInterval time.Duration
	JobTimeout          time.Duration
	RunOnStart          bool
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// EventsConfig holds the Kafka sync-event publisher settings
type EventsConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// tierEntry is the file representation of a markup tier
type tierEntry struct {
	Lower      float64 `mapstructure:"lower"`
	Upper      float64 `mapstructure:"upper"`
	Multiplier float64 `mapstructure:"multiplier"`
}

// storeEntry is the file representation of a store
type storeEntry struct {
	integration.StoreConfig `mapstructure:",squash"`
	Tiers                   []tierEntry `mapstructure:"markup_tiers"`
}

// legacyStore is one value of the TIENDAS JSON object
type legacyStore struct {
	URL      string            `json:"url"`
	Category string            `json:"category"`
	Headers  map[string]string `json:"headers"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_COMMERCE_HUB_ACCESS_TOKEN)
// 2. .env file (never overrides variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return loadFrom(v)
}

// loadFrom builds a Config from an already populated viper instance
func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	stores, err := loadStores(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:         v.GetString("log.level"),
			Format:        v.GetString("log.format"),
			Output:        v.GetString("log.output"),
			Dir:           v.GetString("log.dir"),
			RetentionDays: v.GetInt("log.retention_days"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Enabled:     v.GetBool("redis.enabled"),
			Required:    v.GetBool("redis.required"),
			Host:        v.GetString("redis.host"),
			Port:        v.GetInt("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			KeyPrefix:   v.GetString("redis.key_prefix"),
			DialTimeout: v.GetDuration("redis.dial_timeout"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: !v.IsSet("idempotency.enabled") || v.GetBool("idempotency.enabled"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		CommerceHub: CommerceHubConfig{
			ShopDomain:        v.GetString("commerce_hub.shop_domain"),
			APIBaseURL:        v.GetString("commerce_hub.api_base_url"),
			APIVersion:        v.GetString("commerce_hub.api_version"),
			AccessToken:       v.GetString("commerce_hub.access_token"),
			DefaultLocationID: v.GetInt64("commerce_hub.default_location_id"),
			Timeout:           v.GetDuration("commerce_hub.timeout"),
			RequestsPerSecond: v.GetFloat64("commerce_hub.requests_per_second"),
			Burst:             v.GetInt("commerce_hub.burst"),
			MaxRetries:        v.GetInt("commerce_hub.max_retries"),
			WebhookSecret:     v.GetString("commerce_hub.webhook_secret"),
		},
		Storefront: StorefrontConfig{
			UserAgent:         v.GetString("storefront.user_agent"),
			Language:          v.GetString("storefront.language"),
			PageSize:          v.GetInt("storefront.page_size"),
			Timeout:           v.GetDuration("storefront.timeout"),
			RequestsPerSecond: v.GetFloat64("storefront.requests_per_second"),
			Burst:             v.GetInt("storefront.burst"),
			MaxRetries:        v.GetInt("storefront.max_retries"),
			Stores:            stores,
		},
		Sync: SyncConfig{
			StockWindow:       v.GetDuration("sync.stock_window"),
			ImageConcurrency:  v.GetInt("sync.image_concurrency"),
			ImageMode:         v.GetString("sync.image_mode"),
			ImageMaxDimension: v.GetInt("sync.image_max_dimension"),
			ImageTimeout:      v.GetDuration("sync.image_timeout"),
			CatalogSortBy:     v.GetString("sync.catalog_sort_by"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             !v.IsSet("scheduler.enabled") || v.GetBool("scheduler.enabled"),
			StockInterval:       v.GetDuration("scheduler.stock_interval"),
			CatalogInterval:     v.GetDuration("scheduler.catalog_interval"),
			CollectionsInterval: v.GetDuration("scheduler.collections_interval"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
			RunOnStart:          v.GetBool("scheduler.run_on_start"),
		},
		Metrics: MetricsConfig{
			Enabled:   !v.IsSet("metrics.enabled") || v.GetBool("metrics.enabled"),
			Path:      v.GetString("metrics.path"),
			Namespace: v.GetString("metrics.namespace"),
		},
		Events: EventsConfig{
			Enabled:      v.GetBool("events.enabled"),
			Brokers:      v.GetStringSlice("events.brokers"),
			Topic:        v.GetString("events.topic"),
			WriteTimeout: v.GetDuration("events.write_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadStores reads the store list from, in order of precedence, the JSON
// array variable, the legacy JSON object variable, or the config file
func loadStores(v *viper.Viper) ([]integration.StoreConfig, error) {
	if raw := strings.TrimSpace(os.Getenv(StoresJSONEnv)); raw != "" {
		var stores []integration.StoreConfig
		if err := json.Unmarshal([]byte(raw), &stores); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", StoresJSONEnv, err)
		}
		return stores, nil
	}

	if raw := strings.TrimSpace(os.Getenv(LegacyStoresEnv)); raw != "" {
		return parseLegacyStores(raw)
	}

	var entries []storeEntry
	if err := v.UnmarshalKey("storefront.stores", &entries); err != nil {
		return nil, fmt.Errorf("invalid storefront.stores: %w", err)
	}
	stores := make([]integration.StoreConfig, 0, len(entries))
	for _, e := range entries {
		s := e.StoreConfig
		for _, t := range e.Tiers {
			s.MarkupTiers = append(s.MarkupTiers, integration.NewMarkupTier(t.Lower, t.Upper, t.Multiplier))
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// parseLegacyStores converts {"<id>": {"url", "category", "headers"}} into
// store configs. The access token is taken from the Authentication header.
func parseLegacyStores(raw string) ([]integration.StoreConfig, error) {
	var legacy map[string]legacyStore
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", LegacyStoresEnv, err)
	}
	stores := make([]integration.StoreConfig, 0, len(legacy))
	for id, l := range legacy {
		token := ""
		for k, val := range l.Headers {
			if strings.EqualFold(k, "Authentication") {
				token = strings.TrimSpace(val)
				if len(token) > len("bearer ") && strings.EqualFold(token[:len("bearer ")], "bearer ") {
					token = strings.TrimSpace(token[len("bearer "):])
				}
			}
		}
		stores = append(stores, integration.StoreConfig{
			ID:          id,
			APIURL:      strings.TrimRight(l.URL, "/"),
			AccessToken: token,
			Category:    l.Category,
		})
	}
	return stores, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sync-tiendanube"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.RetentionDays == 0 {
		cfg.Log.RetentionDays = 5
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = integration.DefaultIdempotencyConfig().TTL
	}
	if cfg.CommerceHub.APIVersion == "" {
		cfg.CommerceHub.APIVersion = "2024-01"
	}
	if cfg.CommerceHub.DefaultLocationID == 0 {
		cfg.CommerceHub.DefaultLocationID = 104501772590
	}
	if cfg.CommerceHub.Timeout == 0 {
		cfg.CommerceHub.Timeout = 30 * time.Second
	}
	if cfg.CommerceHub.RequestsPerSecond == 0 {
		cfg.CommerceHub.RequestsPerSecond = 2
	}
	if cfg.CommerceHub.MaxRetries == 0 {
		cfg.CommerceHub.MaxRetries = 4
	}
	if cfg.Storefront.UserAgent == "" {
		cfg.Storefront.UserAgent = "sync-tiendanube (integraciones@example.com)"
	}
	if cfg.Storefront.Language == "" {
		cfg.Storefront.Language = "es"
	}
	if cfg.Storefront.PageSize == 0 {
		cfg.Storefront.PageSize = 200
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 30 * time.Second
	}
	if cfg.Storefront.RequestsPerSecond == 0 {
		cfg.Storefront.RequestsPerSecond = 2
	}
	if cfg.Storefront.MaxRetries == 0 {
		cfg.Storefront.MaxRetries = 4
	}
	if cfg.Sync.StockWindow == 0 {
		cfg.Sync.StockWindow = 15 * time.Minute
	}
	if cfg.Sync.ImageConcurrency == 0 {
		cfg.Sync.ImageConcurrency = 2
	}
	if cfg.Sync.ImageMode == "" {
		cfg.Sync.ImageMode = ImageModeSrc
	}
	if cfg.Sync.ImageMaxDimension == 0 {
		cfg.Sync.ImageMaxDimension = 2048
	}
	if cfg.Sync.ImageTimeout == 0 {
		cfg.Sync.ImageTimeout = 30 * time.Second
	}
	if cfg.Scheduler.StockInterval == 0 {
		cfg.Scheduler.StockInterval = 15 * time.Minute
	}
	if cfg.Scheduler.CatalogInterval == 0 {
		cfg.Scheduler.CatalogInterval = 6 * time.Hour
	}
	if cfg.Scheduler.CollectionsInterval == 0 {
		cfg.Scheduler.CollectionsInterval = 24 * time.Hour
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 2 * time.Hour
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "sync_tiendanube"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "catalog-sync-events"
	}
	if cfg.Events.WriteTimeout == 0 {
		cfg.Events.WriteTimeout = 10 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Sync.ImageMode {
	case ImageModeSrc, ImageModeAttachment:
	default:
		return fmt.Errorf("sync.image_mode must be %q or %q, got %q", ImageModeSrc, ImageModeAttachment, c.Sync.ImageMode)
	}
	if c.Sync.ImageConcurrency < 1 {
		return fmt.Errorf("sync.image_concurrency must be positive")
	}
	if c.Storefront.PageSize < 1 || c.Storefront.PageSize > 200 {
		return fmt.Errorf("storefront.page_size must be between 1 and 200, got %d", c.Storefront.PageSize)
	}
	if c.Log.RetentionDays < 0 {
		return fmt.Errorf("log.retention_days cannot be negative")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events are enabled")
	}

	if err := ValidateStores(c.Storefront.Stores); err != nil {
		return err
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.CommerceHub.ShopDomain == "" && c.CommerceHub.APIBaseURL == "" {
			return fmt.Errorf("commerce_hub.shop_domain is required in production")
		}
		if c.CommerceHub.AccessToken == "" {
			return fmt.Errorf("commerce_hub.access_token is required in production")
		}
		if len(c.Storefront.Stores) == 0 {
			return fmt.Errorf("at least one storefront store is required in production")
		}
	}

	return nil
}

var storeValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateStores checks every store with its struct tags, rejects duplicate ids
// and malformed markup tiers
func ValidateStores(stores []integration.StoreConfig) error {
	seen := make(map[string]struct{}, len(stores))
	for i, s := range stores {
		if err := storeValidator.Struct(s); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				fe := verrs[0]
				return fmt.Errorf("%w: store %d (%s): field %s failed %q",
					integration.ErrInvalidStoreConfig, i, s.ID, fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: store %d: %v", integration.ErrInvalidStoreConfig, i, err)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate store id %s", integration.ErrInvalidStoreConfig, s.ID)
		}
		seen[s.ID] = struct{}{}
		if err := integration.ValidateMarkupTiers(s.MarkupTiers); err != nil {
			return fmt.Errorf("store %s: %w", s.ID, err)
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}
