package ecommerce

import (
	"errors"
	"time"
)

const (
	// TiendanubeMaxPageSize is the largest per_page the products endpoint accepts
	TiendanubeMaxPageSize = 200
	// TiendanubeDefaultUserAgent identifies this integration to the API
	TiendanubeDefaultUserAgent = "sync-tiendanube (soporte@sync-tiendanube.local)"
	// TiendanubeDefaultLanguage is the localized value picked from multi-language fields
	TiendanubeDefaultLanguage = "es"
)

// Errors for Tiendanube configuration
var (
	ErrTiendanubeConfigMissingUserAgent = errors.New("tiendanube: user agent is required")
)

// TiendanubeConfig holds the settings shared by every Tiendanube store.
// Per-store URL and token live on integration.StoreConfig.
type TiendanubeConfig struct {
	// UserAgent is mandatory for the Tiendanube API
	UserAgent string
	// Language selects the localized value of name/description/handle fields
	Language string
	// PageSize is the per_page used for listings (max 200)
	PageSize int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond and Burst configure the shared token bucket
	RequestsPerSecond float64
	Burst             int
	// Retry controls retries of transient failures
	Retry RetryPolicy
}

// NewTiendanubeConfig creates a configuration with defaults
func NewTiendanubeConfig() *TiendanubeConfig {
	return &TiendanubeConfig{
		UserAgent:         TiendanubeDefaultUserAgent,
		Language:          TiendanubeDefaultLanguage,
		PageSize:          TiendanubeMaxPageSize,
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
		Burst:             4,
		Retry:             DefaultRetryPolicy(),
	}
}

// Validate validates the configuration and fills defaults
func (c *TiendanubeConfig) Validate() error {
	if c.UserAgent == "" {
		return ErrTiendanubeConfigMissingUserAgent
	}
	if c.Language == "" {
		c.Language = TiendanubeDefaultLanguage
	}
	if c.PageSize <= 0 || c.PageSize > TiendanubeMaxPageSize {
		c.PageSize = TiendanubeMaxPageSize
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	c.Retry = c.Retry.normalized()
	return nil
}

// Timeout returns the request timeout as a duration
func (c *TiendanubeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
