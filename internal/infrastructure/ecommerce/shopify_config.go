package ecommerce

import (
	"errors"
	"strings"
	"time"
)

const (
	// ShopifyDefaultAPIVersion is the Admin REST API version used when none is set
	ShopifyDefaultAPIVersion = "2024-01"
	// ShopifyMaxPageSize is the largest limit accepted by list endpoints
	ShopifyMaxPageSize = 250
	// ShopifyDefaultLocationID is the shop's primary stock location
	ShopifyDefaultLocationID int64 = 104501772590
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShop        = errors.New("shopify: shop domain or API base URL is required")
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
)

// ShopifyConfig holds configuration for the Shopify Admin REST API
type ShopifyConfig struct {
	// ShopDomain is the myshopify domain, e.g. my-shop.myshopify.com
	ShopDomain string
	// APIBaseURL overrides the derived https://{shop}/admin/api/{version} base
	APIBaseURL string
	// APIVersion is the Admin API version
	APIVersion string
	// AccessToken is the Admin API access token
	AccessToken string
	// DefaultLocationID is the stock location used when a store has none
	DefaultLocationID int64
	// PageSize is the limit used by paginated listings (max 250)
	PageSize int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond and Burst configure the token bucket (Shopify allows 2 rps)
	RequestsPerSecond float64
	Burst             int
	// Retry controls retries of transient failures
	Retry RetryPolicy
}

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(shopDomain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopDomain:        shopDomain,
		APIVersion:        ShopifyDefaultAPIVersion,
		AccessToken:       accessToken,
		DefaultLocationID: ShopifyDefaultLocationID,
		PageSize:          ShopifyMaxPageSize,
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
		Burst:             4,
		Retry:             DefaultRetryPolicy(),
	}
}

// Validate validates the Shopify configuration and fills defaults
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" && c.APIBaseURL == "" {
		return ErrShopifyConfigMissingShop
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.APIBaseURL == "" {
		shop := strings.TrimPrefix(strings.TrimPrefix(c.ShopDomain, "https://"), "http://")
		c.APIBaseURL = "https://" + strings.TrimRight(shop, "/") + "/admin/api/" + c.APIVersion
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.DefaultLocationID <= 0 {
		c.DefaultLocationID = ShopifyDefaultLocationID
	}
	if c.PageSize <= 0 || c.PageSize > ShopifyMaxPageSize {
		c.PageSize = ShopifyMaxPageSize
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
func (c *ShopifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
