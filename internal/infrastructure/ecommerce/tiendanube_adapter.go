package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// ErrTiendanubeInvalidVariantID indicates a non-numeric variant id on a stock adjustment
var ErrTiendanubeInvalidVariantID = errors.New("tiendanube: invalid variant ID format")

// stockActionVariation applies a relative change to a variant's stock
const stockActionVariation = "variation"

// TiendanubeAdapter implements integration.Storefront for Tiendanube stores.
// One adapter serves every store; the token bucket is shared across them.
type TiendanubeAdapter struct {
	config *TiendanubeConfig
	client *apiClient
	logger *zap.Logger
}

// NewTiendanubeAdapter creates a new Tiendanube adapter
func NewTiendanubeAdapter(config *TiendanubeConfig, logger *zap.Logger) (*TiendanubeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.Burst)
	return &TiendanubeAdapter{
		config: config,
		client: newAPIClient(integration.PlatformCodeTiendanube, config.Timeout(), limiter, config.Retry, logger),
		logger: logger.Named("tiendanube"),
	}, nil
}

// SetObserver attaches a request observer (metrics)
func (a *TiendanubeAdapter) SetObserver(o RequestObserver) {
	a.client.observer = o
}

// PlatformCode returns the platform code this adapter handles
func (a *TiendanubeAdapter) PlatformCode() integration.PlatformCode {
	return integration.PlatformCodeTiendanube
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListProducts returns every product matching query, following pagination until
// the x-total-count total is reached, an empty page, or a 404 past the last page
func (a *TiendanubeAdapter) ListProducts(ctx context.Context, store integration.StoreConfig, query integration.ProductQuery) ([]integration.SourceProduct, error) {
	params := url.Values{}
	if query.PublishedOnly {
		params.Set("published", "true")
	}
	if query.MinStock > 0 {
		params.Set("min_stock", strconv.Itoa(query.MinStock))
	}
	if query.UpdatedAtMin != nil {
		params.Set("updated_at_min", query.UpdatedAtMin.UTC().Format(time.RFC3339))
	}
	if len(query.Fields) > 0 {
		params.Set("fields", strings.Join(query.Fields, ","))
	}
	if query.SortBy != "" {
		params.Set("sort_by", query.SortBy)
	}

	raw, err := paginateTiendanube[TiendanubeProduct](ctx, a, store, "/products", params, query.Limit)
	if err != nil {
		return nil, err
	}

	products := make([]integration.SourceProduct, 0, len(raw))
	for i := range raw {
		products = append(products, a.convertProduct(store.ID, &raw[i]))
	}
	a.logger.Debug("Listed products",
		zap.String("store_id", store.ID),
		zap.Int("count", len(products)),
	)
	return products, nil
}

// ListCategories returns the store's full category tree
func (a *TiendanubeAdapter) ListCategories(ctx context.Context, store integration.StoreConfig) ([]integration.SourceCategory, error) {
	raw, err := paginateTiendanube[TiendanubeCategory](ctx, a, store, "/categories", url.Values{}, 0)
	if err != nil {
		return nil, err
	}
	categories := make([]integration.SourceCategory, 0, len(raw))
	for _, c := range raw {
		categories = append(categories, a.convertCategory(c))
	}
	return categories, nil
}

// AdjustStock applies a relative stock change to one variant
func (a *TiendanubeAdapter) AdjustStock(ctx context.Context, store integration.StoreConfig, adj integration.StockAdjustment) error {
	variantID, err := strconv.ParseInt(strings.TrimSpace(adj.VariantID), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %w: %q", integration.ErrMalformedData, ErrTiendanubeInvalidVariantID, adj.VariantID)
	}
	if strings.TrimSpace(adj.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", integration.ErrMalformedData)
	}

	body := TiendanubeStockRequest{
		Action: stockActionVariation,
		Value:  adj.Delta,
		ID:     variantID,
	}
	path := "/products/" + url.PathEscape(adj.ProductID) + "/variants/stock"
	if _, err := a.client.do(ctx, http.MethodPost, a.endpoint(store, path, nil), a.headers(store), body); err != nil {
		return err
	}

	a.logger.Info("Adjusted storefront stock",
		zap.String("store_id", store.ID),
		zap.String("product_id", adj.ProductID),
		zap.String("variant_id", adj.VariantID),
		zap.Int("delta", adj.Delta),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// paginateTiendanube walks page=1.. of a listing endpoint. limit > 0 caps the
// number of returned items.
func paginateTiendanube[T any](ctx context.Context, a *TiendanubeAdapter, store integration.StoreConfig, path string, params url.Values, limit int) ([]T, error) {
	perPage := a.config.PageSize
	if limit > 0 && limit < perPage {
		perPage = limit
	}

	var all []T
	for page := 1; ; page++ {
		q := cloneValues(params)
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		resp, err := a.client.do(ctx, http.MethodGet, a.endpoint(store, path, q), a.headers(store), nil)
		if err != nil {
			// the API answers 404 once page runs past the last one
			if integration.StatusCodeOf(err) == http.StatusNotFound {
				break
			}
			return nil, err
		}

		var items []T
		if err := decodeJSON(integration.PlatformCodeTiendanube, resp.Body, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)

		if limit > 0 && len(all) >= limit {
			all = all[:limit]
			break
		}
		if total, err := strconv.Atoi(resp.Header.Get("x-total-count")); err == nil && len(all) >= total {
			break
		}
		if len(items) < perPage {
			break
		}
	}
	return all, nil
}

func (a *TiendanubeAdapter) endpoint(store integration.StoreConfig, path string, params url.Values) string {
	u := strings.TrimRight(store.APIURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (a *TiendanubeAdapter) headers(store integration.StoreConfig) http.Header {
	h := http.Header{}
	h.Set("Authentication", "bearer "+store.AccessToken)
	h.Set("User-Agent", a.config.UserAgent)
	return h
}

func (a *TiendanubeAdapter) convertProduct(storeID string, p *TiendanubeProduct) integration.SourceProduct {
	lang := a.config.Language
	product := integration.SourceProduct{
		ID:          string(p.ID),
		StoreID:     storeID,
		Name:        p.Name.Value(lang),
		Description: p.Description.Value(lang),
		Published:   p.Published,
		Tags:        splitTags(p.Tags),
		UpdatedAt:   p.UpdatedAt.Time,
	}
	for _, attr := range p.Attributes {
		if v := attr.Value(lang); v != "" {
			product.Attributes = append(product.Attributes, v)
		}
	}
	for _, c := range p.Categories {
		product.Categories = append(product.Categories, a.convertCategory(c))
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, integration.SourceImage{
			ID:       string(img.ID),
			Src:      img.Src,
			Position: img.Position,
		})
	}
	for _, v := range p.Variants {
		variant := integration.SourceVariant{
			ID:               string(v.ID),
			ProductID:        string(v.ProductID),
			Price:            string(v.Price),
			PromotionalPrice: string(v.PromotionalPrice),
			CompareAtPrice:   string(v.CompareAtPrice),
			Stock:            v.Stock,
			Weight:           string(v.Weight),
			Barcode:          string(v.Barcode),
			Position:         v.Position,
			ImageID:          string(v.ImageID),
			UpdatedAt:        v.UpdatedAt.Time,
		}
		if variant.ProductID == "" {
			variant.ProductID = product.ID
		}
		for _, val := range v.Values {
			variant.Values = append(variant.Values, val.Value(lang))
		}
		product.Variants = append(product.Variants, variant)
	}
	return product
}

func (a *TiendanubeAdapter) convertCategory(c TiendanubeCategory) integration.SourceCategory {
	return integration.SourceCategory{
		ID:       string(c.ID),
		Name:     c.Name.Value(a.config.Language),
		Handle:   c.Handle.Value(a.config.Language),
		ParentID: string(c.Parent),
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Ensure TiendanubeAdapter implements integration.Storefront
var _ integration.Storefront = (*TiendanubeAdapter)(nil)
