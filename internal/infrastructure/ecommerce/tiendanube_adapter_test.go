package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func newTestTiendanubeAdapter(t *testing.T, pageSize int) *TiendanubeAdapter {
	t.Helper()
	cfg := NewTiendanubeConfig()
	cfg.PageSize = pageSize
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	cfg.Retry = fastRetry()
	a, err := NewTiendanubeAdapter(cfg, nil)
	require.NoError(t, err)
	return a
}

func testStore(serverURL string) integration.StoreConfig {
	return integration.StoreConfig{
		ID:          "123456",
		APIURL:      serverURL,
		AccessToken: "tn-token",
		Category:    "indumentaria",
	}
}

func productPage(ids ...int) []map[string]any {
	page := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		page = append(page, map[string]any{
			"id":   id,
			"name": map[string]string{"es": fmt.Sprintf("Producto %d", id)},
		})
	}
	return page
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestTiendanubeConfig_Validate(t *testing.T) {
	t.Run("defaults are filled", func(t *testing.T) {
		cfg := &TiendanubeConfig{UserAgent: "ua", PageSize: 500}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, TiendanubeMaxPageSize, cfg.PageSize)
		assert.Equal(t, TiendanubeDefaultLanguage, cfg.Language)
		assert.Equal(t, 30, cfg.TimeoutSeconds)
		assert.Equal(t, DefaultRetryPolicy().MaxAttempts, cfg.Retry.MaxAttempts)
	})

	t.Run("missing user agent", func(t *testing.T) {
		cfg := &TiendanubeConfig{}
		assert.ErrorIs(t, cfg.Validate(), ErrTiendanubeConfigMissingUserAgent)
	})
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func TestTiendanubeAdapter_ListProducts(t *testing.T) {
	t.Run("converts products and sends filters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/products", r.URL.Path)
			assert.Equal(t, "bearer tn-token", r.Header.Get("Authentication"))
			assert.Equal(t, TiendanubeDefaultUserAgent, r.Header.Get("User-Agent"))
			assert.Equal(t, "true", r.URL.Query().Get("published"))
			assert.Equal(t, "1", r.URL.Query().Get("min_stock"))
			assert.Equal(t, "id,variants", r.URL.Query().Get("fields"))
			assert.Equal(t, "2024-05-01T10:00:00Z", r.URL.Query().Get("updated_at_min"))

			w.Header().Set("x-total-count", "1")
			_, _ = w.Write([]byte(`[{
				"id": 111,
				"name": {"es": "Remera Lisa", "pt": "Camiseta"},
				"description": {"es": "<p>Algodón</p>"},
				"published": true,
				"tags": "verano, algodon ,",
				"attributes": [{"es": "Talle"}, {"es": "Color"}],
				"categories": [{"id": 5, "name": {"es": "Remeras"}, "handle": {"es": "remeras"}, "parent": 2}],
				"images": [{"id": 900, "src": "https://cdn/img.png", "position": 1}],
				"variants": [
					{"id": 1001, "product_id": 111, "price": "5000.00", "promotional_price": null, "stock": null,
					 "weight": "0.3", "barcode": null, "position": 1, "values": [{"es": "M"}, {"es": "Rojo"}],
					 "image_id": 900, "updated_at": "2024-05-01T10:05:00+0000"},
					{"id": 1002, "product_id": 111, "price": "5000.00", "stock": 3, "values": [{"es": "L"}]}
				],
				"updated_at": "2024-05-01T10:05:00+0000"
			}]`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		products, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{
			PublishedOnly: true,
			MinStock:      1,
			UpdatedAtMin:  &since,
			Fields:        []string{"id", "variants"},
		})
		require.NoError(t, err)
		require.Len(t, products, 1)

		p := products[0]
		assert.Equal(t, "111", p.ID)
		assert.Equal(t, "123456", p.StoreID)
		assert.Equal(t, "Remera Lisa", p.Name)
		assert.Equal(t, []string{"verano", "algodon"}, p.Tags)
		assert.Equal(t, []string{"Talle", "Color"}, p.Attributes)
		assert.Equal(t, "2", p.Categories[0].ParentID)
		assert.Equal(t, "900", p.Images[0].ID)

		require.Len(t, p.Variants, 2)
		assert.Nil(t, p.Variants[0].Stock)
		assert.Equal(t, integration.UnlimitedStock, p.Variants[0].Quantity())
		assert.Equal(t, []string{"M", "Rojo"}, p.Variants[0].Values)
		assert.Equal(t, "900", p.Variants[0].ImageID)
		assert.Equal(t, "", p.Variants[0].PromotionalPrice)
		assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), p.Variants[0].UpdatedAt)
		assert.Equal(t, 3, p.Variants[1].Quantity())
	})

	t.Run("loops pages until the total count is reached", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			assert.Equal(t, "2", r.URL.Query().Get("per_page"))
			w.Header().Set("x-total-count", "5")
			var body []map[string]any
			switch page {
			case 1:
				body = productPage(1, 2)
			case 2:
				body = productPage(3, 4)
			case 3:
				body = productPage(5)
			default:
				t.Errorf("unexpected page %d", page)
			}
			_ = json.NewEncoder(w).Encode(body)
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 2)
		products, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{})
		require.NoError(t, err)
		assert.Len(t, products, 5)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("404 past the last page ends pagination", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				_ = json.NewEncoder(w).Encode(productPage(1, 2))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":404,"message":"Not Found","description":"Last page is 1"}`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 2)
		products, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "created-at-descending", r.URL.Query().Get("sort_by"))
			_ = json.NewEncoder(w).Encode(productPage(1, 2, 3))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 3)
		products, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{
			Limit:  2,
			SortBy: "created-at-descending",
		})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(productPage(1))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		products, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{})
		require.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"message":"Unauthorized"}`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		_, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{})
		require.Error(t, err)
		assert.ErrorIs(t, err, integration.ErrRemoteAPI)
		assert.Equal(t, http.StatusUnauthorized, integration.StatusCodeOf(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		_, err := a.ListProducts(context.Background(), testStore(server.URL), integration.ProductQuery{})
		assert.ErrorIs(t, err, integration.ErrMalformedData)
	})
}

func TestTiendanubeAdapter_ListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/categories", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": {"es": "Ropa"}, "handle": {"es": "ropa"}, "parent": null},
			{"id": 2, "name": {"es": "Remeras"}, "handle": {"es": "remeras"}, "parent": 1}
		]`))
	}))
	defer server.Close()

	a := newTestTiendanubeAdapter(t, 200)
	cats, err := a.ListCategories(context.Background(), testStore(server.URL))
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, integration.SourceCategory{ID: "1", Name: "Ropa", Handle: "ropa"}, cats[0])
	assert.Equal(t, "1", cats[1].ParentID)
}

func TestTiendanubeAdapter_AdjustStock(t *testing.T) {
	t.Run("posts a variation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/products/111/variants/stock", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"action":"variation","value":-2,"id":1001}`, string(body))
			_, _ = w.Write([]byte(`[{"id":1001,"stock":8}]`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		err := a.AdjustStock(context.Background(), testStore(server.URL), integration.StockAdjustment{
			ProductID: "111",
			VariantID: "1001",
			Delta:     -2,
		})
		assert.NoError(t, err)
	})

	t.Run("variation not repeated after server error", func(t *testing.T) {
		posts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			posts++
			if posts == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[{"id":1001,"stock":6}]`))
		}))
		defer server.Close()

		a := newTestTiendanubeAdapter(t, 200)
		err := a.AdjustStock(context.Background(), testStore(server.URL), integration.StockAdjustment{
			ProductID: "111",
			VariantID: "1001",
			Delta:     -2,
		})
		assert.Equal(t, http.StatusBadGateway, integration.StatusCodeOf(err))
		assert.Equal(t, 1, posts)
	})

	t.Run("non numeric variant id", func(t *testing.T) {
		a := newTestTiendanubeAdapter(t, 200)
		err := a.AdjustStock(context.Background(), testStore("http://unused"), integration.StockAdjustment{
			ProductID: "111",
			VariantID: "abc",
			Delta:     -1,
		})
		assert.ErrorIs(t, err, integration.ErrMalformedData)
		assert.ErrorIs(t, err, ErrTiendanubeInvalidVariantID)
	})
}

func TestTiendanubeLocalized_Value(t *testing.T) {
	assert.Equal(t, "hola", TiendanubeLocalized{"es": "hola", "pt": "ola"}.Value("es"))
	assert.Equal(t, "hello", TiendanubeLocalized{"en": "hello", "pt": "ola"}.Value("es"))
	assert.Equal(t, "", TiendanubeLocalized{}.Value("es"))
}
