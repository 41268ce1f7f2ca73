package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

func newTestShopifyAdapter(t *testing.T, serverURL string) *ShopifyAdapter {
	t.Helper()
	cfg := NewShopifyConfig("", "shp-token")
	cfg.APIBaseURL = serverURL
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	cfg.Retry = fastRetry()
	a, err := NewShopifyAdapter(cfg, nil)
	require.NoError(t, err)
	return a
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestShopifyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ShopifyConfig
		wantErr error
		wantURL string
	}{
		{
			name:    "derives base url from shop domain",
			config:  &ShopifyConfig{ShopDomain: "https://demo.myshopify.com/", AccessToken: "t"},
			wantURL: "https://demo.myshopify.com/admin/api/" + ShopifyDefaultAPIVersion,
		},
		{
			name:    "explicit base url wins",
			config:  &ShopifyConfig{APIBaseURL: "http://localhost:9999/admin/", AccessToken: "t"},
			wantURL: "http://localhost:9999/admin",
		},
		{
			name:    "missing shop",
			config:  &ShopifyConfig{AccessToken: "t"},
			wantErr: ErrShopifyConfigMissingShop,
		},
		{
			name:    "missing token",
			config:  &ShopifyConfig{ShopDomain: "demo.myshopify.com"},
			wantErr: ErrShopifyConfigMissingAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, tt.config.APIBaseURL)
			assert.Equal(t, ShopifyDefaultLocationID, tt.config.DefaultLocationID)
			assert.Equal(t, ShopifyMaxPageSize, tt.config.PageSize)
		})
	}
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func TestShopifyAdapter_FindProductsByHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products.json", r.URL.Path)
		assert.Equal(t, "111", r.URL.Query().Get("handle"))
		assert.Equal(t, "shp-token", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = w.Write([]byte(`{"products":[{
			"id": 77, "handle": "111", "title": "Remera", "vendor": "123456", "status": "active",
			"tags": "123456, indumentaria, remera",
			"options": [{"name": "Talle"}],
			"variants": [{"id": 501, "product_id": 77, "sku": "1001", "inventory_item_id": 9001,
				"inventory_quantity": 4, "price": "6750.00", "compare_at_price": null, "option1": "M"}],
			"images": [{"id": 3, "alt": "900", "position": 1, "variant_ids": [501]}]
		}]}`))
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	products, err := a.FindProductsByHandle(context.Background(), "111")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, int64(77), p.ID)
	assert.Equal(t, integration.ProductStatusActive, p.Status)
	assert.Equal(t, []string{"123456", "indumentaria", "remera"}, p.Tags)
	assert.Equal(t, "Talle", p.Options[0].Name)
	assert.Equal(t, "1001", p.Variants[0].SKU)
	assert.Equal(t, int64(9001), p.Variants[0].InventoryItemID)
	assert.Equal(t, "", p.Variants[0].CompareAtPrice)
	assert.Equal(t, "M", p.Variants[0].Option1)
	assert.Equal(t, "900", p.Images[0].Alt)
}

func TestShopifyAdapter_GetProductNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	_, err := a.GetProduct(context.Background(), 5)
	assert.ErrorIs(t, err, integration.ErrProductNotFound)
	assert.ErrorIs(t, err, integration.ErrRemoteAPI)

	_, err = a.GetVariant(context.Background(), 6)
	assert.ErrorIs(t, err, integration.ErrVariantNotFound)
}

func TestShopifyAdapter_GetVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/variants/501.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"variant":{"id":501,"product_id":77,"sku":" 1001 "}}`))
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	v, err := a.GetVariant(context.Background(), 501)
	require.NoError(t, err)
	assert.Equal(t, "1001", v.SKU)
	assert.Equal(t, int64(77), v.ProductID)
}

func TestShopifyAdapter_CreateAndUpdateProduct(t *testing.T) {
	var lastBody map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody = nil
		assert.NoError(t, json.Unmarshal(body, &lastBody))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/products.json":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"product":{"id":77,"handle":"111","variants":[{"id":501,"sku":"1001","inventory_item_id":9001}]}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/products/77.json":
			_, _ = w.Write([]byte(`{"product":{"id":77,"handle":"111"}}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	payload := integration.ProductPayload{
		Handle:   "111",
		Title:    "Remera",
		Vendor:   "123456",
		Status:   integration.ProductStatusActive,
		Tags:     []string{"a", "b"},
		Options:  []integration.ProductOption{{Name: "Talle"}},
		Variants: []integration.VariantPayload{{SKU: "1001", Price: "6750.00", Option1: "M", InventoryQuantity: 4}},
	}

	created, err := a.CreateProduct(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, int64(77), created.ID)
	assert.Equal(t, int64(9001), created.Variants[0].InventoryItemID)
	assert.Equal(t, "a, b", lastBody["product"]["tags"])
	assert.Equal(t, "active", lastBody["product"]["status"])
	assert.Equal(t, true, lastBody["product"]["published"])

	payload.Status = ""
	_, err = a.UpdateProduct(context.Background(), 77, payload)
	require.NoError(t, err)
	assert.Equal(t, float64(77), lastBody["product"]["id"])
	assert.NotContains(t, lastBody["product"], "status")
}

func TestShopifyAdapter_ListVendorProducts(t *testing.T) {
	var calls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch calls.Add(1) {
		case 1:
			assert.Equal(t, "123456", q.Get("vendor"))
			assert.Equal(t, "250", q.Get("limit"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/products.json?limit=250&page_info=abc>; rel="next"`, server.URL))
			_, _ = w.Write([]byte(`{"products":[{"id":1,"handle":"10","status":"active"}]}`))
		case 2:
			assert.Equal(t, "abc", q.Get("page_info"))
			assert.Empty(t, q.Get("vendor"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/products.json?page_info=zzz>; rel="previous"`, server.URL))
			_, _ = w.Write([]byte(`{"products":[{"id":2,"handle":"20","status":"draft"}]}`))
		default:
			t.Errorf("unexpected call")
		}
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	refs, err := a.ListVendorProducts(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, []integration.ProductRef{
		{ID: 1, Handle: "10", Status: integration.ProductStatusActive},
		{ID: 2, Handle: "20", Status: integration.ProductStatusDraft},
	}, refs)
}

func TestShopifyAdapter_InventoryImagesCollections(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/inventory_levels/set.json":
			assert.JSONEq(t, `{"location_id":10,"inventory_item_id":20,"available":5}`, string(body))
			_, _ = w.Write([]byte(`{"inventory_level":{}}`))
		case "/products/77/images.json":
			assert.JSONEq(t, `{"image":{"alt":"900","position":1,"src":"https://cdn/img.png","variant_ids":[501]}}`, string(body))
			_, _ = w.Write([]byte(`{"image":{"id":3,"alt":"900","position":1,"variant_ids":[501]}}`))
		case "/smart_collections.json":
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`{"smart_collections":[{"handle":"indumentaria-ropa"}]}`))
				return
			}
			assert.JSONEq(t, `{"smart_collection":{"handle":"indumentaria-ropa-remeras","title":"Remeras","published":true,"disjunctive":false,
				"rules":[{"column":"tag","relation":"equals","condition":"remeras"}]}}`, string(body))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"smart_collection":{"id":1}}`))
		}
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	ctx := context.Background()

	require.NoError(t, a.SetInventoryLevel(ctx, integration.InventoryLevel{LocationID: 10, InventoryItemID: 20, Available: 5}))

	img, err := a.CreateImage(ctx, 77, integration.ImagePayload{Alt: "900", Position: 1, Src: "https://cdn/img.png", VariantIDs: []int64{501}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), img.ID)

	handles, err := a.ListSmartCollectionHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"indumentaria-ropa"}, handles)

	err = a.CreateSmartCollection(ctx, integration.SmartCollection{
		Handle:    "indumentaria-ropa-remeras",
		Title:     "Remeras",
		Published: true,
		Rules:     []integration.CollectionRule{{Column: "tag", Relation: "equals", Condition: "remeras"}},
	})
	require.NoError(t, err)
	assert.Len(t, seen, 4)
}

func TestShopifyAdapter_CreatesAreNotRepeatedAfterServerError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(a *ShopifyAdapter) error
	}{
		{"create product after 504", http.StatusGatewayTimeout, func(a *ShopifyAdapter) error {
			_, err := a.CreateProduct(context.Background(), integration.ProductPayload{Handle: "5001", Title: "Remera"})
			return err
		}},
		{"create image after 502", http.StatusBadGateway, func(a *ShopifyAdapter) error {
			_, err := a.CreateImage(context.Background(), 77, integration.ImagePayload{Alt: "900", Src: "https://cdn/img.png"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				if posts.Add(1) == 1 {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"product":{"id":78,"handle":"5001-1"},"image":{"id":4}}`))
			}))
			defer server.Close()

			err := tt.call(newTestShopifyAdapter(t, server.URL))
			assert.Equal(t, tt.status, integration.StatusCodeOf(err))
			assert.Equal(t, int32(1), posts.Load())
		})
	}
}

func TestShopifyAdapter_SetInventoryLevelRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"inventory_level":{}}`))
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	err := a.SetInventoryLevel(context.Background(), integration.InventoryLevel{LocationID: 1, InventoryItemID: 2, Available: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestShopifyAdapter_RetryAfterOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.001")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"inventory_level":{}}`))
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	err := a.SetInventoryLevel(context.Background(), integration.InventoryLevel{LocationID: 1, InventoryItemID: 2, Available: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestShopifyAdapter_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := newTestShopifyAdapter(t, server.URL)
	err := a.SetInventoryLevel(context.Background(), integration.InventoryLevel{})
	assert.ErrorIs(t, err, integration.ErrRateLimited)
	assert.Equal(t, integration.ErrorKindRateLimited, integration.KindOf(err))
}

func TestNextPageInfo(t *testing.T) {
	link := `<https://s.myshopify.com/admin/api/2024-01/products.json?page_info=prev1>; rel="previous", <https://s.myshopify.com/admin/api/2024-01/products.json?limit=250&page_info=next1>; rel="next"`
	assert.Equal(t, "next1", nextPageInfo(link))
	assert.Equal(t, "", nextPageInfo(""))
}
