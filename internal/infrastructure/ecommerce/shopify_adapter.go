package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// shopifyProductFields is the projection requested when reading products
const shopifyProductFields = "id,handle,title,body_html,vendor,product_type,status,tags,options,variants,images"

// ShopifyAdapter implements integration.CommerceHub on the Shopify Admin REST API
type ShopifyAdapter struct {
	config *ShopifyConfig
	client *apiClient
	logger *zap.Logger
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.Burst)
	return &ShopifyAdapter{
		config: config,
		client: newAPIClient(integration.PlatformCodeShopify, config.Timeout(), limiter, config.Retry, logger),
		logger: logger.Named("shopify"),
	}, nil
}

// SetObserver attaches a request observer (metrics)
func (a *ShopifyAdapter) SetObserver(o RequestObserver) {
	a.client.observer = o
}

// PlatformCode returns the platform code this adapter handles
func (a *ShopifyAdapter) PlatformCode() integration.PlatformCode {
	return integration.PlatformCodeShopify
}

// DefaultLocationID returns the shop's default stock location
func (a *ShopifyAdapter) DefaultLocationID() int64 {
	return a.config.DefaultLocationID
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// FindProductsByHandle returns all products whose handle equals handle
func (a *ShopifyAdapter) FindProductsByHandle(ctx context.Context, handle string) ([]integration.DestinationProduct, error) {
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("fields", shopifyProductFields)

	resp, err := a.client.do(ctx, http.MethodGet, a.endpoint("/products.json", params), a.headers(), nil)
	if err != nil {
		return nil, err
	}
	var env shopifyProductsEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}

	products := make([]integration.DestinationProduct, 0, len(env.Products))
	for i := range env.Products {
		products = append(products, convertShopifyProduct(&env.Products[i]))
	}
	return products, nil
}

// GetProduct returns a product by id
func (a *ShopifyAdapter) GetProduct(ctx context.Context, productID int64) (*integration.DestinationProduct, error) {
	resp, err := a.client.do(ctx, http.MethodGet, a.endpoint("/products/"+integration.FormatID(productID)+".json", nil), a.headers(), nil)
	if err != nil {
		return nil, notFoundAs(err, integration.ErrProductNotFound)
	}
	var env shopifyProductEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}
	p := convertShopifyProduct(&env.Product)
	return &p, nil
}

// GetVariant returns a variant by id
func (a *ShopifyAdapter) GetVariant(ctx context.Context, variantID int64) (*integration.DestinationVariant, error) {
	resp, err := a.client.do(ctx, http.MethodGet, a.endpoint("/variants/"+integration.FormatID(variantID)+".json", nil), a.headers(), nil)
	if err != nil {
		return nil, notFoundAs(err, integration.ErrVariantNotFound)
	}
	var env shopifyVariantEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}
	v := convertShopifyVariant(env.Variant)
	return &v, nil
}

// CreateProduct creates a product and returns it as stored
func (a *ShopifyAdapter) CreateProduct(ctx context.Context, payload integration.ProductPayload) (*integration.DestinationProduct, error) {
	body := shopifyProductEnvelope{Product: toShopifyProduct(payload)}
	resp, err := a.client.do(ctx, http.MethodPost, a.endpoint("/products.json", nil), a.headers(), body)
	if err != nil {
		return nil, err
	}
	var env shopifyProductEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}
	p := convertShopifyProduct(&env.Product)
	a.logger.Info("Created product", zap.Int64("product_id", p.ID), zap.String("handle", p.Handle))
	return &p, nil
}

// UpdateProduct updates a product in place and returns it as stored
func (a *ShopifyAdapter) UpdateProduct(ctx context.Context, productID int64, payload integration.ProductPayload) (*integration.DestinationProduct, error) {
	product := toShopifyProduct(payload)
	product.ID = productID
	resp, err := a.client.do(ctx, http.MethodPut, a.endpoint("/products/"+integration.FormatID(productID)+".json", nil), a.headers(), shopifyProductEnvelope{Product: product})
	if err != nil {
		return nil, err
	}
	var env shopifyProductEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}
	p := convertShopifyProduct(&env.Product)
	a.logger.Info("Updated product", zap.Int64("product_id", p.ID), zap.String("handle", p.Handle))
	return &p, nil
}

// SetProductStatus changes the publication status of a product
func (a *ShopifyAdapter) SetProductStatus(ctx context.Context, productID int64, status integration.ProductStatus) error {
	body := shopifyProductEnvelope{Product: ShopifyProduct{ID: productID, Status: string(status)}}
	_, err := a.client.do(ctx, http.MethodPut, a.endpoint("/products/"+integration.FormatID(productID)+".json", nil), a.headers(), body)
	return err
}

// ListVendorProducts lists every product of a vendor following Link header pagination
func (a *ShopifyAdapter) ListVendorProducts(ctx context.Context, vendor string) ([]integration.ProductRef, error) {
	first := url.Values{}
	first.Set("vendor", vendor)
	first.Set("fields", "id,handle,status")

	var refs []integration.ProductRef
	err := a.paginate(ctx, "/products.json", first, func(body []byte) error {
		var env shopifyProductsEnvelope
		if err := decodeJSON(integration.PlatformCodeShopify, body, &env); err != nil {
			return err
		}
		for _, p := range env.Products {
			refs = append(refs, integration.ProductRef{
				ID:     p.ID,
				Handle: p.Handle,
				Status: integration.ProductStatus(p.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// ---------------------------------------------------------------------------
// Inventory and Image Operations
// ---------------------------------------------------------------------------

// SetInventoryLevel sets the available quantity of an item at a location
func (a *ShopifyAdapter) SetInventoryLevel(ctx context.Context, level integration.InventoryLevel) error {
	body := ShopifyInventorySetRequest{
		LocationID:      level.LocationID,
		InventoryItemID: level.InventoryItemID,
		Available:       level.Available,
	}
	_, err := a.client.doIdempotent(ctx, http.MethodPost, a.endpoint("/inventory_levels/set.json", nil), a.headers(), body)
	return err
}

// CreateImage uploads an image to a product
func (a *ShopifyAdapter) CreateImage(ctx context.Context, productID int64, image integration.ImagePayload) (*integration.DestinationImage, error) {
	body := shopifyImageEnvelope{Image: ShopifyImage{
		Alt:        image.Alt,
		Position:   image.Position,
		Src:        image.Src,
		Attachment: image.Attachment,
		VariantIDs: image.VariantIDs,
	}}
	resp, err := a.client.do(ctx, http.MethodPost, a.endpoint("/products/"+integration.FormatID(productID)+"/images.json", nil), a.headers(), body)
	if err != nil {
		return nil, err
	}
	var env shopifyImageEnvelope
	if err := decodeJSON(integration.PlatformCodeShopify, resp.Body, &env); err != nil {
		return nil, err
	}
	return &integration.DestinationImage{
		ID:         env.Image.ID,
		Alt:        env.Image.Alt,
		Position:   env.Image.Position,
		VariantIDs: env.Image.VariantIDs,
	}, nil
}

// ---------------------------------------------------------------------------
// Smart Collection Operations
// ---------------------------------------------------------------------------

// ListSmartCollectionHandles returns the handles of all smart collections
func (a *ShopifyAdapter) ListSmartCollectionHandles(ctx context.Context) ([]string, error) {
	first := url.Values{}
	first.Set("fields", "handle")

	var handles []string
	err := a.paginate(ctx, "/smart_collections.json", first, func(body []byte) error {
		var env shopifySmartCollectionsEnvelope
		if err := decodeJSON(integration.PlatformCodeShopify, body, &env); err != nil {
			return err
		}
		for _, c := range env.SmartCollections {
			handles = append(handles, c.Handle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

// CreateSmartCollection creates a smart collection
func (a *ShopifyAdapter) CreateSmartCollection(ctx context.Context, collection integration.SmartCollection) error {
	sc := ShopifySmartCollection{
		Handle:      collection.Handle,
		Title:       collection.Title,
		Published:   collection.Published,
		Disjunctive: collection.Disjunctive,
	}
	for _, r := range collection.Rules {
		sc.Rules = append(sc.Rules, ShopifyCollectionRule{Column: r.Column, Relation: r.Relation, Condition: r.Condition})
	}
	_, err := a.client.do(ctx, http.MethodPost, a.endpoint("/smart_collections.json", nil), a.headers(), shopifySmartCollectionEnvelope{SmartCollection: sc})
	if err != nil {
		return err
	}
	a.logger.Info("Created smart collection", zap.String("handle", collection.Handle))
	return nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// paginate follows rel="next" page_info cursors. Only the first request carries
// the filter params; cursor requests may only repeat limit and fields.
func (a *ShopifyAdapter) paginate(ctx context.Context, path string, first url.Values, handle func(body []byte) error) error {
	params := cloneValues(first)
	params.Set("limit", strconv.Itoa(a.config.PageSize))

	for {
		resp, err := a.client.do(ctx, http.MethodGet, a.endpoint(path, params), a.headers(), nil)
		if err != nil {
			return err
		}
		if err := handle(resp.Body); err != nil {
			return err
		}

		cursor := nextPageInfo(resp.Header.Get("Link"))
		if cursor == "" {
			return nil
		}
		next := url.Values{}
		next.Set("limit", strconv.Itoa(a.config.PageSize))
		next.Set("page_info", cursor)
		if f := first.Get("fields"); f != "" {
			next.Set("fields", f)
		}
		params = next
	}
}

func (a *ShopifyAdapter) endpoint(path string, params url.Values) string {
	u := a.config.APIBaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (a *ShopifyAdapter) headers() http.Header {
	h := http.Header{}
	h.Set("X-Shopify-Access-Token", a.config.AccessToken)
	return h
}

// notFoundAs maps a 404 to the given sentinel while keeping the remote error
func notFoundAs(err error, sentinel error) error {
	if integration.StatusCodeOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func toShopifyProduct(p integration.ProductPayload) ShopifyProduct {
	published := p.Published
	out := ShopifyProduct{
		Handle:      p.Handle,
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Status:      string(p.Status),
		Published:   &published,
		Tags:        joinTags(p.Tags),
	}
	for _, o := range p.Options {
		out.Options = append(out.Options, ShopifyOption{Name: o.Name})
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, ShopifyVariant{
			ID:                  v.ID,
			SKU:                 v.SKU,
			Price:               v.Price,
			CompareAtPrice:      optionalString(v.CompareAtPrice),
			Weight:              v.Weight,
			Barcode:             optionalString(v.Barcode),
			Option1:             optionalString(v.Option1),
			Option2:             optionalString(v.Option2),
			Option3:             optionalString(v.Option3),
			Position:            v.Position,
			InventoryQuantity:   v.InventoryQuantity,
			InventoryPolicy:     v.InventoryPolicy,
			InventoryManagement: v.InventoryManagement,
			FulfillmentService:  v.FulfillmentService,
		})
	}
	return out
}

func convertShopifyProduct(p *ShopifyProduct) integration.DestinationProduct {
	out := integration.DestinationProduct{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Status:      integration.ProductStatus(p.Status),
		Tags:        splitTags(p.Tags),
	}
	for _, o := range p.Options {
		out.Options = append(out.Options, integration.ProductOption{Name: o.Name})
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, convertShopifyVariant(v))
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, integration.DestinationImage{
			ID:         img.ID,
			Alt:        strings.TrimSpace(img.Alt),
			Position:   img.Position,
			VariantIDs: img.VariantIDs,
		})
	}
	return out
}

func convertShopifyVariant(v ShopifyVariant) integration.DestinationVariant {
	return integration.DestinationVariant{
		ID:                v.ID,
		ProductID:         v.ProductID,
		SKU:               strings.TrimSpace(v.SKU),
		InventoryItemID:   v.InventoryItemID,
		InventoryQuantity: v.InventoryQuantity,
		Price:             v.Price,
		CompareAtPrice:    derefString(v.CompareAtPrice),
		Barcode:           derefString(v.Barcode),
		Option1:           derefString(v.Option1),
		Option2:           derefString(v.Option2),
		Option3:           derefString(v.Option3),
		Position:          v.Position,
	}
}

// Ensure ShopifyAdapter implements integration.CommerceHub
var _ integration.CommerceHub = (*ShopifyAdapter)(nil)
