package integration

import (
	"context"
)

// ---------------------------------------------------------------------------
// PlatformCode represents the type of e-commerce platform
// ---------------------------------------------------------------------------

// PlatformCode represents the type of e-commerce platform
type PlatformCode string

const (
	// PlatformCodeTiendanube is the Storefront (source) platform
	PlatformCodeTiendanube PlatformCode = "TIENDANUBE"
	// PlatformCodeShopify is the Commerce Hub (destination) platform
	PlatformCodeShopify PlatformCode = "SHOPIFY"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeTiendanube, PlatformCodeShopify:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeTiendanube:
		return "Tiendanube"
	case PlatformCodeShopify:
		return "Shopify"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// Storefront is the port to the multi-tenant source platform.
// Every call is scoped to one store.
type Storefront interface {
	// ListProducts returns every product matching query, following pagination
	ListProducts(ctx context.Context, store StoreConfig, query ProductQuery) ([]SourceProduct, error)

	// ListCategories returns the store's full category tree (flat, parent linked)
	ListCategories(ctx context.Context, store StoreConfig) ([]SourceCategory, error)

	// AdjustStock applies a relative stock change to one variant
	AdjustStock(ctx context.Context, store StoreConfig, adj StockAdjustment) error
}

// CommerceHub is the port to the destination platform
type CommerceHub interface {
	// FindProductsByHandle returns all products whose handle equals handle
	FindProductsByHandle(ctx context.Context, handle string) ([]DestinationProduct, error)

	// GetProduct returns a product by id
	GetProduct(ctx context.Context, productID int64) (*DestinationProduct, error)

	// GetVariant returns a variant by id
	GetVariant(ctx context.Context, variantID int64) (*DestinationVariant, error)

	// CreateProduct creates a product and returns it as stored
	CreateProduct(ctx context.Context, payload ProductPayload) (*DestinationProduct, error)

	// UpdateProduct updates a product in place and returns it as stored
	UpdateProduct(ctx context.Context, productID int64, payload ProductPayload) (*DestinationProduct, error)

	// SetProductStatus changes the publication status of a product
	SetProductStatus(ctx context.Context, productID int64, status ProductStatus) error

	// ListVendorProducts lists every product of a vendor, following pagination
	ListVendorProducts(ctx context.Context, vendor string) ([]ProductRef, error)

	// SetInventoryLevel sets the available quantity of an item at a location
	SetInventoryLevel(ctx context.Context, level InventoryLevel) error

	// CreateImage uploads an image to a product
	CreateImage(ctx context.Context, productID int64, image ImagePayload) (*DestinationImage, error)

	// ListSmartCollectionHandles returns the handles of all smart collections
	ListSmartCollectionHandles(ctx context.Context) ([]string, error)

	// CreateSmartCollection creates a smart collection
	CreateSmartCollection(ctx context.Context, collection SmartCollection) error

	// DefaultLocationID returns the platform's default stock location
	DefaultLocationID() int64
}

// SyncEventPublisher receives reconciliation outcomes for downstream consumers.
// Implementations must not block the sync loop on failure.
type SyncEventPublisher interface {
	Publish(ctx context.Context, event SyncEvent) error
}
