package integration

import (
	"strconv"
	"time"
)

// UnlimitedStock is the inventory quantity pushed for variants whose
// Storefront stock is null (unlimited). Never zero.
const UnlimitedStock = 999

// MaxVariantOptions is the number of positional option slots a Commerce Hub variant has
const MaxVariantOptions = 3

// DefaultOptionValue is the option1 value the Commerce Hub gives the single
// variant of a product without options
const DefaultOptionValue = "Default Title"

// ---------------------------------------------------------------------------
// Storefront (source) catalog
// ---------------------------------------------------------------------------

// SourceProduct is a product as read from a Storefront store.
// Localized fields are already resolved to the configured language by the adapter.
type SourceProduct struct {
	ID          string
	StoreID     string
	Name        string
	Description string
	Published   bool
	Tags        []string
	Attributes  []string
	Categories  []SourceCategory
	Variants    []SourceVariant
	Images      []SourceImage
	UpdatedAt   time.Time
}

// SourceVariant is a sellable variant of a SourceProduct
type SourceVariant struct {
	ID               string
	ProductID        string
	Price            string
	PromotionalPrice string
	// Stock is nil when the Storefront tracks the variant as unlimited
	Stock          *int
	Weight         string
	Barcode        string
	CompareAtPrice string
	Position       int
	Values         []string
	ImageID        string
	UpdatedAt      time.Time
}

// Quantity returns the stock to publish, mapping unlimited stock to UnlimitedStock
func (v SourceVariant) Quantity() int {
	if v.Stock == nil {
		return UnlimitedStock
	}
	if *v.Stock < 0 {
		return 0
	}
	return *v.Stock
}

// SourceImage is a product image hosted by the Storefront
type SourceImage struct {
	ID       string
	Src      string
	Position int
}

// SourceCategory is a node of a store's category tree
type SourceCategory struct {
	ID       string
	Name     string
	Handle   string
	ParentID string
}

// ---------------------------------------------------------------------------
// Commerce Hub (destination) catalog
// ---------------------------------------------------------------------------

// ProductStatus is the publication status of a destination product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// DestinationProduct is a product as stored in the Commerce Hub
type DestinationProduct struct {
	ID          int64
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Status      ProductStatus
	Tags        []string
	Options     []ProductOption
	Variants    []DestinationVariant
	Images      []DestinationImage
}

// ProductOption is a named option axis (size, color, ...)
type ProductOption struct {
	Name string
}

// DestinationVariant is a Commerce Hub variant. SKU carries the Storefront variant id.
type DestinationVariant struct {
	ID                int64
	ProductID         int64
	SKU               string
	InventoryItemID   int64
	InventoryQuantity int
	Price             string
	CompareAtPrice    string
	Barcode           string
	Option1           string
	Option2           string
	Option3           string
	Position          int
}

// DestinationImage is an uploaded image. Alt carries the Storefront image id.
type DestinationImage struct {
	ID         int64
	Alt        string
	Position   int
	VariantIDs []int64
}

// ProductRef is the lightweight projection used when listing a vendor's products
type ProductRef struct {
	ID     int64
	Handle string
	Status ProductStatus
}

// ---------------------------------------------------------------------------
// Commerce Hub write payloads
// ---------------------------------------------------------------------------

// ProductPayload is the body of a product create or update
type ProductPayload struct {
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	// Status is sent on create and when a drafted product is reactivated
	Status    ProductStatus
	Published bool
	Tags      []string
	// Options is nil when the destination's existing options must be preserved
	Options  []ProductOption
	Variants []VariantPayload
}

// VariantPayload is a variant inside a ProductPayload
type VariantPayload struct {
	// ID is the existing destination variant id on update; 0 creates a variant
	ID                  int64
	SKU                 string
	Price               string
	CompareAtPrice      string
	Weight              string
	Barcode             string
	Option1             string
	Option2             string
	Option3             string
	Position            int
	InventoryQuantity   int
	InventoryPolicy     string
	InventoryManagement string
	FulfillmentService  string
}

// Option returns the positional option value (1-based)
func (v VariantPayload) Option(i int) string {
	switch i {
	case 1:
		return v.Option1
	case 2:
		return v.Option2
	case 3:
		return v.Option3
	default:
		return ""
	}
}

// ImagePayload is an image upload. Exactly one of Src or Attachment is set.
type ImagePayload struct {
	Alt        string
	Position   int
	Src        string
	Attachment string
	VariantIDs []int64
}

// InventoryLevel sets the available quantity of an inventory item at a location
type InventoryLevel struct {
	LocationID      int64
	InventoryItemID int64
	Available       int
}

// SmartCollection is a tag-rule based collection
type SmartCollection struct {
	Handle      string
	Title       string
	Published   bool
	Disjunctive bool
	Rules       []CollectionRule
}

// CollectionRule is a single smart collection condition
type CollectionRule struct {
	Column    string
	Relation  string
	Condition string
}

// ---------------------------------------------------------------------------
// Queries and commands
// ---------------------------------------------------------------------------

// ProductQuery filters a Storefront product listing
type ProductQuery struct {
	PublishedOnly bool
	MinStock      int
	UpdatedAtMin  *time.Time
	// Fields restricts the returned attributes; empty means all
	Fields []string
	// Limit caps the number of products returned; 0 means no cap
	Limit int
	// SortBy is passed through to the Storefront (e.g. created-at-descending)
	SortBy string
}

// StockAdjustment is a relative stock change on a Storefront variant
type StockAdjustment struct {
	ProductID string
	VariantID string
	Delta     int
}

// FormatID renders a Commerce Hub numeric id
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
