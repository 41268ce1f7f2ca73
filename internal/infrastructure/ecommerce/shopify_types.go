package ecommerce

import (
	"net/url"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Shopify API Types
// ---------------------------------------------------------------------------

// ShopifyProduct is the product resource
type ShopifyProduct struct {
	ID          int64            `json:"id,omitempty"`
	Handle      string           `json:"handle,omitempty"`
	Title       string           `json:"title,omitempty"`
	BodyHTML    string           `json:"body_html,omitempty"`
	Vendor      string           `json:"vendor,omitempty"`
	ProductType string           `json:"product_type,omitempty"`
	Status      string           `json:"status,omitempty"`
	Published   *bool            `json:"published,omitempty"`
	Tags        string           `json:"tags,omitempty"`
	Options     []ShopifyOption  `json:"options,omitempty"`
	Variants    []ShopifyVariant `json:"variants,omitempty"`
	Images      []ShopifyImage   `json:"images,omitempty"`
}

// ShopifyOption is a product option axis
type ShopifyOption struct {
	Name string `json:"name"`
}

// ShopifyVariant is the variant resource
type ShopifyVariant struct {
	ID                  int64   `json:"id,omitempty"`
	ProductID           int64   `json:"product_id,omitempty"`
	SKU                 string  `json:"sku"`
	InventoryItemID     int64   `json:"inventory_item_id,omitempty"`
	InventoryQuantity   int     `json:"inventory_quantity"`
	Price               string  `json:"price,omitempty"`
	CompareAtPrice      *string `json:"compare_at_price,omitempty"`
	Weight              string  `json:"weight,omitempty"`
	Barcode             *string `json:"barcode,omitempty"`
	Option1             *string `json:"option1,omitempty"`
	Option2             *string `json:"option2,omitempty"`
	Option3             *string `json:"option3,omitempty"`
	Position            int     `json:"position,omitempty"`
	InventoryPolicy     string  `json:"inventory_policy,omitempty"`
	InventoryManagement string  `json:"inventory_management,omitempty"`
	FulfillmentService  string  `json:"fulfillment_service,omitempty"`
}

// ShopifyImage is the product image resource
type ShopifyImage struct {
	ID         int64   `json:"id,omitempty"`
	Alt        string  `json:"alt,omitempty"`
	Position   int     `json:"position,omitempty"`
	Src        string  `json:"src,omitempty"`
	Attachment string  `json:"attachment,omitempty"`
	VariantIDs []int64 `json:"variant_ids,omitempty"`
}

// ShopifySmartCollection is the smart collection resource
type ShopifySmartCollection struct {
	ID          int64                   `json:"id,omitempty"`
	Handle      string                  `json:"handle"`
	Title       string                  `json:"title,omitempty"`
	Published   bool                    `json:"published"`
	Disjunctive bool                    `json:"disjunctive"`
	Rules       []ShopifyCollectionRule `json:"rules,omitempty"`
}

// ShopifyCollectionRule is a smart collection rule
type ShopifyCollectionRule struct {
	Column    string `json:"column"`
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}

// ShopifyInventorySetRequest is the body of POST inventory_levels/set.json
type ShopifyInventorySetRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type shopifyProductEnvelope struct {
	Product ShopifyProduct `json:"product"`
}

type shopifyProductsEnvelope struct {
	Products []ShopifyProduct `json:"products"`
}

type shopifyVariantEnvelope struct {
	Variant ShopifyVariant `json:"variant"`
}

type shopifyImageEnvelope struct {
	Image ShopifyImage `json:"image"`
}

type shopifySmartCollectionEnvelope struct {
	SmartCollection ShopifySmartCollection `json:"smart_collection"`
}

type shopifySmartCollectionsEnvelope struct {
	SmartCollections []ShopifySmartCollection `json:"smart_collections"`
}

var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageInfo extracts the page_info cursor of the rel="next" entry of a Link header
func nextPageInfo(link string) string {
	m := linkNextPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}

// joinTags renders tags as the comma-separated string the API expects
func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
