package ecommerce

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Tiendanube API Response Types
// ---------------------------------------------------------------------------

// TiendanubeLocalized is a multi-language field ({"es": "...", "pt": "..."})
type TiendanubeLocalized map[string]string

// Value returns the text for lang, falling back to the first non-empty language
// in lexical order
func (l TiendanubeLocalized) Value(lang string) string {
	if v := l[lang]; v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// TiendanubeID accepts ids encoded either as JSON numbers or strings
type TiendanubeID string

// UnmarshalJSON implements json.Unmarshaler
func (id *TiendanubeID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*id = TiendanubeID(s)
	return nil
}

// TiendanubeNullableString accepts strings, numbers and null
type TiendanubeNullableString string

// UnmarshalJSON implements json.Unmarshaler
func (v *TiendanubeNullableString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*v = TiendanubeNullableString(s)
	return nil
}

// TiendanubeTime parses the API's timestamp formats
type TiendanubeTime struct {
	time.Time
}

var tiendanubeTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values decode to zero time.
func (t *TiendanubeTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range tiendanubeTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// TiendanubeProduct is a product from GET /products
type TiendanubeProduct struct {
	ID          TiendanubeID          `json:"id"`
	Name        TiendanubeLocalized   `json:"name"`
	Description TiendanubeLocalized   `json:"description"`
	Handle      TiendanubeLocalized   `json:"handle"`
	Published   bool                  `json:"published"`
	Tags        string                `json:"tags"`
	Attributes  []TiendanubeLocalized `json:"attributes"`
	Categories  []TiendanubeCategory  `json:"categories"`
	Variants    []TiendanubeVariant   `json:"variants"`
	Images      []TiendanubeImage     `json:"images"`
	UpdatedAt   TiendanubeTime        `json:"updated_at"`
}

// TiendanubeVariant is a product variant
type TiendanubeVariant struct {
	ID               TiendanubeID             `json:"id"`
	ProductID        TiendanubeID             `json:"product_id"`
	ImageID          TiendanubeID             `json:"image_id"`
	Price            TiendanubeNullableString `json:"price"`
	PromotionalPrice TiendanubeNullableString `json:"promotional_price"`
	CompareAtPrice   TiendanubeNullableString `json:"compare_at_price"`
	Stock            *int                     `json:"stock"`
	Weight           TiendanubeNullableString `json:"weight"`
	Barcode          TiendanubeNullableString `json:"barcode"`
	Position         int                      `json:"position"`
	Values           []TiendanubeLocalized    `json:"values"`
	UpdatedAt        TiendanubeTime           `json:"updated_at"`
}

// TiendanubeImage is a product image
type TiendanubeImage struct {
	ID       TiendanubeID `json:"id"`
	Src      string       `json:"src"`
	Position int          `json:"position"`
}

// TiendanubeCategory is a category node from GET /categories
type TiendanubeCategory struct {
	ID     TiendanubeID        `json:"id"`
	Name   TiendanubeLocalized `json:"name"`
	Handle TiendanubeLocalized `json:"handle"`
	Parent TiendanubeID        `json:"parent"`
}

// TiendanubeStockRequest is the body of POST /products/{id}/variants/stock
type TiendanubeStockRequest struct {
	Action string `json:"action"`
	Value  int    `json:"value"`
	ID     int64  `json:"id"`
}

// splitTags splits the comma-separated tag string, trimming blanks
func splitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
