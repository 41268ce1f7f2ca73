package integration

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/domain/taxonomy"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/strategy/pricing"
)

// Commerce Hub variant constants written on every variant
const (
	InventoryPolicyDeny      = "deny"
	InventoryManagementHub   = "shopify"
	FulfillmentServiceManual = "manual"
)

// BuiltProduct is a product payload plus the derived data the image and
// inventory steps need
type BuiltProduct struct {
	Payload integration.ProductPayload
	// VariantImages maps a SKU to the Storefront image id linked to it
	VariantImages map[string]string
	// Quantities maps a SKU to the stock to publish
	Quantities map[string]int
}

// PayloadBuilder turns Storefront products into Commerce Hub payloads
type PayloadBuilder struct {
	classifier *taxonomy.Classifier
	logger     *zap.Logger

	mu      sync.Mutex
	markups map[string]*pricing.TieredMarkup
}

// NewPayloadBuilder creates a builder. A nil classifier uses the default tables.
func NewPayloadBuilder(classifier *taxonomy.Classifier, logger *zap.Logger) *PayloadBuilder {
	if classifier == nil {
		classifier = taxonomy.NewClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayloadBuilder{
		classifier: classifier,
		logger:     logger,
		markups:    make(map[string]*pricing.TieredMarkup),
	}
}

// Build assembles the payload for product p of store. existing is the matched
// destination product or nil on create.
func (b *PayloadBuilder) Build(store integration.StoreConfig, p integration.SourceProduct, existing *integration.DestinationProduct) BuiltProduct {
	markup := b.markupFor(store)
	skuMap := integration.BuildVariantSkuMap(existing)

	built := BuiltProduct{
		VariantImages: make(map[string]string, len(p.Variants)),
		Quantities:    make(map[string]int, len(p.Variants)),
	}

	variants := make([]integration.VariantPayload, 0, len(p.Variants))
	for _, v := range p.Variants {
		sku := integration.SkuFor(v)
		vp := integration.VariantPayload{
			SKU:                 sku,
			Price:               markup.SalePrice(v.Price, v.PromotionalPrice),
			CompareAtPrice:      v.CompareAtPrice,
			Weight:              v.Weight,
			Barcode:             v.Barcode,
			Position:            v.Position,
			InventoryQuantity:   v.Quantity(),
			InventoryPolicy:     InventoryPolicyDeny,
			InventoryManagement: InventoryManagementHub,
			FulfillmentService:  FulfillmentServiceManual,
		}
		for i := 0; i < len(v.Values) && i < integration.MaxVariantOptions; i++ {
			switch i {
			case 0:
				vp.Option1 = v.Values[i]
			case 1:
				vp.Option2 = v.Values[i]
			case 2:
				vp.Option3 = v.Values[i]
			}
		}
		if dv, ok := skuMap[sku]; ok {
			vp.ID = dv.ID
		}
		variants = append(variants, vp)

		built.Quantities[sku] = v.Quantity()
		if v.ImageID != "" {
			built.VariantImages[sku] = v.ImageID
		}
	}

	var options []integration.ProductOption
	if len(p.Attributes) > 0 {
		for i, name := range p.Attributes {
			if i == integration.MaxVariantOptions {
				break
			}
			options = append(options, integration.ProductOption{Name: name})
		}
	}

	tags := b.Tags(store, p)
	if existing != nil {
		tags = MergeTags(tags, existing.Tags)
	}

	built.Payload = integration.ProductPayload{
		Handle:      integration.HandleFor(p),
		Title:       p.Name,
		BodyHTML:    CleanBody(p.Description),
		Vendor:      store.ID,
		ProductType: store.Category,
		Published:   p.Published,
		Tags:        tags,
		Options:     options,
		Variants:    variants,
	}
	// New products and products drafted by a prune go (back) to active
	if existing == nil || (existing.Status != "" && existing.Status != integration.ProductStatusActive) {
		built.Payload.Status = integration.ProductStatusActive
	}
	return built
}

// Tags returns the tag set of a product: its own tags, the store id and
// category, its category names and handles and the classifier tags. Category
// handles are slugged the way smart collection rules expect them.
func (b *PayloadBuilder) Tags(store integration.StoreConfig, p integration.SourceProduct) []string {
	raw := make([]string, 0, len(p.Tags)+2*len(p.Categories))
	raw = append(raw, p.Tags...)

	tags := make([]string, 0, len(raw)+8)
	tags = append(tags, p.Tags...)
	tags = append(tags, store.ID, store.Category)
	for _, c := range p.Categories {
		tags = append(tags, c.Name, slug(c.Handle))
		raw = append(raw, c.Name, c.Handle)
	}

	classification := b.classifier.Classify(raw, taxonomy.StoreCategories{
		General:   store.Category,
		Secondary: store.SecondaryCategory,
	})
	tags = append(tags, classification.Tags()...)
	return MergeTags(tags)
}

func (b *PayloadBuilder) markupFor(store integration.StoreConfig) *pricing.TieredMarkup {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.markups[store.ID]
	if !ok {
		m = pricing.NewTieredMarkup(store.MarkupTiers, b.logger.Named("pricing").With(zap.String("store_id", store.ID)))
		b.markups[store.ID] = m
	}
	return m
}

// MergeTags concatenates tag lists, trimming each tag and dropping blanks and
// repeats. The first occurrence keeps its position.
func MergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// CleanBody strips markup from a rich text description, unescapes entities and
// collapses whitespace
func CleanBody(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Change detection
// ---------------------------------------------------------------------------

// PayloadUnchanged reports whether applying payload to existing would change
// nothing: same fields and status, same tag set, same options and the same variants
func PayloadUnchanged(existing *integration.DestinationProduct, payload integration.ProductPayload) bool {
	if existing == nil {
		return false
	}
	if existing.Title != payload.Title ||
		CleanBody(existing.BodyHTML) != payload.BodyHTML ||
		existing.Vendor != payload.Vendor ||
		existing.ProductType != payload.ProductType {
		return false
	}
	if payload.Status != "" && existing.Status != payload.Status {
		return false
	}
	if !sameTagSet(existing.Tags, payload.Tags) {
		return false
	}
	if payload.Options != nil && !sameOptions(existing.Options, payload.Options) {
		return false
	}
	if len(existing.Variants) != len(payload.Variants) {
		return false
	}
	bySku := integration.BuildVariantSkuMap(existing)
	for _, vp := range payload.Variants {
		dv, ok := bySku[vp.SKU]
		if !ok || !variantUnchanged(dv, vp) {
			return false
		}
	}
	return true
}

func variantUnchanged(dv integration.DestinationVariant, vp integration.VariantPayload) bool {
	return samePrice(dv.Price, vp.Price) &&
		samePrice(dv.CompareAtPrice, vp.CompareAtPrice) &&
		dv.Barcode == vp.Barcode &&
		dv.Option1 == implicitOption(vp.Option1) &&
		dv.Option2 == vp.Option2 &&
		dv.Option3 == vp.Option3
}

// implicitOption maps an empty first option to the value the Commerce Hub
// stores for products without options
func implicitOption(v string) string {
	if v == "" {
		return integration.DefaultOptionValue
	}
	return v
}

// samePrice compares prices numerically so "100" equals "100.00". Values that
// do not parse are compared as text.
func samePrice(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return false
	}
	return da.Equal(db)
}

func sameTagSet(a, b []string) bool {
	sa := MergeTags(a)
	sb := MergeTags(b)
	if len(sa) != len(sb) {
		return false
	}
	set := make(map[string]struct{}, len(sa))
	for _, t := range sa {
		set[t] = struct{}{}
	}
	for _, t := range sb {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func sameOptions(a, b []integration.ProductOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
