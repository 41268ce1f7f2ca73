package integration

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MarkupTier is a half-open price range [Lower, Upper) and its multiplier
type MarkupTier struct {
	Lower      decimal.Decimal `json:"lower"`
	Upper      decimal.Decimal `json:"upper"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// NewMarkupTier builds a tier from float bounds
func NewMarkupTier(lower, upper, multiplier float64) MarkupTier {
	return MarkupTier{
		Lower:      decimal.NewFromFloat(lower),
		Upper:      decimal.NewFromFloat(upper),
		Multiplier: decimal.NewFromFloat(multiplier),
	}
}

// Contains reports whether price falls in [Lower, Upper)
func (t MarkupTier) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(t.Lower) && price.LessThan(t.Upper)
}

// ValidateMarkupTiers checks that every tier is well formed and no two overlap
func ValidateMarkupTiers(tiers []MarkupTier) error {
	for i, t := range tiers {
		if !t.Lower.LessThan(t.Upper) {
			return fmt.Errorf("%w: tier %d lower bound %s is not below upper bound %s",
				ErrInvalidMarkupTiers, i, t.Lower, t.Upper)
		}
		if !t.Multiplier.IsPositive() {
			return fmt.Errorf("%w: tier %d multiplier must be positive", ErrInvalidMarkupTiers, i)
		}
	}

	sorted := make([]MarkupTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower.LessThan(sorted[j].Lower) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Lower.LessThan(sorted[i-1].Upper) {
			return fmt.Errorf("%w: [%s, %s) overlaps [%s, %s)", ErrInvalidMarkupTiers,
				sorted[i-1].Lower, sorted[i-1].Upper, sorted[i].Lower, sorted[i].Upper)
		}
	}
	return nil
}

// StoreConfig describes one Storefront tenant and how it maps into the Commerce Hub
type StoreConfig struct {
	// ID is the Storefront store id. Used as Commerce Hub vendor and as a product tag.
	ID string `json:"id" mapstructure:"id" validate:"required,numeric"`
	// APIURL is the store's REST base URL, e.g. https://api.tiendanube.com/v1/123456
	APIURL      string `json:"url" mapstructure:"url" validate:"required,url"`
	AccessToken string `json:"access_token" mapstructure:"access_token" validate:"required"`
	// Category is the store's general category, used as product_type and tag
	Category string `json:"category" mapstructure:"category" validate:"required"`
	// SecondaryCategory is an optional extra classification hint
	SecondaryCategory string `json:"secondary_category" mapstructure:"secondary_category"`
	// LocationID is the Commerce Hub stock location for this store; 0 means default
	LocationID int64 `json:"location_id" mapstructure:"location_id" validate:"gte=0"`
	// ProductLimit caps how many products a catalog run fetches; enables pruning
	ProductLimit int `json:"product_limit" mapstructure:"product_limit" validate:"gte=0"`
	// MarkupTiers overrides the default price tiers when non-empty
	MarkupTiers []MarkupTier `json:"markup_tiers" mapstructure:"-"`
}

// EffectiveLocation resolves the store location against the platform default
func (s StoreConfig) EffectiveLocation(defaultLocation int64) int64 {
	if s.LocationID == 0 {
		return defaultLocation
	}
	return s.LocationID
}

// HasProductLimit reports whether catalog runs for this store are capped
func (s StoreConfig) HasProductLimit() bool {
	return s.ProductLimit > 0
}

// StoreRegistry resolves stores by id and lists them in deterministic order
type StoreRegistry struct {
	stores map[string]StoreConfig
	order  []string
}

// NewStoreRegistry builds a registry; duplicate ids are rejected
func NewStoreRegistry(stores []StoreConfig) (*StoreRegistry, error) {
	r := &StoreRegistry{stores: make(map[string]StoreConfig, len(stores))}
	for _, s := range stores {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: store id is required", ErrInvalidStoreConfig)
		}
		if _, dup := r.stores[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate store id %s", ErrInvalidStoreConfig, s.ID)
		}
		if err := ValidateMarkupTiers(s.MarkupTiers); err != nil {
			return nil, fmt.Errorf("store %s: %w", s.ID, err)
		}
		r.stores[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get returns the store with the given id
func (r *StoreRegistry) Get(id string) (StoreConfig, error) {
	s, ok := r.stores[id]
	if !ok {
		return StoreConfig{}, fmt.Errorf("%w: %s", ErrStoreNotConfigured, id)
	}
	return s, nil
}

// All returns every store sorted by id
func (r *StoreRegistry) All() []StoreConfig {
	out := make([]StoreConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.stores[id])
	}
	return out
}

// Len returns the number of configured stores
func (r *StoreRegistry) Len() int {
	return len(r.order)
}
