package pricing

import (
	"fmt"
	"strings"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// pricePlaces is the number of decimals sale prices are rounded and rendered with
const pricePlaces = 2

// DefaultMarkupTiers returns the production markup table. Lower bounds are
// inclusive, upper bounds exclusive.
func DefaultMarkupTiers() []integration.MarkupTier {
	return []integration.MarkupTier{
		integration.NewMarkupTier(0, 9000, 1.35),
		integration.NewMarkupTier(9000, 20000, 1.30),
		integration.NewMarkupTier(20000, 30000, 1.25),
		integration.NewMarkupTier(30000, 40000, 1.22),
		integration.NewMarkupTier(40000, 50000, 1.19),
		integration.NewMarkupTier(50000, 60000, 1.16),
		integration.NewMarkupTier(60000, 100000, 1.14),
		integration.NewMarkupTier(100000, 200000, 1.12),
	}
}

// TieredMarkup applies a price-band multiplier to vendor prices
type TieredMarkup struct {
	tiers  []integration.MarkupTier
	logger *zap.Logger
}

// NewTieredMarkup creates a markup over the given tiers. An empty table falls
// back to DefaultMarkupTiers.
func NewTieredMarkup(tiers []integration.MarkupTier, logger *zap.Logger) *TieredMarkup {
	if len(tiers) == 0 {
		tiers = DefaultMarkupTiers()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	copied := make([]integration.MarkupTier, len(tiers))
	copy(copied, tiers)
	return &TieredMarkup{tiers: copied, logger: logger}
}

// Tiers returns a copy of the markup tiers
func (m *TieredMarkup) Tiers() []integration.MarkupTier {
	result := make([]integration.MarkupTier, len(m.tiers))
	copy(result, m.tiers)
	return result
}

// SalePrice computes the destination sale price. The promotional price wins
// over the base price when it is present and non-zero. Prices outside every
// tier and prices that cannot be parsed are returned unchanged.
func (m *TieredMarkup) SalePrice(basePrice, promotionalPrice string) string {
	effective := effectivePrice(basePrice, promotionalPrice)

	price, err := decimal.NewFromString(strings.TrimSpace(effective))
	if err != nil {
		m.logger.Error("Failed to parse price",
			zap.String("price", effective),
			zap.Error(fmt.Errorf("%w: %q", integration.ErrPriceParse, effective)),
		)
		return effective
	}

	for _, tier := range m.tiers {
		if tier.Contains(price) {
			return price.Mul(tier.Multiplier).Round(pricePlaces).StringFixed(pricePlaces)
		}
	}
	return effective
}

// ComputeSalePrice applies tiers to a base/promotional price pair using the
// global logger for parse failures
func ComputeSalePrice(basePrice, promotionalPrice string, tiers []integration.MarkupTier) string {
	return NewTieredMarkup(tiers, zap.L().Named("pricing")).SalePrice(basePrice, promotionalPrice)
}

// effectivePrice picks the promotional price when it is set to anything other
// than a numeric zero
func effectivePrice(basePrice, promotionalPrice string) string {
	promo := strings.TrimSpace(promotionalPrice)
	if promo == "" {
		return basePrice
	}
	if d, err := decimal.NewFromString(promo); err == nil && d.IsZero() {
		return basePrice
	}
	return promotionalPrice
}
