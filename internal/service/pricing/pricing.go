// Package pricing computes checkout totals. Everything here is pure: the
// same items and config always yield the same breakdown.
package pricing

import (
	"math"

	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// Price sums the price snapshots of items and applies the flat service fee
// and percentage tax once. An empty selection costs nothing, fee included.
func Price(items []domain.SelectionItem, cfg domain.PricingConfig) domain.PriceBreakdown {
	if len(items) == 0 {
		return domain.PriceBreakdown{}
	}

	return FromSubtotal(Subtotal(items), cfg)
}

// FromSubtotal applies fee and tax to an already summed subtotal.
func FromSubtotal(subtotal domain.Money, cfg domain.PricingConfig) domain.PriceBreakdown {
	tax := Tax(subtotal, cfg.TaxPercent)

	return domain.PriceBreakdown{
		Subtotal:   subtotal,
		ServiceFee: cfg.ServiceFee,
		Tax:        tax,
		Total:      subtotal + cfg.ServiceFee + tax,
	}
}

// Tax is subtotal * pct / 100 rounded half away from zero to a minor unit.
func Tax(subtotal domain.Money, pct float64) domain.Money {
	if pct == 0 || subtotal == 0 {
		return 0
	}
	return domain.Money(math.Round(float64(subtotal) * pct / 100))
}

// Subtotal sums the snapshots of one group of items.
func Subtotal(items []domain.SelectionItem) domain.Money {
	var sum domain.Money
	for _, it := range items {
		sum += it.Price
	}
	return sum
}
