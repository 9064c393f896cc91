package pricing_test

import (
	"testing"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/service/pricing"
	"github.com/stretchr/testify/assert"
)

var cfg = domain.PricingConfig{ServiceFee: 2000, TaxPercent: 5}

func TestPrice_SingleSeat(t *testing.T) {
	items := []domain.SelectionItem{
		{UnitID: "S12", Type: domain.UnitSeat, CategoryID: "standard", Price: 15000},
	}

	got := pricing.Price(items, cfg)

	assert.Equal(t, domain.PriceBreakdown{
		Subtotal:   15000,
		ServiceFee: 2000,
		Tax:        750,
		Total:      17750,
	}, got)
}

func TestPrice_FeeAndTaxComputedOnce(t *testing.T) {
	items := []domain.SelectionItem{
		{UnitID: "S12", Type: domain.UnitSeat, Price: 15000},
		{UnitID: "T3", Type: domain.UnitTable, Price: 40000},
	}

	got := pricing.Price(items, cfg)

	assert.EqualValues(t, 55000, got.Subtotal)
	assert.EqualValues(t, 2000, got.ServiceFee)
	assert.EqualValues(t, 2750, got.Tax)
	assert.EqualValues(t, 59750, got.Total)
}

func TestPrice_Empty(t *testing.T) {
	assert.Equal(t, domain.PriceBreakdown{}, pricing.Price(nil, cfg))
}

func TestPrice_Deterministic(t *testing.T) {
	items := []domain.SelectionItem{
		{UnitID: "S1", Price: 12345},
		{UnitID: "S2", Price: 999},
	}

	first := pricing.Price(items, cfg)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, pricing.Price(items, cfg))
	}
}

func TestTax_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		subtotal domain.Money
		pct      float64
		want     domain.Money
	}{
		{subtotal: 10, pct: 5, want: 1},   // 0.5 -> 1
		{subtotal: 30, pct: 5, want: 2},   // 1.5 -> 2
		{subtotal: 29, pct: 5, want: 1},   // 1.45 -> 1
		{subtotal: -10, pct: 5, want: -1}, // refunds round away from zero too
		{subtotal: 15000, pct: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pricing.Tax(tt.subtotal, tt.pct), "subtotal=%d pct=%v", tt.subtotal, tt.pct)
	}
}
