package memory

import (
	"fmt"

	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// DemoLayout returns a small mixed venue: twenty seats S1..S20 in two rows,
// five four-seat tables T1..T5 and two eight-person booths B1..B2.
func DemoLayout(eventID int64) (domain.EventLayout, domain.PricingConfig) {
	layout := domain.EventLayout{
		EventID: eventID,
		Categories: []domain.Category{
			{ID: "standard", EventID: eventID, Name: "Standard", Color: "#4caf50", Price: 15000, AppliesTo: domain.UnitSeat},
			{ID: "table", EventID: eventID, Name: "Table", Color: "#2196f3", Price: 40000, AppliesTo: domain.UnitTable},
			{ID: "booth", EventID: eventID, Name: "Booth", Color: "#9c27b0", Price: 120000, AppliesTo: domain.UnitBooth},
		},
	}

	for i := 1; i <= 20; i++ {
		layout.Units = append(layout.Units, domain.Unit{
			ID:         fmt.Sprintf("S%d", i),
			EventID:    eventID,
			Type:       domain.UnitSeat,
			CategoryID: "standard",
			Label:      fmt.Sprintf("Row %c Seat %d", 'A'+rune((i-1)/10), (i-1)%10+1),
			Capacity:   1,
			Position:   domain.Position{X: float64((i - 1) % 10), Y: float64((i - 1) / 10)},
			Status:     domain.UnitAvailable,
		})
	}

	for i := 1; i <= 5; i++ {
		layout.Units = append(layout.Units, domain.Unit{
			ID:         fmt.Sprintf("T%d", i),
			EventID:    eventID,
			Type:       domain.UnitTable,
			CategoryID: "table",
			Label:      fmt.Sprintf("Table %d", i),
			Capacity:   4,
			Position:   domain.Position{X: float64(i * 2), Y: 4},
			Status:     domain.UnitAvailable,
		})
	}

	for i := 1; i <= 2; i++ {
		layout.Units = append(layout.Units, domain.Unit{
			ID:         fmt.Sprintf("B%d", i),
			EventID:    eventID,
			Type:       domain.UnitBooth,
			CategoryID: "booth",
			Label:      fmt.Sprintf("Booth %d", i),
			Capacity:   8,
			Position:   domain.Position{X: float64(i * 5), Y: 7, Rotation: 90},
			Status:     domain.UnitAvailable,
		})
	}

	return layout, domain.PricingConfig{ServiceFee: 2000, TaxPercent: 5}
}
