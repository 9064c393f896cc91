package selection_test

import (
	"testing"
	"time"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	"github.com/kirinyoku/tix-checkout/internal/service/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pick(t *testing.T, s *selection.Set, layout domain.EventLayout, id string) domain.SelectionItem {
	t.Helper()

	u, ok := layout.Unit(id)
	require.True(t, ok)
	cat, ok := layout.Category(u.CategoryID)
	require.True(t, ok)

	it, err := s.Select(u, cat, time.Now())
	require.NoError(t, err)
	return it
}

func TestSelect_SnapshotsCategoryPrice(t *testing.T) {
	layout, _ := memory.DemoLayout(1)
	s := selection.New()

	it := pick(t, s, layout, "S12")

	assert.Equal(t, domain.SelectionItem{
		UnitID:     "S12",
		Type:       domain.UnitSeat,
		CategoryID: "standard",
		Price:      15000,
	}, it)

	// selecting again is idempotent
	pick(t, s, layout, "S12")
	assert.Equal(t, 1, s.Len())
}

func TestSelect_RejectsUnavailable(t *testing.T) {
	layout, _ := memory.DemoLayout(1)
	s := selection.New()

	u, _ := layout.Unit("S1")
	u.Status = domain.UnitBooked
	cat, _ := layout.Category(u.CategoryID)

	_, err := s.Select(u, cat, time.Now())
	assert.ErrorIs(t, err, selection.ErrNotAvailable)

	table, _ := layout.Category("table")
	u.Status = domain.UnitAvailable
	_, err = s.Select(u, table, time.Now())
	assert.ErrorIs(t, err, selection.ErrCategoryMismatch)
}

func TestDeselectAndRetract(t *testing.T) {
	layout, _ := memory.DemoLayout(1)
	s := selection.New()
	for _, id := range []string{"S1", "S2", "T3", "B1"} {
		pick(t, s, layout, id)
	}

	assert.True(t, s.Deselect("S2"))
	assert.False(t, s.Deselect("S2"))
	assert.Equal(t, []string{"S1", "T3", "B1"}, s.UnitIDs())

	assert.Equal(t, 1, s.Retract([]string{"T3", "T4"}))
	assert.Equal(t, []string{"S1", "B1"}, s.UnitIDs())
}

func TestPartition_TypeOrder(t *testing.T) {
	layout, _ := memory.DemoLayout(1)
	s := selection.New()
	for _, id := range []string{"B2", "T3", "S12", "S1"} {
		pick(t, s, layout, id)
	}

	groups := s.Partition()
	require.Len(t, groups, 3)
	assert.Equal(t, domain.UnitSeat, groups[0].Type)
	assert.Equal(t, []string{"S12", "S1"}, groups[0].UnitIDs())
	assert.Equal(t, domain.UnitTable, groups[1].Type)
	assert.Equal(t, domain.UnitBooth, groups[2].Type)
}

func TestFromItems(t *testing.T) {
	_, err := selection.FromItems([]domain.SelectionItem{
		{UnitID: "S1", Type: domain.UnitSeat},
		{UnitID: "S1", Type: domain.UnitSeat},
	})
	assert.ErrorIs(t, err, selection.ErrDuplicate)

	_, err = selection.FromItems([]domain.SelectionItem{{UnitID: "S1", Type: "sofa"}})
	assert.ErrorIs(t, err, selection.ErrInvalidItem)

	s, err := selection.FromItems([]domain.SelectionItem{
		{UnitID: "T1", Type: domain.UnitTable},
		{UnitID: "S1", Type: domain.UnitSeat},
	})
	require.NoError(t, err)
	assert.Len(t, s.Partition(), 2)
}
