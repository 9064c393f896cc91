// Package selection holds a customer's provisional choice of units. A Set
// carries no authority over inventory: every unit in it is re-checked
// against the store when it is locked.
package selection

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-checkout/internal/domain"
)

var (
	ErrNotAvailable     = errors.New("unit is not available")
	ErrCategoryMismatch = errors.New("unit category does not apply to its type")
	ErrDuplicate        = errors.New("unit selected twice")
	ErrInvalidItem      = errors.New("invalid selection item")
)

// Set is an ordered, duplicate-free list of selection items. It is not
// safe for concurrent use; each session owns its own.
type Set struct {
	items []domain.SelectionItem
	index map[string]int
}

func New() *Set {
	return &Set{index: make(map[string]int)}
}

// FromItems builds a Set from a submitted list, rejecting duplicates and
// items without a unit id or a known type.
func FromItems(items []domain.SelectionItem) (*Set, error) {
	s := New()
	for _, it := range items {
		if it.UnitID == "" || !it.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidItem, it.UnitID)
		}
		if s.Contains(it.UnitID) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, it.UnitID)
		}
		s.add(it)
	}
	return s, nil
}

// Select adds an available unit with its category price as the snapshot.
// Selecting a unit already in the set returns the existing item.
func (s *Set) Select(u domain.Unit, cat domain.Category, now time.Time) (domain.SelectionItem, error) {
	if i, ok := s.index[u.ID]; ok {
		return s.items[i], nil
	}

	if u.EffectiveStatus(now) != domain.UnitAvailable {
		return domain.SelectionItem{}, fmt.Errorf("%w: %s", ErrNotAvailable, u.ID)
	}

	if cat.ID != u.CategoryID || cat.AppliesTo != u.Type {
		return domain.SelectionItem{}, fmt.Errorf("%w: %s", ErrCategoryMismatch, u.ID)
	}

	it := domain.SelectionItem{
		UnitID:     u.ID,
		Type:       u.Type,
		CategoryID: cat.ID,
		Price:      cat.Price,
	}
	s.add(it)

	return it, nil
}

// Deselect removes a unit and reports whether it was present.
func (s *Set) Deselect(unitID string) bool {
	i, ok := s.index[unitID]
	if !ok {
		return false
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()

	return true
}

// Retract drops every listed unit, typically the ids named by a lock
// conflict, and returns how many were removed.
func (s *Set) Retract(unitIDs []string) int {
	n := 0
	for _, id := range unitIDs {
		if s.Deselect(id) {
			n++
		}
	}
	return n
}

func (s *Set) Contains(unitID string) bool {
	_, ok := s.index[unitID]
	return ok
}

func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the items in selection order.
func (s *Set) Items() []domain.SelectionItem {
	return append([]domain.SelectionItem(nil), s.items...)
}

// UnitIDs lists the selected unit ids in selection order.
func (s *Set) UnitIDs() []string {
	ids := make([]string, 0, len(s.items))
	for _, it := range s.items {
		ids = append(ids, it.UnitID)
	}
	return ids
}

// Group is the part of a selection that shares one unit type.
type Group struct {
	Type  domain.UnitType
	Items []domain.SelectionItem
}

func (g Group) UnitIDs() []string {
	ids := make([]string, 0, len(g.Items))
	for _, it := range g.Items {
		ids = append(ids, it.UnitID)
	}
	return ids
}

// Partition splits the selection by unit type. Groups come in seat, table,
// booth order and empty groups are omitted.
func (s *Set) Partition() []Group {
	byType := make(map[domain.UnitType][]domain.SelectionItem, len(domain.UnitTypes))
	for _, it := range s.items {
		byType[it.Type] = append(byType[it.Type], it)
	}

	groups := make([]Group, 0, len(byType))
	for _, t := range domain.UnitTypes {
		if items := byType[t]; len(items) > 0 {
			groups = append(groups, Group{Type: t, Items: items})
		}
	}

	return groups
}

func (s *Set) add(it domain.SelectionItem) {
	s.index[it.UnitID] = len(s.items)
	s.items = append(s.items, it)
}

func (s *Set) reindex() {
	clear(s.index)
	for i, it := range s.items {
		s.index[it.UnitID] = i
	}
}
