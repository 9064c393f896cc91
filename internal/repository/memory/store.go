// Package memory is an in-process implementation of the inventory, booking
// and layout stores. Each event's units are guarded by their own mutex, so
// status transitions on one unit are totally ordered.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
)

type eventInventory struct {
	mu         sync.Mutex
	units      map[string]*domain.Unit
	order      []string
	categories []domain.Category
	pricing    domain.PricingConfig
}

type Store struct {
	mu     sync.RWMutex
	events map[int64]*eventInventory

	ownersMu sync.Mutex
	owners   map[uuid.UUID]int64

	bookingsMu sync.Mutex
	bookings   map[uuid.UUID]*domain.Booking
}

func New() *Store {
	return &Store{
		events:   make(map[int64]*eventInventory),
		owners:   make(map[uuid.UUID]int64),
		bookings: make(map[uuid.UUID]*domain.Booking),
	}
}

// Seed installs (or replaces) the layout and pricing of one event.
func (s *Store) Seed(layout domain.EventLayout, pricing domain.PricingConfig) error {
	const op = "memory.Store.Seed"

	cats := make(map[string]domain.Category, len(layout.Categories))
	for _, c := range layout.Categories {
		cats[c.ID] = c
	}

	inv := &eventInventory{
		units:      make(map[string]*domain.Unit, len(layout.Units)),
		categories: append([]domain.Category(nil), layout.Categories...),
		pricing:    pricing,
	}
	for _, u := range layout.Units {
		cat, ok := cats[u.CategoryID]
		if !ok {
			return fmt.Errorf("%s: unit %s references unknown category %s", op, u.ID, u.CategoryID)
		}
		if cat.AppliesTo != u.Type {
			return fmt.Errorf("%s: unit %s is a %s but category %s applies to %s", op, u.ID, u.Type, cat.ID, cat.AppliesTo)
		}
		if _, dup := inv.units[u.ID]; dup {
			return fmt.Errorf("%s: duplicate unit %s", op, u.ID)
		}

		cp := u
		cp.EventID = layout.EventID
		if cp.Status == "" {
			cp.Status = domain.UnitAvailable
		}
		inv.units[u.ID] = &cp
		inv.order = append(inv.order, u.ID)
	}

	s.mu.Lock()
	s.events[layout.EventID] = inv
	s.mu.Unlock()

	return nil
}

func (s *Store) event(eventID int64) (*eventInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return inv, nil
}

func (s *Store) eachEvent(fn func(eventID int64, inv *eventInventory)) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		inv, err := s.event(id)
		if err != nil {
			continue
		}
		fn(id, inv)
	}
}

func (inv *eventInventory) lookup(unitIDs []string) ([]*domain.Unit, error) {
	out := make([]*domain.Unit, 0, len(unitIDs))
	var unknown []string
	for _, id := range unitIDs {
		u, ok := inv.units[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, u)
	}
	if len(unknown) > 0 {
		return nil, repository.Unknown(unknown)
	}
	return out, nil
}

// locksFor reports whether any unit is still locked for bookingID.
func (inv *eventInventory) locksFor(bookingID uuid.UUID) bool {
	for _, u := range inv.units {
		if u.Status == domain.UnitLocked && u.BookingID != nil && *u.BookingID == bookingID {
			return true
		}
	}
	return false
}

func release(u *domain.Unit) {
	u.Status = domain.UnitAvailable
	u.LockHolder = ""
	u.BookingID = nil
	u.LockExpiresAt = nil
}

func (s *Store) LockUnits(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	now, expiresAt time.Time,
) error {
	inv, err := s.event(eventID)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	units, err := inv.lookup(unitIDs)
	if err != nil {
		return err
	}

	var conflicts []string
	for _, u := range units {
		if !u.Lockable(holder, now) {
			conflicts = append(conflicts, u.ID)
		}
	}
	if len(conflicts) > 0 {
		return repository.Unavailable(conflicts)
	}

	for _, u := range units {
		exp := expiresAt
		u.Status = domain.UnitLocked
		u.LockHolder = holder
		u.BookingID = nil
		u.LockExpiresAt = &exp
	}

	return nil
}

func (s *Store) ReleaseUnits(ctx context.Context, eventID int64, unitIDs []string, holder string) (int64, error) {
	inv, err := s.event(eventID)
	if err != nil {
		return 0, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	var released int64
	for _, id := range unitIDs {
		u, ok := inv.units[id]
		if !ok {
			continue
		}
		if u.Status == domain.UnitLocked && u.LockHolder == holder && u.BookingID == nil {
			release(u)
			released++
		}
	}

	return released, nil
}

func (s *Store) AttachBooking(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	bookingID uuid.UUID,
	now, expiresAt time.Time,
) error {
	inv, err := s.event(eventID)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	units, err := inv.lookup(unitIDs)
	if err != nil {
		return err
	}

	var missing []string
	for _, u := range units {
		if !u.HeldBy(holder, now) {
			missing = append(missing, u.ID)
		}
	}
	if len(missing) > 0 {
		return repository.NotLocked(missing)
	}

	for _, u := range units {
		id := bookingID
		exp := expiresAt
		u.BookingID = &id
		u.LockExpiresAt = &exp
	}

	s.ownersMu.Lock()
	s.owners[bookingID] = eventID
	s.ownersMu.Unlock()

	return nil
}

func (s *Store) ownerEvent(bookingID uuid.UUID) (*eventInventory, bool) {
	s.ownersMu.Lock()
	eventID, ok := s.owners[bookingID]
	s.ownersMu.Unlock()
	if !ok {
		return nil, false
	}

	inv, err := s.event(eventID)
	if err != nil {
		return nil, false
	}
	return inv, true
}

func (s *Store) ReleaseBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	inv, ok := s.ownerEvent(bookingID)
	if !ok {
		return 0, nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	var released int64
	for _, id := range inv.order {
		u := inv.units[id]
		if u.Status == domain.UnitLocked && u.BookingID != nil && *u.BookingID == bookingID {
			release(u)
			released++
		}
	}

	s.forget(bookingID)

	return released, nil
}

// forget drops the owner entry of a booking that no longer holds locks.
func (s *Store) forget(bookingID uuid.UUID) {
	s.ownersMu.Lock()
	delete(s.owners, bookingID)
	s.ownersMu.Unlock()
}

func (s *Store) FinalizeBooking(ctx context.Context, bookingID uuid.UUID, now time.Time) (int64, error) {
	inv, ok := s.ownerEvent(bookingID)
	if !ok {
		return 0, nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	var booked int64
	for _, id := range inv.order {
		u := inv.units[id]
		if u.BookingID == nil || *u.BookingID != bookingID {
			continue
		}
		if u.EffectiveStatus(now) != domain.UnitLocked {
			continue
		}
		u.Status = domain.UnitBooked
		u.LockExpiresAt = nil
		booked++
	}

	// units the booking did not get in time are left to the sweeper
	if !inv.locksFor(bookingID) {
		s.forget(bookingID)
	}

	return booked, nil
}

func (s *Store) ExpireLocks(ctx context.Context, now time.Time) ([]domain.ExpiredLock, error) {
	var out []domain.ExpiredLock

	s.eachEvent(func(eventID int64, inv *eventInventory) {
		inv.mu.Lock()
		defer inv.mu.Unlock()

		start := len(out)
		for _, id := range inv.order {
			u := inv.units[id]
			if u.Status != domain.UnitLocked || u.EffectiveStatus(now) != domain.UnitAvailable {
				continue
			}
			out = append(out, domain.ExpiredLock{EventID: eventID, UnitID: u.ID, BookingID: u.BookingID})
			release(u)
		}

		for _, l := range out[start:] {
			if l.BookingID != nil && !inv.locksFor(*l.BookingID) {
				s.forget(*l.BookingID)
			}
		}
	})

	return out, nil
}

func (s *Store) SetBlocked(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	blocked bool,
	now time.Time,
) error {
	inv, err := s.event(eventID)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	units, err := inv.lookup(unitIDs)
	if err != nil {
		return err
	}

	from, to := domain.UnitAvailable, domain.UnitBlocked
	if !blocked {
		from, to = domain.UnitBlocked, domain.UnitAvailable
	}

	var conflicts []string
	for _, u := range units {
		if u.EffectiveStatus(now) != from {
			conflicts = append(conflicts, u.ID)
		}
	}
	if len(conflicts) > 0 {
		return repository.Unavailable(conflicts)
	}

	for _, u := range units {
		release(u)
		u.Status = to
	}

	return nil
}

func (s *Store) ListUnits(ctx context.Context, eventID int64) ([]domain.Unit, error) {
	inv, err := s.event(eventID)
	if err != nil {
		return nil, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]domain.Unit, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, copyUnit(inv.units[id]))
	}

	return out, nil
}

func copyUnit(u *domain.Unit) domain.Unit {
	cp := *u
	if u.BookingID != nil {
		id := *u.BookingID
		cp.BookingID = &id
	}
	if u.LockExpiresAt != nil {
		t := *u.LockExpiresAt
		cp.LockExpiresAt = &t
	}
	return cp
}

func (s *Store) GetEventLayout(ctx context.Context, eventID int64) (*domain.EventLayout, error) {
	units, err := s.ListUnits(ctx, eventID)
	if err != nil {
		return nil, err
	}

	inv, err := s.event(eventID)
	if err != nil {
		return nil, err
	}

	return &domain.EventLayout{
		EventID:    eventID,
		Categories: append([]domain.Category(nil), inv.categories...),
		Units:      units,
	}, nil
}

func (s *Store) GetPricingConfig(ctx context.Context, eventID int64) (domain.PricingConfig, error) {
	inv, err := s.event(eventID)
	if err != nil {
		return domain.PricingConfig{}, err
	}
	return inv.pricing, nil
}

func (s *Store) Insert(ctx context.Context, b *domain.Booking) error {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	if _, ok := s.bookings[b.ID]; ok {
		return repository.ErrConflict
	}

	cp := *b
	cp.Items = append([]domain.BookingItem(nil), b.Items...)
	s.bookings[b.ID] = &cp

	return nil
}

func (s *Store) Get(ctx context.Context, ref domain.BookingRef) (*domain.Booking, error) {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b, ok := s.bookings[ref.ID]
	if !ok || b.Type != ref.Type {
		return nil, repository.ErrNotFound
	}

	cp := *b
	cp.Items = append([]domain.BookingItem(nil), b.Items...)
	return &cp, nil
}

func (s *Store) Delete(ctx context.Context, ref domain.BookingRef) error {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b, ok := s.bookings[ref.ID]
	if !ok || b.Type != ref.Type {
		return repository.ErrNotFound
	}
	delete(s.bookings, ref.ID)

	return nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, ref domain.BookingRef, status domain.PaymentStatus) error {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b, ok := s.bookings[ref.ID]
	if !ok || b.Type != ref.Type {
		return repository.ErrNotFound
	}
	b.PaymentStatus = status

	return nil
}

func (s *Store) ExpirePending(ctx context.Context, ids []uuid.UUID) (int64, error) {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	var n int64
	for _, id := range ids {
		b, ok := s.bookings[id]
		if ok && b.PaymentStatus == domain.PaymentPending {
			b.PaymentStatus = domain.PaymentExpired
			n++
		}
	}

	return n, nil
}

// BookingCount reports how many booking records exist.
func (s *Store) BookingCount() int {
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()
	return len(s.bookings)
}

// OwnerCount reports how many bookings still own locked units.
func (s *Store) OwnerCount() int {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	return len(s.owners)
}
