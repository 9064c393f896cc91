package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
)

type Config struct {
	MinLockTTL     time.Duration
	MaxLockTTL     time.Duration
	DefaultLockTTL time.Duration
}

// Service is the single authority over unit availability. Every status
// change of a unit goes through it.
type Service struct {
	units    ports.UnitStore
	notifier ports.InventoryNotifier
	logger   *slog.Logger
	now      ports.Clock
	cfg      Config
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now ports.Clock) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n ports.InventoryNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(units ports.UnitStore, cfg Config, opts ...Option) *Service {
	if cfg.MinLockTTL <= 0 {
		cfg.MinLockTTL = 15 * time.Second
	}

	if cfg.MaxLockTTL <= 0 || cfg.MaxLockTTL < cfg.MinLockTTL {
		cfg.MaxLockTTL = 15 * time.Minute
	}

	if cfg.DefaultLockTTL <= 0 {
		cfg.DefaultLockTTL = 10 * time.Minute
	}

	s := &Service{
		units:  units,
		logger: slog.Default(),
		now:    time.Now,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now is the clock the service decides lock expiry against.
func (s *Service) Now() time.Time {
	return s.now()
}

// TryLock atomically locks every requested unit for holder, or none.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: event the units belong to.
//   - unitIDs: units to lock; duplicates are ignored.
//   - holder: session or customer identity taking the lock.
//   - ttl: requested lock lifetime; zero selects the default, other values
//     are clamped to the configured bounds.
//
// Returns:
//   - domain.LockResult: the locked ids and their common expiry.
//   - error: ConflictError naming units that are held, booked or blocked.
//   - error: UnknownUnitsError naming units that do not exist.
func (s *Service) TryLock(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	ttl time.Duration,
) (domain.LockResult, error) {
	const op = "service.lock.TryLock"

	ids, err := s.validate(unitIDs, holder)
	if err != nil {
		return domain.LockResult{}, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now()
	expiresAt := now.Add(s.clampTTL(ttl))

	if err := s.units.LockUnits(ctx, eventID, ids, holder, now, expiresAt); err != nil {
		return domain.LockResult{}, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	s.changed(ctx, eventID)

	return domain.LockResult{
		EventID:   eventID,
		UnitIDs:   ids,
		ExpiresAt: expiresAt,
	}, nil
}

// Release drops holder's locks on the given units. Units held by somebody
// else, or already attached to a booking, are left alone. Releasing nothing
// is not an error.
func (s *Service) Release(ctx context.Context, eventID int64, unitIDs []string, holder string) (int64, error) {
	const op = "service.lock.Release"

	ids, err := s.validate(unitIDs, holder)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	n, err := s.units.ReleaseUnits(ctx, eventID, ids, holder)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	if n > 0 {
		s.changed(ctx, eventID)
	}

	return n, nil
}

// Transfer hands holder's live locks over to a booking and extends them to
// ttl from now. It fails with NotLockedError when any unit's lock lapsed.
func (s *Service) Transfer(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	bookingID uuid.UUID,
	ttl time.Duration,
) (time.Time, error) {
	const op = "service.lock.Transfer"

	ids, err := s.validate(unitIDs, holder)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	if err := s.units.AttachBooking(ctx, eventID, ids, holder, bookingID, now, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	return expiresAt, nil
}

// ReleaseBooking returns the units still locked for bookingID to available.
func (s *Service) ReleaseBooking(ctx context.Context, eventID int64, bookingID uuid.UUID) (int64, error) {
	const op = "service.lock.ReleaseBooking"

	n, err := s.units.ReleaseBooking(ctx, bookingID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	if n > 0 {
		s.changed(ctx, eventID)
	}

	return n, nil
}

// Finalize marks the units of a paid booking as booked. Units whose lock
// lapsed before payment landed are not promoted.
func (s *Service) Finalize(ctx context.Context, eventID int64, bookingID uuid.UUID) (int64, error) {
	const op = "service.lock.Finalize"

	n, err := s.units.FinalizeBooking(ctx, bookingID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	if n > 0 {
		s.changed(ctx, eventID)
	}

	return n, nil
}

// Block takes available units out of sale.
func (s *Service) Block(ctx context.Context, eventID int64, unitIDs []string) error {
	return s.setBlocked(ctx, "service.lock.Block", eventID, unitIDs, true)
}

// Unblock puts blocked units back on sale.
func (s *Service) Unblock(ctx context.Context, eventID int64, unitIDs []string) error {
	return s.setBlocked(ctx, "service.lock.Unblock", eventID, unitIDs, false)
}

func (s *Service) setBlocked(ctx context.Context, op string, eventID int64, unitIDs []string, blocked bool) error {
	ids := dedup(unitIDs)
	if len(ids) == 0 {
		return fmt.Errorf("%s:%w", op, ErrEmptyRequest)
	}

	if err := s.units.SetBlocked(ctx, eventID, ids, blocked, s.now()); err != nil {
		return fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	s.changed(ctx, eventID)

	return nil
}

// Expire persists every lapsed lock back to available and reports what it
// released. Lapsed locks already read as available before this runs.
func (s *Service) Expire(ctx context.Context) ([]domain.ExpiredLock, error) {
	const op = "service.lock.Expire"

	expired, err := s.units.ExpireLocks(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seen := make(map[int64]struct{})
	for _, l := range expired {
		if _, ok := seen[l.EventID]; ok {
			continue
		}
		seen[l.EventID] = struct{}{}
		s.changed(ctx, l.EventID)
	}

	return expired, nil
}

// Status reports the effective status of every unit of an event.
func (s *Service) Status(ctx context.Context, eventID int64) (map[string]domain.UnitStatus, error) {
	const op = "service.lock.Status"

	units, err := s.units.ListUnits(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	now := s.now()
	out := make(map[string]domain.UnitStatus, len(units))
	for _, u := range units {
		out[u.ID] = u.EffectiveStatus(now)
	}

	return out, nil
}

// Held reports which of unitIDs holder currently has a live lock on that is
// not attached to a booking.
func (s *Service) Held(ctx context.Context, eventID int64, unitIDs []string, holder string) (map[string]struct{}, error) {
	const op = "service.lock.Held"

	units, err := s.units.ListUnits(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapStoreErr(err))
	}

	want := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		want[id] = struct{}{}
	}

	now := s.now()
	out := make(map[string]struct{})
	for _, u := range units {
		if _, ok := want[u.ID]; ok && u.HeldBy(holder, now) {
			out[u.ID] = struct{}{}
		}
	}

	return out, nil
}

func (s *Service) validate(unitIDs []string, holder string) ([]string, error) {
	if holder == "" {
		return nil, ErrNoHolder
	}

	ids := dedup(unitIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyRequest
	}

	return ids, nil
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = s.cfg.DefaultLockTTL
	}

	if ttl < s.cfg.MinLockTTL {
		return s.cfg.MinLockTTL
	}

	if ttl > s.cfg.MaxLockTTL {
		return s.cfg.MaxLockTTL
	}

	return ttl
}

func (s *Service) changed(ctx context.Context, eventID int64) {
	if s.notifier != nil {
		s.notifier.InventoryChanged(ctx, eventID)
	}
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mapStoreErr(err error) error {
	ids := repository.UnitIDsOf(err)

	switch {
	case errors.Is(err, repository.ErrUnitsUnavailable):
		return ConflictError{UnitIDs: ids}
	case errors.Is(err, repository.ErrUnknownUnits):
		return UnknownUnitsError{UnitIDs: ids}
	case errors.Is(err, repository.ErrUnitsNotLocked):
		return NotLockedError{UnitIDs: ids}
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	default:
		return err
	}
}
