package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
)

type UnitRepo struct {
	store *Store
	pool  *pgxpool.Pool
	db    DB
}

func (r *UnitRepo) With(db DB) *UnitRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UnitRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// inTx runs fn on the bound transaction, or opens a new one.
func (r *UnitRepo) inTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	if r.db != nil {
		return fn(ctx, r.db)
	}
	return r.store.RunTx(ctx, nil, fn)
}

const unitColumns = `id, event_id, unit_type, category_id, label, capacity,
	pos_x, pos_y, rotation, status, COALESCE(lock_holder, ''), booking_id, lock_expires_at`

func scanUnit(row pgx.Row) (domain.Unit, error) {
	var (
		u         domain.Unit
		unitType  string
		status    string
		bookingID pgtype.UUID
	)

	if err := row.Scan(
		&u.ID,
		&u.EventID,
		&unitType,
		&u.CategoryID,
		&u.Label,
		&u.Capacity,
		&u.Position.X,
		&u.Position.Y,
		&u.Position.Rotation,
		&status,
		&u.LockHolder,
		&bookingID,
		&u.LockExpiresAt,
	); err != nil {
		return domain.Unit{}, err
	}

	u.Type = domain.UnitType(unitType)
	u.Status = domain.UnitStatus(status)
	if bookingID.Valid {
		id := uuid.UUID(bookingID.Bytes)
		u.BookingID = &id
	}

	return u, nil
}

// lockRows selects the requested units FOR UPDATE in id order so that
// concurrent callers serialize per unit without deadlocking each other.
func lockRows(ctx context.Context, db DB, eventID int64, unitIDs []string) ([]domain.Unit, error) {
	rows, err := db.Query(ctx,
		`SELECT `+unitColumns+`
		 FROM units
		 WHERE event_id = $1 AND id = ANY($2)
		 ORDER BY id
		 FOR UPDATE`,
		eventID, unitIDs,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func missingIDs(requested []string, found []domain.Unit) []string {
	seen := make(map[string]struct{}, len(found))
	for _, u := range found {
		seen[u.ID] = struct{}{}
	}

	var out []string
	for _, id := range requested {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// LockUnits locks every requested unit for holder, or none of them.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - eventID: event owning the units.
//   - unitIDs: deduplicated unit ids to lock.
//   - holder: session identifier taking the lock.
//   - now: instant used to decide whether an existing lock has lapsed.
//   - expiresAt: expiry stamped on every lock.
//
// Returns:
//   - error: repository.ErrUnknownUnits if some ids do not exist for the event.
//   - error: repository.ErrUnitsUnavailable naming the units that are not lockable.
func (r *UnitRepo) LockUnits(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	now, expiresAt time.Time,
) error {
	const op = "postgres.UnitRepo.LockUnits"

	err := r.inTx(ctx, func(ctx context.Context, tx DB) error {
		units, err := lockRows(ctx, tx, eventID, unitIDs)
		if err != nil {
			return err
		}

		if missing := missingIDs(unitIDs, units); len(missing) > 0 {
			return repository.Unknown(missing)
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

		_, err = tx.Exec(ctx,
			`UPDATE units
			 SET status = 'locked', lock_holder = $3, booking_id = NULL, lock_expires_at = $4
			 WHERE event_id = $1 AND id = ANY($2)`,
			eventID, unitIDs, holder, expiresAt,
		)
		return err
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ReleaseUnits drops holder's locks that are not attached to a booking.
//
// Returns:
//   - int64: number of units returned to available.
func (r *UnitRepo) ReleaseUnits(ctx context.Context, eventID int64, unitIDs []string, holder string) (int64, error) {
	const op = "postgres.UnitRepo.ReleaseUnits"

	tag, err := r.handle().Exec(ctx,
		`UPDATE units
		 SET status = 'available', lock_holder = NULL, booking_id = NULL, lock_expires_at = NULL
		 WHERE event_id = $1
		 	AND id = ANY($2)
		 	AND status = 'locked'
		 	AND lock_holder = $3
		 	AND booking_id IS NULL`,
		eventID, unitIDs, holder,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// AttachBooking transfers holder's live locks on unitIDs to bookingID.
//
// Returns:
//   - error: repository.ErrUnitsNotLocked naming the units whose lock is
//     missing, expired, foreign or already attached. Nothing is changed then.
func (r *UnitRepo) AttachBooking(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	holder string,
	bookingID uuid.UUID,
	now, expiresAt time.Time,
) error {
	const op = "postgres.UnitRepo.AttachBooking"

	err := r.inTx(ctx, func(ctx context.Context, tx DB) error {
		units, err := lockRows(ctx, tx, eventID, unitIDs)
		if err != nil {
			return err
		}

		missing := missingIDs(unitIDs, units)
		for _, u := range units {
			if !u.HeldBy(holder, now) {
				missing = append(missing, u.ID)
			}
		}
		if len(missing) > 0 {
			return repository.NotLocked(missing)
		}

		_, err = tx.Exec(ctx,
			`UPDATE units
			 SET booking_id = $3, lock_expires_at = $4
			 WHERE event_id = $1 AND id = ANY($2)`,
			eventID, unitIDs, bookingID, expiresAt,
		)
		return err
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ReleaseBooking returns the units still locked for bookingID to available.
// Booked units are left alone.
func (r *UnitRepo) ReleaseBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	const op = "postgres.UnitRepo.ReleaseBooking"

	tag, err := r.handle().Exec(ctx,
		`UPDATE units
		 SET status = 'available', lock_holder = NULL, booking_id = NULL, lock_expires_at = NULL
		 WHERE booking_id = $1 AND status = 'locked'`,
		bookingID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// FinalizeBooking promotes the live locks owned by bookingID to booked.
func (r *UnitRepo) FinalizeBooking(ctx context.Context, bookingID uuid.UUID, now time.Time) (int64, error) {
	const op = "postgres.UnitRepo.FinalizeBooking"

	tag, err := r.handle().Exec(ctx,
		`UPDATE units
		 SET status = 'booked', lock_expires_at = NULL
		 WHERE booking_id = $1
		 	AND status = 'locked'
		 	AND lock_expires_at > $2`,
		bookingID, now,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// ExpireLocks returns every lapsed lock to available and reports the units
// it touched together with the booking that owned them, if any.
func (r *UnitRepo) ExpireLocks(ctx context.Context, now time.Time) ([]domain.ExpiredLock, error) {
	const op = "postgres.UnitRepo.ExpireLocks"

	rows, err := r.handle().Query(ctx,
		`WITH lapsed AS (
		 	SELECT event_id, id, booking_id
		 	FROM units
		 	WHERE status = 'locked' AND lock_expires_at <= $1
		 	FOR UPDATE SKIP LOCKED
		 )
		 UPDATE units u
		 SET status = 'available', lock_holder = NULL, booking_id = NULL, lock_expires_at = NULL
		 FROM lapsed
		 WHERE u.event_id = lapsed.event_id AND u.id = lapsed.id
		 RETURNING lapsed.event_id, lapsed.id, lapsed.booking_id`,
		now,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ExpiredLock
	for rows.Next() {
		var (
			el        domain.ExpiredLock
			bookingID pgtype.UUID
		)
		if err := rows.Scan(&el.EventID, &el.UnitID, &bookingID); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if bookingID.Valid {
			id := uuid.UUID(bookingID.Bytes)
			el.BookingID = &id
		}
		out = append(out, el)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// SetBlocked moves units between available and blocked, all or nothing.
//
// Returns:
//   - error: repository.ErrUnitsUnavailable naming units not in the source state.
func (r *UnitRepo) SetBlocked(
	ctx context.Context,
	eventID int64,
	unitIDs []string,
	blocked bool,
	now time.Time,
) error {
	const op = "postgres.UnitRepo.SetBlocked"

	from, to := domain.UnitAvailable, domain.UnitBlocked
	if !blocked {
		from, to = domain.UnitBlocked, domain.UnitAvailable
	}

	err := r.inTx(ctx, func(ctx context.Context, tx DB) error {
		units, err := lockRows(ctx, tx, eventID, unitIDs)
		if err != nil {
			return err
		}

		if missing := missingIDs(unitIDs, units); len(missing) > 0 {
			return repository.Unknown(missing)
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

		_, err = tx.Exec(ctx,
			`UPDATE units
			 SET status = $3, lock_holder = NULL, booking_id = NULL, lock_expires_at = NULL
			 WHERE event_id = $1 AND id = ANY($2)`,
			eventID, unitIDs, string(to),
		)
		return err
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListUnits lists all units of an event in id order.
func (r *UnitRepo) ListUnits(ctx context.Context, eventID int64) ([]domain.Unit, error) {
	const op = "postgres.UnitRepo.ListUnits"

	rows, err := r.handle().Query(ctx,
		`SELECT `+unitColumns+`
		 FROM units
		 WHERE event_id = $1
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
