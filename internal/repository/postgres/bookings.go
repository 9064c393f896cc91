package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
)

// bookingTable describes the typed table backing one booking variant and
// its variant-specific column.
type bookingTable struct {
	name   string
	column string
	value  func(b *domain.Booking) any
	scan   func(b *domain.Booking) any
}

var bookingTables = map[domain.UnitType]bookingTable{
	domain.UnitSeat: {
		name:   "seat_bookings",
		column: "seat_labels",
		value: func(b *domain.Booking) any {
			if b.Seat == nil {
				return []string{}
			}
			return b.Seat.SeatLabels
		},
		scan: func(b *domain.Booking) any {
			b.Seat = &domain.SeatDetails{}
			return &b.Seat.SeatLabels
		},
	},
	domain.UnitTable: {
		name:   "table_bookings",
		column: "guest_count",
		value: func(b *domain.Booking) any {
			if b.Table == nil {
				return 0
			}
			return b.Table.GuestCount
		},
		scan: func(b *domain.Booking) any {
			b.Table = &domain.TableDetails{}
			return &b.Table.GuestCount
		},
	},
	domain.UnitBooth: {
		name:   "booth_bookings",
		column: "capacity",
		value: func(b *domain.Booking) any {
			if b.Booth == nil {
				return 0
			}
			return b.Booth.Capacity
		},
		scan: func(b *domain.Booking) any {
			b.Booth = &domain.BoothDetails{}
			return &b.Booth.Capacity
		},
	},
}

func tableFor(t domain.UnitType) (bookingTable, error) {
	bt, ok := bookingTables[t]
	if !ok {
		return bookingTable{}, fmt.Errorf("unknown booking type %q", t)
	}
	return bt, nil
}

type BookingRepo struct {
	store *Store
	pool  *pgxpool.Pool
	db    DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *BookingRepo) inTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	if r.db != nil {
		return fn(ctx, r.db)
	}
	return r.store.RunTx(ctx, nil, fn)
}

// Insert persists a typed booking record together with its unit lines.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - b: booking to persist; b.Type selects the typed table.
//
// Returns:
//   - error: repository.ErrConflict if a booking with the same id exists.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	bt, err := tableFor(b.Type)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = r.inTx(ctx, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+bt.name+`(id, event_id, customer_id, customer_name, customer_email,
			 	customer_phone, payment_status, total_amount, created_at, lock_expires_at, `+bt.column+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			b.ID, b.EventID, b.CustomerID, b.Customer.Name, b.Customer.Email,
			b.Customer.Phone, string(b.PaymentStatus), int64(b.TotalAmount), b.CreatedAt,
			b.LockExpiresAt, bt.value(b),
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, it := range b.Items {
			batch.Queue(
				`INSERT INTO booking_units(booking_id, booking_type, position, event_id,
				 	unit_id, category_id, label, price, capacity)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				b.ID, string(b.Type), i, b.EventID, it.UnitID, it.CategoryID,
				it.Label, int64(it.Price), it.Capacity,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get loads a booking with its unit lines.
//
// Returns:
//   - error: repository.ErrNotFound if no booking of that type has the id.
func (r *BookingRepo) Get(ctx context.Context, ref domain.BookingRef) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	bt, err := tableFor(ref.Type)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	db := r.handle()

	b := domain.Booking{Type: ref.Type}
	var (
		status string
		total  int64
	)
	err = db.QueryRow(ctx,
		`SELECT id, event_id, customer_id, customer_name, customer_email, customer_phone,
		 	payment_status, total_amount, created_at, lock_expires_at, `+bt.column+`
		 FROM `+bt.name+`
		 WHERE id = $1`,
		ref.ID,
	).Scan(
		&b.ID,
		&b.EventID,
		&b.CustomerID,
		&b.Customer.Name,
		&b.Customer.Email,
		&b.Customer.Phone,
		&status,
		&total,
		&b.CreatedAt,
		&b.LockExpiresAt,
		bt.scan(&b),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	b.PaymentStatus = domain.PaymentStatus(status)
	b.TotalAmount = domain.Money(total)

	rows, err := db.Query(ctx,
		`SELECT unit_id, category_id, label, price, capacity
		 FROM booking_units
		 WHERE booking_id = $1
		 ORDER BY position`,
		ref.ID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var (
			it    domain.BookingItem
			price int64
		)
		if err := rows.Scan(&it.UnitID, &it.CategoryID, &it.Label, &price, &it.Capacity); err != nil {
			return nil, wrapDBErr(op, err)
		}
		it.Price = domain.Money(price)
		b.Items = append(b.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// Delete removes a booking record and its unit lines.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Delete(ctx context.Context, ref domain.BookingRef) error {
	const op = "postgres.BookingRepo.Delete"

	bt, err := tableFor(ref.Type)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = r.inTx(ctx, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx, `DELETE FROM booking_units WHERE booking_id = $1`, ref.ID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM `+bt.name+` WHERE id = $1`, ref.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) UpdatePaymentStatus(ctx context.Context, ref domain.BookingRef, status domain.PaymentStatus) error {
	const op = "postgres.BookingRepo.UpdatePaymentStatus"

	bt, err := tableFor(ref.Type)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE `+bt.name+` SET payment_status = $2 WHERE id = $1`,
		ref.ID, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ExpirePending marks pending bookings among ids as expired, whichever
// typed table holds them.
func (r *BookingRepo) ExpirePending(ctx context.Context, ids []uuid.UUID) (int64, error) {
	const op = "postgres.BookingRepo.ExpirePending"

	if len(ids) == 0 {
		return 0, nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	var expired int64
	err := r.inTx(ctx, func(ctx context.Context, tx DB) error {
		expired = 0
		for _, t := range domain.UnitTypes {
			tag, err := tx.Exec(ctx,
				`UPDATE `+bookingTables[t].name+`
				 SET payment_status = 'expired'
				 WHERE id = ANY($1::uuid[]) AND payment_status = 'pending'`,
				strIDs,
			)
			if err != nil {
				return err
			}
			expired += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return expired, nil
}
