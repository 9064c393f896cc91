package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
)

// LayoutRepo reads the event layout written by the venue authoring tools.
type LayoutRepo struct {
	pool *pgxpool.Pool
}

// GetEventLayout retrieves categories and units of an event.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - eventID: unique identifier of the event.
//
// Returns:
//   - *domain.EventLayout: the layout with stored unit statuses.
//   - error: repository.ErrNotFound if the event does not exist.
func (r *LayoutRepo) GetEventLayout(ctx context.Context, eventID int64) (*domain.EventLayout, error) {
	const op = "postgres.LayoutRepo.GetEventLayout"

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
		eventID,
	).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, name, color, price, applies_to
		 FROM categories
		 WHERE event_id = $1
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	layout := &domain.EventLayout{EventID: eventID}
	for rows.Next() {
		var (
			c         domain.Category
			price     int64
			appliesTo string
		)
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Color, &price, &appliesTo); err != nil {
			return nil, wrapDBErr(op, err)
		}
		c.Price = domain.Money(price)
		c.AppliesTo = domain.UnitType(appliesTo)
		layout.Categories = append(layout.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	units, err := (&UnitRepo{pool: r.pool}).ListUnits(ctx, eventID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	layout.Units = units

	return layout, nil
}

// GetPricingConfig retrieves the service fee and tax percentage of an event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *LayoutRepo) GetPricingConfig(ctx context.Context, eventID int64) (domain.PricingConfig, error) {
	const op = "postgres.LayoutRepo.GetPricingConfig"

	var (
		cfg domain.PricingConfig
		fee int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT service_fee, tax_percent FROM events WHERE id = $1`,
		eventID,
	).Scan(&fee, &cfg.TaxPercent)
	if err != nil {
		return domain.PricingConfig{}, wrapDBErr(op, err)
	}

	cfg.ServiceFee = domain.Money(fee)

	return cfg, nil
}
