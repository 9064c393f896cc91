package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// SeedEvent upserts an event with its categories and units. Existing unit
// statuses are left untouched so reseeding never frees a locked unit.
//
// Parameters:
//   - ctx: request-scoped context.
//   - title: event title.
//   - layout: categories and units; layout.EventID is the event id.
//   - pricing: service fee and tax percentage.
//
// Returns:
//   - error: repository.ErrConflict on constraint violations.
func (s *Store) SeedEvent(
	ctx context.Context,
	title string,
	layout domain.EventLayout,
	pricing domain.PricingConfig,
) error {
	const op = "postgres.Store.SeedEvent"

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO events(id, title, service_fee, tax_percent)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE
			 SET title = EXCLUDED.title,
			 	service_fee = EXCLUDED.service_fee,
			 	tax_percent = EXCLUDED.tax_percent`,
			layout.EventID, title, int64(pricing.ServiceFee), pricing.TaxPercent,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, c := range layout.Categories {
			batch.Queue(
				`INSERT INTO categories(event_id, id, name, color, price, applies_to)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (event_id, id) DO UPDATE
				 SET name = EXCLUDED.name, color = EXCLUDED.color, price = EXCLUDED.price`,
				layout.EventID, c.ID, c.Name, c.Color, int64(c.Price), string(c.AppliesTo),
			)
		}
		for _, u := range layout.Units {
			batch.Queue(
				`INSERT INTO units(event_id, id, unit_type, category_id, label, capacity, pos_x, pos_y, rotation)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (event_id, id) DO NOTHING`,
				layout.EventID, u.ID, string(u.Type), u.CategoryID, u.Label, u.Capacity,
				u.Position.X, u.Position.Y, u.Position.Rotation,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
