package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirinyoku/tix-checkout/internal/config"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/postgres"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-checkout/internal/repository/postgres"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
)

// seedFile is the JSON document STORE_SEED_FILE points at.
type seedFile struct {
	Title   string               `json:"title"`
	Layout  domain.EventLayout   `json:"layout"`
	Pricing domain.PricingConfig `json:"pricing"`
}

type stores struct {
	units    ports.UnitStore
	bookings ports.BookingStore
	layouts  ports.LayoutProvider
	close    func() error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stores, error) {
	var seed *seedFile
	if cfg.Store.SeedFile != "" {
		s, err := readSeed(cfg.Store.SeedFile)
		if err != nil {
			return stores{}, err
		}
		seed = s
	}

	if cfg.Store.Driver == config.StoreMemory {
		return openMemory(seed, cfg.Store.DemoEventID, logger)
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
		Migrate:  cfg.Postgres.Migrate,
	})
	if err != nil {
		return stores{}, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	store := postgresrepo.NewStore(pool)
	if seed != nil {
		if err := store.SeedEvent(ctx, seed.Title, seed.Layout, seed.Pricing); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("failed to seed event %d: %w", seed.Layout.EventID, err)
		}
		logger.Info("event seeded", "event_id", seed.Layout.EventID, "units", len(seed.Layout.Units))
	}

	return stores{
		units:    store.Units(),
		bookings: store.Bookings(),
		layouts:  store.Layouts(),
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// openMemory serves one event from process memory, the demo venue unless a
// seed file is given. State is lost on restart.
func openMemory(seed *seedFile, demoEventID int64, logger *slog.Logger) (stores, error) {
	layout, pricing := memory.DemoLayout(demoEventID)
	if seed != nil {
		layout, pricing = seed.Layout, seed.Pricing
	}

	store := memory.New()
	if err := store.Seed(layout, pricing); err != nil {
		return stores{}, fmt.Errorf("failed to seed memory store: %w", err)
	}

	logger.Warn("using in-memory store", "event_id", layout.EventID, "units", len(layout.Units))

	return stores{
		units:    store,
		bookings: store,
		layouts:  store,
		close:    func() error { return nil },
	}, nil
}

func readSeed(path string) (*seedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var s seedFile
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	if s.Layout.EventID <= 0 {
		return nil, fmt.Errorf("seed file %s: layout.event_id is required", path)
	}

	return &s, nil
}
