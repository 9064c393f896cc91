package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/repository"
	redisrepo "github.com/kirinyoku/tix-checkout/internal/repository/redis"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
)

type Config struct {
	LayoutTTL  time.Duration
	PricingTTL time.Duration
}

// Service is a read-through cache in front of the layout provider. Cached
// layouts may carry locks that lapsed since they were stored, so every
// read re-derives unit status against the clock.
type Service struct {
	layouts ports.LayoutProvider
	cache   *redisrepo.Cache
	now     ports.Clock
	cfg     Config
}

func New(layouts ports.LayoutProvider, cache *redisrepo.Cache, now ports.Clock, cfg Config) *Service {
	if cfg.LayoutTTL <= 0 {
		cfg.LayoutTTL = 15 * time.Second
	}

	if cfg.PricingTTL <= 0 {
		cfg.PricingTTL = 60 * time.Second
	}

	if now == nil {
		now = time.Now
	}

	return &Service{
		layouts: layouts,
		cache:   cache,
		now:     now,
		cfg:     cfg,
	}
}

// GetEventLayout returns the categories and units of an event with their
// effective status.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: ID of the event.
//
// Returns:
//   - *domain.EventLayout: the layout; callers may modify it.
//   - error: query.ErrEventNotFound if the event does not exist.
func (s *Service) GetEventLayout(ctx context.Context, eventID int64) (*domain.EventLayout, error) {
	const op = "service.query.GetEventLayout"

	layout, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventLayout(eventID),
		s.cfg.LayoutTTL,
		func(ctx context.Context) (domain.EventLayout, error) {
			l, err := s.layouts.GetEventLayout(ctx, eventID)
			if err != nil {
				return domain.EventLayout{}, notFound(err)
			}

			return *l, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now()
	units := make([]domain.Unit, len(layout.Units))
	for i, u := range layout.Units {
		if st := u.EffectiveStatus(now); st != u.Status {
			u.Status = st
			u.LockExpiresAt = nil
		}
		units[i] = u
	}

	return &domain.EventLayout{
		EventID:    layout.EventID,
		Categories: append([]domain.Category(nil), layout.Categories...),
		Units:      units,
	}, nil
}

// GetPricingConfig returns the fee and tax settings of an event.
func (s *Service) GetPricingConfig(ctx context.Context, eventID int64) (domain.PricingConfig, error) {
	const op = "service.query.GetPricingConfig"

	cfg, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventPricing(eventID),
		s.cfg.PricingTTL,
		func(ctx context.Context) (domain.PricingConfig, error) {
			c, err := s.layouts.GetPricingConfig(ctx, eventID)
			if err != nil {
				return domain.PricingConfig{}, notFound(err)
			}

			return c, nil
		},
	)
	if err != nil {
		return domain.PricingConfig{}, fmt.Errorf("%s:%w", op, err)
	}

	return cfg, nil
}

// Availability counts an event's units by type and effective status.
func (s *Service) Availability(ctx context.Context, eventID int64) (map[domain.UnitType]map[domain.UnitStatus]int, error) {
	const op = "service.query.Availability"

	layout, err := s.GetEventLayout(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make(map[domain.UnitType]map[domain.UnitStatus]int)
	for _, u := range layout.Units {
		if out[u.Type] == nil {
			out[u.Type] = map[domain.UnitStatus]int{
				domain.UnitAvailable: 0,
				domain.UnitLocked:    0,
				domain.UnitBooked:    0,
				domain.UnitBlocked:   0,
			}
		}
		out[u.Type][u.Status]++
	}

	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w:%w", ErrEventNotFound, err)
	}
	return err
}
