package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tix-checkout/internal/auth"
	"github.com/kirinyoku/tix-checkout/internal/config"
	"github.com/kirinyoku/tix-checkout/internal/events"
	"github.com/kirinyoku/tix-checkout/internal/payment"
	"github.com/kirinyoku/tix-checkout/internal/redis"
	redisrepo "github.com/kirinyoku/tix-checkout/internal/repository/redis"
	"github.com/kirinyoku/tix-checkout/internal/scheduler"
	"github.com/kirinyoku/tix-checkout/internal/service"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/kirinyoku/tix-checkout/internal/service/checkout"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/ports"
	httpgin "github.com/kirinyoku/tix-checkout/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sweeper    *scheduler.Scheduler
	pubsub     *redisrepo.InventoryPubSub
	hub        *httpgin.Hub
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, hub: httpgin.NewHub()}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(st.close)

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	if rdb == nil {
		logger.Warn("redis disabled: no layout cache, rate limit, idempotency or cross-instance fan-out")
	} else {
		a.onClose(rdb.Close)
	}

	cache := redisrepo.New(rdb)

	deps := service.Deps{
		Units:    st.units,
		Bookings: st.bookings,
		Layouts:  st.layouts,
		Payments: newPaymentGateway(cfg.Payment, logger),
		Cache:    cache,
		Logger:   logger,
		Notifier: a.hub,
	}

	if rdb != nil {
		a.pubsub = redisrepo.NewInventoryPubSub(rdb)
		deps.Notifier = redisrepo.NewNotifier(cache, a.pubsub, logger)
	}

	if cfg.AMQP.URL != "" {
		pub := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err := pub.Connect(); err != nil {
			// redialled on the next publish
			logger.Warn("amqp broker unavailable at startup", "error", err)
		}
		deps.Publisher = pub
		a.onClose(pub.Close)
	}

	svcs := service.NewServices(deps, service.Config{
		Lock: lock.Config{
			MinLockTTL:     cfg.Reservation.MinLockTTL,
			MaxLockTTL:     cfg.Reservation.MaxLockTTL,
			DefaultLockTTL: cfg.Reservation.DefaultLockTTL,
		},
		Booking: booking.Config{PaymentTTL: cfg.Reservation.PaymentTTL},
		Checkout: checkout.Config{
			Currency: cfg.Payment.Currency,
			LockTTL:  cfg.Reservation.DefaultLockTTL,
		},
	})

	a.sweeper = scheduler.New(svcs.Bookings, cfg.Reservation.SweepInterval, logger)

	router := httpgin.NewRouter(routerDeps(svcs, rdb, cfg, a.hub, logger))

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// routerDeps leaves the Redis-backed features unset when Redis is disabled.
func routerDeps(svcs *service.Services, rdb *goredis.Client, cfg *config.Config, hub *httpgin.Hub, logger *slog.Logger) httpgin.Deps {
	d := httpgin.Deps{
		Services: svcs,
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Hub:      hub,
		Logger:   logger,
	}

	if rdb != nil {
		d.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "locks", cfg.RateLimit.Locks, cfg.RateLimit.Window)
		d.Idempotency = redisrepo.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	}

	return d
}

func newPaymentGateway(cfg config.PaymentConfig, logger *slog.Logger) ports.PaymentGateway {
	if cfg.GatewayURL == "" {
		logger.Warn("payment gateway url not set, using sandbox", "base_url", cfg.SandboxURL)
		return payment.NewSandbox(cfg.SandboxURL, logger)
	}

	return payment.NewClient(payment.Config{
		BaseURL:  cfg.GatewayURL,
		APIKey:   cfg.APIKey,
		Currency: cfg.Currency,
		Timeout:  cfg.Timeout,
	})
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("failed to close resources", "error", err)
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Lock expiry sweeper
	g.Go(func() error {
		return a.sweeper.Start(gCtx)
	})

	// Inventory changes from every instance feed the local SSE streams
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, a.hub.InventoryChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("inventory subscription ended: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
