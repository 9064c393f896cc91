package httpgin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/auth"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	redisrepo "github.com/kirinyoku/tix-checkout/internal/repository/redis"
	"github.com/kirinyoku/tix-checkout/internal/service"
	"github.com/kirinyoku/tix-checkout/internal/service/checkout"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const idemLockTTL = 60 * time.Second

type rateLimiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type idempotencyStore interface {
	Acquire(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload []byte) error
	Result(ctx context.Context, key string) ([]byte, bool, error)
	Release(ctx context.Context, key string) error
}

// Deps holds what the router needs besides the services. Limiter and
// Idempotency are optional; leave them nil to disable the feature.
type Deps struct {
	Services    *service.Services
	Verifier    tokenVerifier
	Limiter     rateLimiter
	Idempotency idempotencyStore
	Hub         *Hub
	Logger      *slog.Logger
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	hub := d.Hub
	if hub == nil {
		hub = NewHub()
	}
	svcs := d.Services

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/events/:id/layout", handleGetLayout(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))
	r.GET("/events/:id/stream", handleStream(svcs, hub))
	r.POST("/events/:id/price", handlePrice(svcs))

	// Customer API
	authed := r.Group("/", AuthMiddleware(d.Verifier))
	{
		authed.POST("/events/:id/locks", handleLock(svcs, d.Limiter))
		authed.DELETE("/events/:id/locks", handleRelease(svcs))
		authed.POST("/events/:id/checkout", handleCheckout(svcs, d.Idempotency))
		authed.GET("/bookings/:type/:id", handleGetBooking(svcs))
		authed.DELETE("/bookings/:type/:id", handleCancelBooking(svcs))
	}

	payments := r.Group("/payments", AuthMiddleware(d.Verifier), RequireRole(auth.RoleGateway, auth.RoleAdmin))
	payments.POST("/confirm", handleConfirmPayment(svcs))

	admin := r.Group("/admin", AuthMiddleware(d.Verifier), RequireRole(auth.RoleAdmin))
	{
		admin.POST("/events/:id/units/block", handleSetBlocked(svcs, true))
		admin.POST("/events/:id/units/unblock", handleSetBlocked(svcs, false))
	}

	return r
}

// @Summary  Get event layout
// @Description Categories and units with their status as of now.
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventLayout
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/layout [get]
func handleGetLayout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		l, err := svcs.Query.GetEventLayout(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, l, cacheLayout, true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  map[string]map[string]int
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, cnt, cacheAvailability, true)
	}
}

// @Summary  Price a selection
// @Param    id   path  int           true  "Event ID"
// @Param    req  body  PriceRequest  true  "payload"
// @Success  200  {object}  domain.PriceBreakdown
// @Failure  400  {object}  ErrorResponse
// @Router   /events/{id}/price [post]
func handlePrice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req PriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		b, err := svcs.Checkout.Quote(c.Request.Context(), eventID, toItems(req.Items))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Lock units
// @Description All-or-nothing. Locking units the caller already holds refreshes them.
// @Security BearerAuth
// @Param    id   path  int          true  "Event ID"
// @Param    req  body  LockRequest  true  "payload"
// @Success  200  {object}  domain.LockResult
// @Failure  409  {object}  ErrorResponse "units unavailable"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /events/{id}/locks [post]
func handleLock(svcs *service.Services, limiter rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req LockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sub := holder(c)
		if limiter != nil {
			d, err := limiter.Allow(c.Request.Context(), sub)
			if err != nil {
				// limiter outage must not block customers
				_ = c.Error(err)
			} else if !d.Allowed {
				c.Header("Retry-After", d.RetryAfterHeader())
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
				return
			}
		}

		res, err := svcs.Locks.TryLock(
			c.Request.Context(),
			eventID,
			req.UnitIDs,
			sub,
			time.Duration(req.TTLSec)*time.Second,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Release own locks
// @Security BearerAuth
// @Param    id   path  int             true  "Event ID"
// @Param    req  body  ReleaseRequest  true  "payload"
// @Success  200  {object}  ReleaseResponse
// @Router   /events/{id}/locks [delete]
func handleRelease(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ReleaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		n, err := svcs.Locks.Release(c.Request.Context(), eventID, req.UnitIDs, holder(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ReleaseResponse{Released: n})
	}
}

// @Summary  Submit checkout (idempotent)
// @Description Creates one booking per unit type and returns the payment link.
// @Security BearerAuth
// @Param    id   path  int              true  "Event ID"
// @Param    req  body  CheckoutRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "client generated key"
// @Success  201  {object}  domain.PaymentHandoff
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "retry selection"
// @Failure  422  {object}  ErrorResponse "invalid customer info"
// @Failure  502  {object}  ErrorResponse "retry payment"
// @Router   /events/{id}/checkout [post]
func handleCheckout(svcs *service.Services, idem idempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		sub := holder(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemCheckout(eventID, sub, idemKey)

			if replayed := replay(c, idem, idemStorageKey, idemKey); replayed {
				return
			}

			locked, err := idem.Acquire(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayed := replay(c, idem, idemStorageKey, idemKey); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		handoff, err := svcs.Checkout.Checkout(ctx, checkout.Request{
			EventID: eventID,
			Holder:  sub,
			Items:   toItems(req.Items),
			Customer: domain.CustomerInfo{
				Name:  req.Customer.Name,
				Email: req.Customer.Email,
				Phone: req.Customer.Phone,
			},
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			// without a saved result the key stays in progress until its lock ttl runs out
			if b, err := json.Marshal(handoff); err != nil {
				_ = c.Error(fmt.Errorf("encoding idempotent checkout result: %w", err))
			} else if err := idem.SaveResult(ctx, idemStorageKey, b); err != nil {
				_ = c.Error(fmt.Errorf("saving idempotent checkout result: %w", err))
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, handoff)
	}
}

func replay(c *gin.Context, idem idempotencyStore, key, idemKey string) bool {
	payload, ok, _ := idem.Result(c.Request.Context(), key)
	if !ok {
		return false
	}
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", payload)
	return true
}

// @Summary  Get own booking
// @Security BearerAuth
// @Param    type  path  string  true  "seat, table or booth"
// @Param    id    path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{type}/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseBookingRef(c)
		if !ok {
			return
		}
		b, err := svcs.Bookings.Get(c.Request.Context(), ref, holder(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel own pending booking
// @Security BearerAuth
// @Param    type  path  string  true  "seat, table or booth"
// @Param    id    path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "booking is not pending"
// @Router   /bookings/{type}/{id} [delete]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseBookingRef(c)
		if !ok {
			return
		}
		b, err := svcs.Bookings.Cancel(c.Request.Context(), ref, holder(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Apply a payment outcome
// @Description Called by the payment gateway. "paid" finalizes the bookings, "failed" releases them.
// @Security BearerAuth
// @Param    req  body  PaymentConfirmRequest  true  "payload"
// @Success  200  {object}  PaymentConfirmResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /payments/confirm [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		refs, err := req.refs()
		if err != nil {
			badRequest(c, "invalid booking_id")
			return
		}
		confirmed, err := svcs.Checkout.ConfirmPayment(c.Request.Context(), refs, req.Status == "paid")
		if err != nil {
			respondErr(c, err)
			return
		}
		if confirmed == nil {
			confirmed = []*domain.Booking{}
		}
		c.JSON(http.StatusOK, PaymentConfirmResponse{Confirmed: confirmed})
	}
}

// @Summary  Block or unblock units
// @Security BearerAuth
// @Param    id   path  int           true  "Event ID"
// @Param    req  body  BlockRequest  true  "payload"
// @Success  200  {object}  BlockResponse
// @Failure  409  {object}  ErrorResponse "units are locked or booked"
// @Router   /admin/events/{id}/units/block [post]
// @Router   /admin/events/{id}/units/unblock [post]
func handleSetBlocked(svcs *service.Services, blocked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req BlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		status := domain.UnitBlocked
		var err error
		if blocked {
			err = svcs.Locks.Block(ctx, eventID, req.UnitIDs)
		} else {
			err = svcs.Locks.Unblock(ctx, eventID, req.UnitIDs)
			status = domain.UnitAvailable
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, BlockResponse{UnitIDs: req.UnitIDs, Status: string(status)})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseBookingRef(c *gin.Context) (domain.BookingRef, bool) {
	t := domain.UnitType(c.Param("type"))
	if !t.Valid() {
		badRequest(c, "invalid booking type")
		return domain.BookingRef{}, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return domain.BookingRef{}, false
	}
	return domain.BookingRef{ID: id, Type: t}, true
}
