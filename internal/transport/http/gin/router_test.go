package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-checkout/internal/auth"
	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/payment"
	"github.com/kirinyoku/tix-checkout/internal/repository/memory"
	redisrepo "github.com/kirinyoku/tix-checkout/internal/repository/redis"
	"github.com/kirinyoku/tix-checkout/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEvent int64 = 1

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeLimiter struct {
	decision redisrepo.Decision
}

func (f fakeLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return f.decision, nil
}

type fakeIdempotency struct {
	mu      sync.Mutex
	locks   map[string]bool
	results map[string][]byte
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{locks: map[string]bool{}, results: map[string][]byte{}}
}

func (f *fakeIdempotency) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	return true, nil
}

func (f *fakeIdempotency) SaveResult(_ context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = payload
	return nil
}

func (f *fakeIdempotency) Result(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.results[key]
	return b, ok, nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, key)
	return nil
}

// failingSave accepts keys but cannot store results.
type failingSave struct {
	*fakeIdempotency
}

func (failingSave) SaveResult(context.Context, string, []byte) error {
	return errors.New("redis: connection refused")
}

type testServer struct {
	router   *gin.Engine
	verifier *auth.Verifier
	hub      *Hub
}

func newTestServer(t *testing.T, tweak ...func(*Deps)) *testServer {
	t.Helper()

	store := memory.New()
	layout, pricing := memory.DemoLayout(testEvent)
	require.NoError(t, store.Seed(layout, pricing))

	svcs := service.NewServices(service.Deps{
		Units:    store,
		Bookings: store,
		Layouts:  store,
		Payments: payment.NewSandbox("https://pay.test", discard),
		Logger:   discard,
	}, service.Config{})

	verifier := auth.NewVerifier("test-secret", "")
	hub := NewHub()

	d := Deps{
		Services: svcs,
		Verifier: verifier,
		Hub:      hub,
		Logger:   discard,
	}
	for _, fn := range tweak {
		fn(&d)
	}

	return &testServer{router: NewRouter(d), verifier: verifier, hub: hub}
}

func (s *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := s.verifier.Issue(subject, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var (
	seatS12 = SelectionItemInput{UnitID: "S12", Type: "seat", CategoryID: "standard", Price: 15000}
	tableT3 = SelectionItemInput{UnitID: "T3", Type: "table", CategoryID: "table", Price: 40000}
	noor    = CustomerInput{Name: "Noor", Email: "noor@example.com", Phone: "+965 5555 1234"}
)

func unitStatus(t *testing.T, s *testServer, unitID string) domain.UnitStatus {
	t.Helper()
	w := s.do(t, http.MethodGet, "/events/1/layout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	l := decode[domain.EventLayout](t, w)
	u, ok := l.Unit(unitID)
	require.True(t, ok)
	return u.Status
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLayout_ETag(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/events/1/layout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	l := decode[domain.EventLayout](t, w)
	assert.Len(t, l.Units, 27)
	assert.Len(t, l.Categories, 3)

	w = s.do(t, http.MethodGet, "/events/1/layout", nil, "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestLayout_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/events/99/layout", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/events/abc/layout", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailability(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/events/1/availability", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	counts := decode[map[string]map[string]int](t, w)
	assert.Equal(t, 20, counts["seat"]["available"])
	assert.Equal(t, 5, counts["table"]["available"])
	assert.Equal(t, 2, counts["booth"]["available"])
}

func TestPrice(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/events/1/price", PriceRequest{Items: []SelectionItemInput{seatS12, tableT3}}, "")
	require.Equal(t, http.StatusOK, w.Code)

	b := decode[domain.PriceBreakdown](t, w)
	assert.Equal(t, domain.PriceBreakdown{Subtotal: 55000, ServiceFee: 2000, Tax: 2750, Total: 59750}, b)
}

func TestLocks_RequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S1"}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S1"}}, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLocks_ConflictNamesUnits(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice", auth.RoleCustomer)
	bob := s.token(t, "bob", auth.RoleCustomer)

	w := s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S1", "S2"}, TTLSec: 60}, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[domain.LockResult](t, w)
	assert.ElementsMatch(t, []string{"S1", "S2"}, res.UnitIDs)

	w = s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S2", "S3"}}, bob)
	require.Equal(t, http.StatusConflict, w.Code)
	e := decode[ErrorResponse](t, w)
	assert.Equal(t, retrySelection, e.Retry)
	assert.Equal(t, []string{"S2"}, e.UnitIDs)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S3"))

	w = s.do(t, http.MethodDelete, "/events/1/locks", ReleaseRequest{UnitIDs: []string{"S1", "S2"}}, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[ReleaseResponse](t, w).Released)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S2"))
}

func TestLocks_RateLimited(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Limiter = fakeLimiter{decision: redisrepo.Decision{Allowed: false, Count: 30, RetryAfter: 1500 * time.Millisecond}}
	})

	w := s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S1"}}, s.token(t, "alice", auth.RoleCustomer))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S1"))
}

func TestCheckout_MixedCart(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "alice", auth.RoleCustomer)

	w := s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12, tableT3},
		Customer: noor,
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	h := decode[domain.PaymentHandoff](t, w)
	assert.Contains(t, h.PaymentLink, "https://pay.test/batch/")
	assert.Equal(t, domain.Money(59750), h.Breakdown.Total)
	require.Len(t, h.Bookings, 2)
	assert.Equal(t, domain.UnitSeat, h.Bookings[0].Type)
	assert.Equal(t, domain.UnitTable, h.Bookings[1].Type)

	assert.Equal(t, domain.UnitLocked, unitStatus(t, s, "S12"))

	w = s.do(t, http.MethodGet, "/bookings/table/"+h.Bookings[1].ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[domain.Booking](t, w)
	require.NotNil(t, b.Table)
	assert.Equal(t, 4, b.Table.GuestCount)

	w = s.do(t, http.MethodGet, "/bookings/table/"+h.Bookings[1].ID.String(), nil, s.token(t, "bob", auth.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    CheckoutRequest
		status int
	}{
		{
			name:   "bad email",
			req:    CheckoutRequest{Items: []SelectionItemInput{seatS12}, Customer: CustomerInput{Name: "Noor", Email: "nope", Phone: "+96555551234"}},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "stale price",
			req:    CheckoutRequest{Items: []SelectionItemInput{{UnitID: "S12", Type: "seat", CategoryID: "standard", Price: 1}}, Customer: noor},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown type",
			req:    CheckoutRequest{Items: []SelectionItemInput{{UnitID: "S12", Type: "sofa", CategoryID: "standard", Price: 15000}}, Customer: noor},
			status: http.StatusBadRequest,
		},
		{
			name:   "empty",
			req:    CheckoutRequest{Customer: noor},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, http.MethodPost, "/events/1/checkout", tt.req, s.token(t, "alice", auth.RoleCustomer))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S12"))
		})
	}
}

func TestCheckout_ConflictInLaterGroupIsPartial(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"T3"}}, s.token(t, "bob", auth.RoleCustomer))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12, tableT3},
		Customer: noor,
	}, s.token(t, "alice", auth.RoleCustomer))
	require.Equal(t, http.StatusBadGateway, w.Code)

	e := decode[ErrorResponse](t, w)
	assert.Equal(t, retryPayment, e.Retry)
	assert.Equal(t, "partial_checkout_failure", e.Kind)
	assert.Equal(t, []string{"T3"}, e.UnitIDs)
	assert.Equal(t, "table", e.Group)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S12"))
}

func TestCheckout_ConflictInFirstGroup(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"S12"}}, s.token(t, "bob", auth.RoleCustomer))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12, tableT3},
		Customer: noor,
	}, s.token(t, "alice", auth.RoleCustomer))
	require.Equal(t, http.StatusConflict, w.Code)

	e := decode[ErrorResponse](t, w)
	assert.Equal(t, retrySelection, e.Retry)
	assert.Equal(t, []string{"S12"}, e.UnitIDs)
	assert.Equal(t, "seat", e.Group)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "T3"))
}

func TestCheckout_IdempotencyReplay(t *testing.T) {
	idem := newFakeIdempotency()
	s := newTestServer(t, func(d *Deps) { d.Idempotency = idem })
	tok := s.token(t, "alice", auth.RoleCustomer)
	req := CheckoutRequest{Items: []SelectionItemInput{seatS12}, Customer: noor}

	first := s.do(t, http.MethodPost, "/events/1/checkout", req, tok, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, "k-1", first.Header().Get("Idempotency-Key"))

	second := s.do(t, http.MethodPost, "/events/1/checkout", req, tok, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// a fresh key books again and now collides with the first booking
	third := s.do(t, http.MethodPost, "/events/1/checkout", req, tok, "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusConflict, third.Code)
}

func TestCheckout_IdempotencySaveFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	idem := failingSave{newFakeIdempotency()}
	s := newTestServer(t, func(d *Deps) {
		d.Idempotency = idem
		d.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	})
	tok := s.token(t, "alice", auth.RoleCustomer)
	req := CheckoutRequest{Items: []SelectionItemInput{seatS12}, Customer: noor}

	first := s.do(t, http.MethodPost, "/events/1/checkout", req, tok, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, "k-1", first.Header().Get("Idempotency-Key"))
	assert.Contains(t, logs.String(), "saving idempotent checkout result")
	assert.Contains(t, logs.String(), "connection refused")

	// nothing to replay, so the key stays in progress instead of checking out twice
	second := s.do(t, http.MethodPost, "/events/1/checkout", req, tok, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, domain.UnitLocked, unitStatus(t, s, "S12"))
}

func TestCheckout_IdempotencyInProgress(t *testing.T) {
	idem := newFakeIdempotency()
	key := redisrepo.KeyIdemCheckout(testEvent, "alice", "k-1")
	_, _ = idem.Acquire(context.Background(), key, time.Minute)

	s := newTestServer(t, func(d *Deps) { d.Idempotency = idem })
	w := s.do(t, http.MethodPost, "/events/1/checkout",
		CheckoutRequest{Items: []SelectionItemInput{seatS12}, Customer: noor},
		s.token(t, "alice", auth.RoleCustomer), "Idempotency-Key", "k-1")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S12"))
}

func TestPaymentConfirm(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "alice", auth.RoleCustomer)

	w := s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12, tableT3},
		Customer: noor,
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code)
	h := decode[domain.PaymentHandoff](t, w)

	req := PaymentConfirmRequest{Status: "paid"}
	for _, b := range h.Bookings {
		req.Bookings = append(req.Bookings, BookingRefInput{BookingID: b.ID.String(), BookingType: string(b.Type)})
	}

	w = s.do(t, http.MethodPost, "/payments/confirm", req, tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/payments/confirm", req, s.token(t, "gw", auth.RoleGateway))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[PaymentConfirmResponse](t, w).Confirmed, 2)

	assert.Equal(t, domain.UnitBooked, unitStatus(t, s, "S12"))
	assert.Equal(t, domain.UnitBooked, unitStatus(t, s, "T3"))
}

func TestPaymentConfirm_FailedReleases(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12},
		Customer: noor,
	}, s.token(t, "alice", auth.RoleCustomer))
	require.Equal(t, http.StatusCreated, w.Code)
	h := decode[domain.PaymentHandoff](t, w)

	w = s.do(t, http.MethodPost, "/payments/confirm", PaymentConfirmRequest{
		Status:   "failed",
		Bookings: []BookingRefInput{{BookingID: h.Bookings[0].ID.String(), BookingType: "seat"}},
	}, s.token(t, "gw", auth.RoleGateway))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[PaymentConfirmResponse](t, w).Confirmed)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S12"))
}

func TestCancelBooking(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "alice", auth.RoleCustomer)

	w := s.do(t, http.MethodPost, "/events/1/checkout", CheckoutRequest{
		Items:    []SelectionItemInput{seatS12},
		Customer: noor,
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.PaymentHandoff](t, w).Bookings[0].ID.String()

	w = s.do(t, http.MethodDelete, "/bookings/seat/"+id, nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaymentCancelled, decode[domain.Booking](t, w).PaymentStatus)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "S12"))

	w = s.do(t, http.MethodDelete, "/bookings/booth/not-a-uuid", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminBlock(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "ops", auth.RoleAdmin)

	w := s.do(t, http.MethodPost, "/admin/events/1/units/block", BlockRequest{UnitIDs: []string{"B1"}}, s.token(t, "alice", auth.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/admin/events/1/units/block", BlockRequest{UnitIDs: []string{"B1"}}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.UnitBlocked, unitStatus(t, s, "B1"))

	w = s.do(t, http.MethodPost, "/events/1/locks", LockRequest{UnitIDs: []string{"B1"}}, s.token(t, "alice", auth.RoleCustomer))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/admin/events/1/units/unblock", BlockRequest{UnitIDs: []string{"B1"}}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.UnitAvailable, unitStatus(t, s, "B1"))
}
