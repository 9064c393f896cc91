package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

// Sandbox stands in for the gateway in development. It hands out links on
// a local base URL and never talks to the network.
type Sandbox struct {
	baseURL string
	logger  *slog.Logger
}

func NewSandbox(baseURL string, logger *slog.Logger) *Sandbox {
	if baseURL == "" {
		baseURL = "http://localhost:8080/sandbox/pay"
	}

	return &Sandbox{baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (s *Sandbox) InitiatePayment(ctx context.Context, ref domain.BookingRef, amount domain.Money) (string, error) {
	s.logger.Info("sandbox payment initiated",
		"booking_id", ref.ID, "booking_type", ref.Type, "amount", int64(amount))

	return fmt.Sprintf("%s/%s/%s", s.baseURL, ref.Type, ref.ID), nil
}

func (s *Sandbox) InitiateBatchPayment(ctx context.Context, req domain.BatchPaymentRequest) (string, error) {
	batchID := uuid.New()

	s.logger.Info("sandbox batch payment initiated",
		"batch_id", batchID, "items", len(req.Items), "grand_total", int64(req.GrandTotal))

	return fmt.Sprintf("%s/batch/%s", s.baseURL, batchID), nil
}
