// Package payment talks to the external payment gateway. The gateway
// settles money; this package only asks it for a payment link.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirinyoku/tix-checkout/internal/domain"
)

var ErrNoPaymentLink = errors.New("gateway returned no payment link")

// StatusError is a non-2xx answer from the gateway.
type StatusError struct {
	Code int
	Body string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("gateway status %d: %s", e.Code, e.Body)
}

type Config struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

// Client is a JSON-over-HTTP gateway client. It never retries; a failed
// initiation is compensated by the caller.
type Client struct {
	http *http.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	if cfg.Currency == "" {
		cfg.Currency = "KWD"
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

type singleRequest struct {
	BookingID   string       `json:"booking_id"`
	BookingType string       `json:"booking_type"`
	Amount      domain.Money `json:"amount"`
	Currency    string       `json:"currency"`
}

type linkResponse struct {
	PaymentLink string `json:"payment_link"`
}

func (c *Client) InitiatePayment(ctx context.Context, ref domain.BookingRef, amount domain.Money) (string, error) {
	const op = "payment.Client.InitiatePayment"

	link, err := c.post(ctx, "/payments", singleRequest{
		BookingID:   ref.ID.String(),
		BookingType: string(ref.Type),
		Amount:      amount,
		Currency:    c.cfg.Currency,
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return link, nil
}

func (c *Client) InitiateBatchPayment(ctx context.Context, req domain.BatchPaymentRequest) (string, error) {
	const op = "payment.Client.InitiateBatchPayment"

	if req.Currency == "" {
		req.Currency = c.cfg.Currency
	}

	link, err := c.post(ctx, "/payments/batch", req)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return link, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out linkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}

	if out.PaymentLink == "" {
		return "", ErrNoPaymentLink
	}

	return out.PaymentLink, nil
}
