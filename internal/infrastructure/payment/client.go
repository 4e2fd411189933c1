// Package payment implements the checkout-provider client: creating hosted
// checkout sessions and authenticating the provider's webhook deliveries.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

const (
	defaultTimeout    = 30 * time.Second
	maxRetryElapsed   = 15 * time.Second
	sessionsEndpoint  = "/v1/checkout/sessions"
	defaultCurrency   = "usd"
	checkoutUserAgent = "tour-booking-api/1.0"
)

// Config carries the provider credentials. SecretKey authenticates outbound
// API calls; WebhookSecret authenticates inbound deliveries.
type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// Client talks to the payment provider's REST API. Transient failures (5xx,
// network) are retried with exponential backoff; 4xx responses are not.
type Client struct {
	http    *http.Client
	baseURL string
	cfg     Config
	log     zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		cfg:     cfg,
		log:     log,
	}
}

// CreateCheckoutSession registers a hosted checkout session. The tour id
// travels as the provider-tracked client reference and the amount is in
// minor currency units, both of which come back on the webhook.
func (c *Client) CreateCheckoutSession(ctx context.Context, in ports.CheckoutSessionInput) (*ports.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", in.TourID)
	form.Set("customer_email", in.CustomerEmail)
	form.Set("success_url", in.SuccessURL)
	form.Set("cancel_url", in.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currencyOrDefault(in.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(in.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", in.TourName)
	form.Set("line_items[0][price_data][product_data][description]", in.TourSummary)
	if in.ImageURL != "" {
		form.Set("line_items[0][price_data][product_data][images][0]", in.ImageURL)
	}

	var session ports.CheckoutSession
	operation := func() error {
		return c.postForm(ctx, sessionsEndpoint, form, &session)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxRetryElapsed),
	), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	c.log.Debug().
		Str("session_id", session.ID).
		Str("tour_id", in.TourID).
		Int64("amount_cents", in.AmountCents).
		Msg("provider session call succeeded")

	return &session, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint,
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("User-Agent", checkoutUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("provider unavailable: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("provider rejected request: status %d: %s", resp.StatusCode, body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode provider response: %w", err))
	}
	return nil
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return defaultCurrency
	}
	return currency
}
