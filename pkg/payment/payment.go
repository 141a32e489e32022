// Package payment is a client for the card payment gateway. Only the two calls the
// marketplace needs are exposed: creating a payment intent and refunding one.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no secret key was provided.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// Config holds the gateway connection details.
type Config struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int
}

// Intent is a payment the buyer confirms on the client side with ClientSecret.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Refund is the gateway's record of money sent back to the buyer.
type Refund struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
}

// APIError is an error answered by the gateway.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the gateway's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreatePaymentIntent asks the gateway to prepare a charge of amount in currency.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, currency string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toMinorUnits(amount), 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")

	var intent Intent
	if err := c.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return &intent, nil
}

// Refund sends amount of a captured payment intent back to the buyer. An amount of zero
// or less refunds whatever is left on the intent.
func (c *Client) Refund(ctx context.Context, paymentIntentID string, amount float64) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(toMinorUnits(amount), 10))
	}

	var refund Refund
	if err := c.post(ctx, "/v1/refunds", form, &refund); err != nil {
		return nil, fmt.Errorf("failed to refund payment intent %s: %w", paymentIntentID, err)
	}
	return &refund, nil
}

// post sends a form request, retrying network failures and 5xx answers with the same
// idempotency key so the gateway never applies one call twice.
func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c.cfg.SecretKey == "" {
		return ErrNotConfigured
	}
	idempotencyKey := uuid.New().String()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			log.Printf("Retrying payment gateway call %s (attempt %d): %v", path, attempt+1, lastErr)
		}

		retry, err := c.do(ctx, path, form, idempotencyKey, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, path string, form url.Values, idempotencyKey string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(body, &envelope)
		apiErr := envelope.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode >= http.StatusInternalServerError, &apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return false, nil
}

// toMinorUnits converts an amount to cents, rounding half away from zero.
func toMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
