// Package payment wraps the external checkout-session provider.  The
// service never trusts caller-supplied payment flags: confirmation always
// re-retrieves the session from the provider and checks its payment
// status before anything is reconciled into a booking or purchase.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	circuit "github.com/rubyist/circuitbreaker"
)

// Sentinel errors surfaced to handlers.  Provider outages trip the
// circuit breaker and map to 502s; unknown sessions map to 404s.
var (
	ErrUnavailable     = errors.New("payment provider unavailable")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Session payment statuses as reported by the provider.  Only "paid"
// sessions may be reconciled.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Metadata keys the service plants on sessions at creation and reads
// back at reconciliation.  They are the only channel carrying the
// booking subject (or cart marker) through the provider round-trip.
const (
	MetaTouristID   = "tourist_id"
	MetaSubjectKind = "subject_kind"
	MetaSubjectID   = "subject_id"
	MetaCart        = "cart"
	MetaPromoCode   = "promo_code"
	MetaAddress     = "delivery_address"
)

// CheckoutSession mirrors the provider's session resource, reduced to
// the fields reconciliation needs.
type CheckoutSession struct {
	ID               string            `json:"id"`
	URL              string            `json:"url"`
	PaymentStatus    string            `json:"payment_status"`
	AmountTotalCents int64             `json:"amount_total"`
	Currency         string            `json:"currency"`
	CompletedAt      int64             `json:"completed_at"` // unix seconds, 0 while unpaid
	Metadata         map[string]string `json:"metadata"`
}

// CreateSessionInput carries everything the provider needs to host a
// checkout page.  Amounts are in minor currency units.
type CreateSessionInput struct {
	AmountCents int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

// Client talks to the provider over a circuit-breaking HTTP client so a
// provider outage fails fast instead of piling up blocked settlement
// requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *circuit.HTTPClient
}

// NewClient builds a provider client.  The breaker opens after 10
// consecutive failures and each call is capped at a 10 second timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    circuit.NewHTTPClient(10*time.Second, 10, nil),
	}
}

// CreateSession asks the provider to open a checkout session and returns
// the hosted payment URL plus the session ID the service will later
// reconcile against.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("provider rejected session create: status %d", resp.StatusCode)
	}
	var sess CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession retrieves a session by ID.  This is the authoritative read
// used by both the webhook path and the client-poll path; the session's
// own payment_status decides whether reconciliation may proceed.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSessionNotFound
	case resp.StatusCode >= 500:
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("provider rejected session fetch: status %d", resp.StatusCode)
	}
	var sess CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
