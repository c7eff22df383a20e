// Package revenuecat decodes and authenticates purchase webhooks sent by
// RevenueCat.
package revenuecat

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Webhook errors.
var (
	ErrNotConfigured = errors.New("webhook secret not configured")
	ErrUnauthorized  = errors.New("invalid webhook authorization")
	ErrMissingEvent  = errors.New("missing event")
	ErrMalformed     = errors.New("malformed webhook payload")
)

// EventType is the RevenueCat event kind.
type EventType string

// Event types we know about. Only InitialPurchase changes state for a
// one-time purchase; the rest are acknowledged and ignored.
const (
	EventInitialPurchase     EventType = "INITIAL_PURCHASE"
	EventNonRenewingPurchase EventType = "NON_RENEWING_PURCHASE"
	EventRenewal             EventType = "RENEWAL"
	EventCancellation        EventType = "CANCELLATION"
	EventExpiration          EventType = "EXPIRATION"
	EventTest                EventType = "TEST"
)

// Event is the subset of the RevenueCat event body we read.
type Event struct {
	ID                string    `json:"id"`
	Type              EventType `json:"type"`
	AppUserID         string    `json:"app_user_id"`
	OriginalAppUserID string    `json:"original_app_user_id"`
	ProductID         string    `json:"product_id"`
	Environment       string    `json:"environment"`
	Store             string    `json:"store"`
	Aliases           []string  `json:"aliases"`
	EventTimestampMs  int64     `json:"event_timestamp_ms"`
	PurchasedAtMs     int64     `json:"purchased_at_ms"`
}

// Payload is the webhook request body.
type Payload struct {
	Event      *Event `json:"event"`
	APIVersion string `json:"api_version"`
}

// Authorize checks the Authorization header against the configured secret.
func Authorize(header, secret string) error {
	if secret == "" {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// ParsePayload decodes a webhook body and requires the event object.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if p.Event == nil {
		return nil, ErrMissingEvent
	}
	return &p, nil
}

// Mutates reports whether the event should mark the user as purchased.
func (e *Event) Mutates() bool {
	return e.Type == EventInitialPurchase
}

// PurchasedAt returns the provider's purchase time, falling back to the
// event time and then to fallback.
func (e *Event) PurchasedAt(fallback time.Time) time.Time {
	switch {
	case e.PurchasedAtMs > 0:
		return time.UnixMilli(e.PurchasedAtMs).UTC()
	case e.EventTimestampMs > 0:
		return time.UnixMilli(e.EventTimestampMs).UTC()
	default:
		return fallback.UTC()
	}
}
