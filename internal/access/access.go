// Package access decides whether a user may use the product: a trial window
// anchored at account creation, or a one-time purchase that grants access
// permanently.
package access

import (
	"math"
	"time"

	"github.com/quintave/quintave/internal/model"
)

// DefaultTrialDays is the length of the free trial.
const DefaultTrialDays = 30

// State is where a user sits in the trial/purchase lifecycle.
type State string

// Access states. StatePurchased is terminal.
const (
	StateTrial     State = "TRIAL"
	StatePurchased State = "PURCHASED"
	StateExpired   State = "EXPIRED"
)

// Policy holds the paywall parameters.
type Policy struct {
	TrialDays int
}

// DefaultPolicy is a 30 day trial followed by a one-time purchase.
func DefaultPolicy() Policy {
	return Policy{TrialDays: DefaultTrialDays}
}

// Status is the access picture for one user at one instant.
type Status struct {
	TrialEndsAt        time.Time  `json:"trialEndsAt"`
	PurchasedAt        *time.Time `json:"purchasedAt,omitempty"`
	State              State      `json:"state"`
	TrialDaysRemaining int        `json:"trialDaysRemaining"`
	HasPurchased       bool       `json:"hasPurchased"`
	TrialActive        bool       `json:"trialActive"`
	HasAccess          bool       `json:"hasAccess"`
}

func (p Policy) trialLength() time.Duration {
	days := p.TrialDays
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// TrialEndsAt returns the instant the trial for an account created at
// createdAt runs out.
func (p Policy) TrialEndsAt(createdAt time.Time) time.Time {
	return createdAt.Add(p.trialLength())
}

// Evaluate computes the user's access status at now.
func (p Policy) Evaluate(user *model.User, now time.Time) Status {
	endsAt := p.TrialEndsAt(user.CreatedAt)

	s := Status{
		TrialEndsAt:  endsAt.UTC(),
		PurchasedAt:  user.PurchasedAt,
		HasPurchased: user.HasPurchased,
		TrialActive:  now.Before(endsAt),
	}
	if s.TrialActive {
		s.TrialDaysRemaining = int(math.Ceil(endsAt.Sub(now).Hours() / 24))
	}
	s.HasAccess = s.HasPurchased || s.TrialActive

	switch {
	case s.HasPurchased:
		s.State = StatePurchased
	case s.TrialActive:
		s.State = StateTrial
	default:
		s.State = StateExpired
	}
	return s
}
