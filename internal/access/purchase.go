package access

import (
	"time"

	"github.com/quintave/quintave/internal/model"
)

// PurchaseState is the persisted purchase record of a user.
type PurchaseState struct {
	PurchasedAt    *time.Time
	ProviderUserID string
	HasPurchased   bool
}

// PurchaseEvent is a purchase confirmation from either the device or the
// provider's webhook.
type PurchaseEvent struct {
	At             time.Time
	ProviderUserID string
}

// StateOf extracts the purchase record from a user.
func StateOf(user *model.User) PurchaseState {
	return PurchaseState{
		PurchasedAt:    user.PurchasedAt,
		ProviderUserID: user.RevenueCatAppUserID,
		HasPurchased:   user.HasPurchased,
	}
}

// MergePurchase folds ev into state. HasPurchased only moves to true and
// PurchasedAt is only set when it was unset, so applying the same event any
// number of times yields the same state. The bool reports whether anything
// changed.
func MergePurchase(state PurchaseState, ev PurchaseEvent) (PurchaseState, bool) {
	next := state
	changed := false

	if !next.HasPurchased {
		next.HasPurchased = true
		changed = true
	}
	if next.PurchasedAt == nil {
		at := ev.At.UTC()
		next.PurchasedAt = &at
		changed = true
	}
	if ev.ProviderUserID != "" && ev.ProviderUserID != next.ProviderUserID {
		next.ProviderUserID = ev.ProviderUserID
		changed = true
	}
	return next, changed
}
