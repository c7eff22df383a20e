package engine

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/revenuecat"
	"github.com/quintave/quintave/internal/service"
)

// WebhookOutcome says what a webhook event did.
type WebhookOutcome string

// Webhook outcomes. All of them are acknowledged to the provider.
const (
	OutcomeIgnored        WebhookOutcome = "ignored"
	OutcomeUnknownUser    WebhookOutcome = "unknown_user"
	OutcomeApplied        WebhookOutcome = "applied"
	OutcomeAlreadyApplied WebhookOutcome = "already_applied"
)

// PurchaseStatus returns the user's trial and purchase status.
func (e *Engine) PurchaseStatus(ctx context.Context, userID int64) (access.Status, error) {
	user, err := e.storage.GetUserByID(ctx, userID)
	if err != nil {
		return access.Status{}, err
	}
	return e.AccessStatus(user), nil
}

// ConfirmPurchase is called by the device once the purchase SDK reports the
// entitlement. It links the provider id and marks the user purchased.
func (e *Engine) ConfirmPurchase(ctx context.Context, userID int64, providerUserID string) (access.Status, error) {
	providerUserID = strings.TrimSpace(providerUserID)
	if providerUserID == "" {
		return access.Status{}, common.InvalidInput("revenueCatAppUserId is required")
	}

	var user *model.User
	err := e.withTx(ctx, func(tx service.Transaction) error {
		u, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		_, err = e.mergePurchase(ctx, tx, u, access.PurchaseEvent{At: e.clock(), ProviderUserID: providerUserID})
		user = u
		return err
	})
	if err != nil {
		return access.Status{}, err
	}

	e.logger.Info("purchase confirmed by client", zap.Int64("user_id", userID))
	return e.AccessStatus(user), nil
}

// LinkPurchaseProvider stores the device's RevenueCat app user id ahead of
// any purchase so a later webhook can find the user.
func (e *Engine) LinkPurchaseProvider(ctx context.Context, userID int64, providerUserID string) error {
	providerUserID = strings.TrimSpace(providerUserID)
	if providerUserID == "" {
		return common.InvalidInput("revenueCatAppUserId is required")
	}
	return e.storage.LinkProviderID(ctx, userID, providerUserID)
}

// HandleWebhookEvent applies a RevenueCat event. Only an initial purchase
// changes state. An app user id with no linked user is logged and reported
// as OutcomeUnknownUser without error, since the device confirm may not
// have linked it yet.
func (e *Engine) HandleWebhookEvent(ctx context.Context, ev *revenuecat.Event) (WebhookOutcome, error) {
	if !ev.Mutates() {
		e.logger.Debug("ignoring revenuecat event", zap.String("type", string(ev.Type)))
		return OutcomeIgnored, nil
	}

	appUserID := strings.TrimSpace(ev.AppUserID)
	if appUserID == "" {
		e.logger.Warn("revenuecat purchase event without app user id", zap.String("event_id", ev.ID))
		return OutcomeUnknownUser, nil
	}

	outcome := OutcomeAlreadyApplied
	err := e.withTx(ctx, func(tx service.Transaction) error {
		user, err := tx.GetUserByProviderID(ctx, appUserID)
		if errors.Is(err, common.ErrNotFound) {
			outcome = OutcomeUnknownUser
			return nil
		}
		if err != nil {
			return err
		}

		changed, err := e.mergePurchase(ctx, tx, user, access.PurchaseEvent{
			At:             ev.PurchasedAt(e.clock()),
			ProviderUserID: appUserID,
		})
		if changed {
			outcome = OutcomeApplied
		}
		return err
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeUnknownUser:
		e.logger.Warn("no user found for revenuecat app user id", zap.String("app_user_id", appUserID))
	case OutcomeApplied:
		e.logger.Info("purchase confirmed by webhook", zap.String("app_user_id", appUserID))
	}
	return outcome, nil
}

// mergePurchase folds ev into user and persists the result if it changed.
// user is updated in place.
func (e *Engine) mergePurchase(ctx context.Context, tx service.Storage, user *model.User, ev access.PurchaseEvent) (bool, error) {
	next, changed := access.MergePurchase(access.StateOf(user), ev)
	if !changed {
		return false, nil
	}

	if err := tx.SavePurchase(ctx, user.ID, *next.PurchasedAt, next.ProviderUserID); err != nil {
		return false, err
	}

	user.HasPurchased = next.HasPurchased
	user.PurchasedAt = next.PurchasedAt
	user.RevenueCatAppUserID = next.ProviderUserID
	return true, nil
}
