package engine

import (
	"context"
	"fmt"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

// SignIn records a successful login, creating the user on first sight.
func (e *Engine) SignIn(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.OpenID == "" {
		return nil, common.InvalidInput("identity is missing a subject id")
	}

	user, err := e.storage.UpsertUser(ctx, identity, e.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to sign in user: %w", err)
	}
	return user, nil
}

// User loads a user by id.
func (e *Engine) User(ctx context.Context, userID int64) (*model.User, error) {
	return e.storage.GetUserByID(ctx, userID)
}

// AccessStatus evaluates the paywall for user at the engine's clock.
func (e *Engine) AccessStatus(user *model.User) access.Status {
	return e.policy.Evaluate(user, e.clock())
}
