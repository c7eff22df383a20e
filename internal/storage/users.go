package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

const userColumns = `id, open_id, name, email, login_method, role, has_completed_onboarding,
	has_purchased, purchased_at, revenuecat_app_user_id, created_at, updated_at, last_signed_in`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u              model.User
		name, email    sql.NullString
		loginMethod    sql.NullString
		providerUserID sql.NullString
		purchasedAt    sql.NullTime
		role           string
	)

	err := row.Scan(&u.ID, &u.OpenID, &name, &email, &loginMethod, &role, &u.HasCompletedOnboarding,
		&u.HasPurchased, &purchasedAt, &providerUserID, &u.CreatedAt, &u.UpdatedAt, &u.LastSignedIn)
	if err != nil {
		return nil, err
	}

	u.Name = name.String
	u.Email = email.String
	u.LoginMethod = loginMethod.String
	u.RevenueCatAppUserID = providerUserID.String
	u.Role = model.Role(role)
	if purchasedAt.Valid {
		t := purchasedAt.Time.UTC()
		u.PurchasedAt = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	u.LastSignedIn = u.LastSignedIn.UTC()
	return &u, nil
}

func (s *SQLStorage) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+s.forUpdate(), arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpsertUser creates the user on first sign-in, or refreshes profile fields
// and last_signed_in on later ones. Role, onboarding and purchase state are
// never touched here.
func (s *SQLStorage) UpsertUser(ctx context.Context, identity model.Identity, signedInAt time.Time) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(identity.OpenID, "openID"); err != nil {
		return nil, err
	}

	signedInAt = signedInAt.UTC()
	_, err := s.exec(ctx, `
		INSERT INTO users (open_id, name, email, login_method, role, created_at, updated_at, last_signed_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (open_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			login_method = excluded.login_method,
			updated_at = excluded.updated_at,
			last_signed_in = excluded.last_signed_in`,
		identity.OpenID, nullString(identity.Name), nullString(identity.Email), nullString(identity.LoginMethod),
		string(model.RoleUser), signedInAt, signedInAt, signedInAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.GetUserByOpenID(ctx, identity.OpenID)
}

// GetUserByID loads a user by primary key.
func (s *SQLStorage) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByOpenID loads a user by the login provider's subject id.
func (s *SQLStorage) GetUserByOpenID(ctx context.Context, openID string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(openID, "openID"); err != nil {
		return nil, err
	}
	return s.getUser(ctx, "open_id = ?", openID)
}

// GetUserByProviderID loads a user by the purchase provider's app user id.
func (s *SQLStorage) GetUserByProviderID(ctx context.Context, providerUserID string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(providerUserID, "providerUserID"); err != nil {
		return nil, err
	}
	return s.getUser(ctx, "revenuecat_app_user_id = ?", providerUserID)
}

// SetOnboardingComplete records whether the user finished onboarding.
func (s *SQLStorage) SetOnboardingComplete(ctx context.Context, userID int64, completed bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.exec(ctx,
		`UPDATE users SET has_completed_onboarding = ?, updated_at = ? WHERE id = ?`,
		completed, nowUTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update onboarding state: %w", err)
	}
	return expectAffected(result, "user")
}

// SavePurchase marks the user as purchased. An empty providerUserID leaves
// any stored provider id in place. A provider id already linked to another
// user yields common.ErrDuplicateEntry.
func (s *SQLStorage) SavePurchase(ctx context.Context, userID int64, purchasedAt time.Time, providerUserID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if purchasedAt.IsZero() {
		return fmt.Errorf("%w: purchasedAt", ErrNilParameter)
	}

	result, err := s.exec(ctx, `
		UPDATE users SET
			has_purchased = ?,
			purchased_at = ?,
			revenuecat_app_user_id = COALESCE(?, revenuecat_app_user_id),
			updated_at = ?
		WHERE id = ?`,
		true, purchasedAt.UTC(), nullString(providerUserID), nowUTC(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("provider user id %q: %w", providerUserID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save purchase: %w", err)
	}
	return expectAffected(result, "user")
}

// LinkProviderID records the purchase provider's app user id without
// touching purchase state.
func (s *SQLStorage) LinkProviderID(ctx context.Context, userID int64, providerUserID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(providerUserID, "providerUserID"); err != nil {
		return err
	}

	result, err := s.exec(ctx,
		`UPDATE users SET revenuecat_app_user_id = ?, updated_at = ? WHERE id = ?`,
		providerUserID, nowUTC(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("provider user id %q: %w", providerUserID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to link provider user id: %w", err)
	}
	return expectAffected(result, "user")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
