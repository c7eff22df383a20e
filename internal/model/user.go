package model

import "time"

// Role is a user's authorization level.
type Role string

// Role constants.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an authenticated account. CreatedAt anchors the trial window and
// HasPurchased only ever moves from false to true.
type User struct {
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
	LastSignedIn           time.Time  `json:"lastSignedIn"`
	PurchasedAt            *time.Time `json:"purchasedAt,omitempty"`
	OpenID                 string     `json:"openId"`
	Name                   string     `json:"name,omitempty"`
	Email                  string     `json:"email,omitempty"`
	LoginMethod            string     `json:"loginMethod,omitempty"`
	Role                   Role       `json:"role"`
	RevenueCatAppUserID    string     `json:"revenueCatAppUserId,omitempty"`
	ID                     int64      `json:"id"`
	HasCompletedOnboarding bool       `json:"hasCompletedOnboarding"`
	HasPurchased           bool       `json:"hasPurchased"`
}

// Identity is what an external login provider tells us about a user.
type Identity struct {
	OpenID      string
	Name        string
	Email       string
	LoginMethod string
}
