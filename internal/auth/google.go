package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/quintave/quintave/internal/model"
)

// IdentityProvider is an external login.
type IdentityProvider interface {
	// AuthCodeURL returns the consent page URL.
	AuthCodeURL(state, redirectURL string) string
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code, redirectURL string) (model.Identity, error)
}

// GoogleConfig holds the OAuth client credentials.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// GoogleProvider signs users in with Google.
type GoogleProvider struct {
	config GoogleConfig
}

// NewGoogleProvider creates a provider for the given OAuth client.
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	return &GoogleProvider{config: config}
}

func (g *GoogleProvider) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
	}
}

// AuthCodeURL returns Google's consent URL with account selection forced.
func (g *GoogleProvider) AuthCodeURL(state, redirectURL string) string {
	return g.oauthConfig(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange swaps the code for a token and reads the user's profile.
func (g *GoogleProvider) Exchange(ctx context.Context, code, redirectURL string) (model.Identity, error) {
	cfg := g.oauthConfig(redirectURL)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, token)))
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	if info.Id == "" {
		return model.Identity{}, fmt.Errorf("no user id returned from Google")
	}

	return model.Identity{
		OpenID:      info.Id,
		Name:        info.Name,
		Email:       info.Email,
		LoginMethod: "google",
	}, nil
}
