package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/quintave/quintave/internal/common"
)

// Platforms a login can be started from.
const (
	PlatformWeb    = "web"
	PlatformNative = "native"
)

// State travels through the provider's redirect in the OAuth state
// parameter.
type State struct {
	RedirectURI string `json:"redirectUri"`
	Platform    string `json:"platform"`
	Nonce       string `json:"nonce"`
}

// NewState builds a state with a fresh nonce. Unknown platforms are treated
// as web.
func NewState(redirectURI, platform string) State {
	if platform != PlatformNative {
		platform = PlatformWeb
	}
	return State{RedirectURI: redirectURI, Platform: platform, Nonce: uuid.NewString()}
}

// Encode returns the base64 JSON form of s.
func (s State) Encode() string {
	data, _ := json.Marshal(s)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeState parses an encoded state. Standard and URL-safe base64 are
// both accepted.
func DecodeState(encoded string) (State, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return State{}, fmt.Errorf("%w: state is not base64", common.ErrInvalidInput)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: state is not JSON", common.ErrInvalidInput)
	}
	if s.Platform == "" {
		s.Platform = PlatformWeb
	}
	return s, nil
}
