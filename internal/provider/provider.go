// Package provider describes the OAuth2 wearable-data providers fitlink can
// connect to and holds the immutable registry built at start-up.
package provider

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Provider lookup errors
var (
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrNotConfigured      = errors.New("provider not configured")
	ErrIncompleteConfig   = errors.New("provider configuration incomplete")
	ErrNoProvidersEnabled = errors.New("no provider is configured")
)

// ProviderConfig is the static description of one OAuth provider.
type ProviderConfig struct {
	Name         string
	DisplayName  string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// DefaultLifetime applies when a token response carries no expires_in.
	DefaultLifetime time.Duration
	// SuccessPath is the application route a completed connect lands on.
	SuccessPath string
}

// credentialsSet reports how many of the environment-supplied credentials are present.
func (c ProviderConfig) credentialsSet() int {
	n := 0
	for _, v := range []string{c.ClientID, c.ClientSecret, c.RedirectURI} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// Configured reports whether client id, client secret and redirect URI are all set.
func (c ProviderConfig) Configured() bool {
	return c.credentialsSet() == 3
}

// OAuth2Config returns the x/oauth2 view of the provider. Client credentials
// always travel in an HTTP Basic Authorization header.
func (c ProviderConfig) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
