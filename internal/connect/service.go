// Package connect drives the provider connect and token refresh flows. It has
// no HTTP dependencies; handlers translate its results into redirects and JSON.
package connect

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/oauth"
	"github.com/jrschumacher/fitlink/internal/provider"
	"github.com/jrschumacher/fitlink/internal/repository"
)

// TokenExchanger performs provider token requests.
type TokenExchanger interface {
	AuthCodeURL(p provider.ProviderConfig, state string) string
	ExchangeCode(ctx context.Context, p provider.ProviderConfig, code string) (*oauth.TokenResult, error)
	ExchangeRefreshToken(ctx context.Context, p provider.ProviderConfig, refreshToken string) (*oauth.TokenResult, error)
}

// Options configures redirect targets and error exposure.
type Options struct {
	AppURL    string
	ErrorPath string
	StateTTL  time.Duration
	// ExposeErrorDetail adds internal error detail to API messages.
	ExposeErrorDetail bool
}

// Service orchestrates connects and refreshes.
type Service struct {
	providers   *provider.Registry
	exchanger   TokenExchanger
	connections repository.ConnectionRepository
	states      oauth.StateCache
	opts        Options
	now         func() time.Time
}

// NewService wires the orchestrator. A nil state cache disables pending-state tracking.
func NewService(providers *provider.Registry, exchanger TokenExchanger, connections repository.ConnectionRepository, states oauth.StateCache, opts Options) *Service {
	if states == nil {
		states = oauth.NopStateCache{}
	}
	if opts.ErrorPath == "" {
		opts.ErrorPath = "/dashboard"
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")
	return &Service{
		providers:   providers,
		exchanger:   exchanger,
		connections: connections,
		states:      states,
		opts:        opts,
		now:         time.Now,
	}
}

// ErrorRedirect returns the application URL that displays message as an error.
func (s *Service) ErrorRedirect(message string) string {
	return s.opts.AppURL + s.opts.ErrorPath + "?" + url.Values{"error": {message}}.Encode()
}

func (s *Service) successRedirect(p provider.ProviderConfig) string {
	q := url.Values{
		"connected": {p.Name},
		"message":   {p.DisplayName + " connected"},
	}
	return s.opts.AppURL + p.SuccessPath + "?" + q.Encode()
}

// AuthorizeURL returns the provider authorize URL for userID and records a
// pending connect when state tracking is enabled.
func (s *Service) AuthorizeURL(ctx context.Context, userID, providerName string) (string, error) {
	userID, err := oauth.ParseState(userID)
	if err != nil {
		return "", newError(KindInvalidUser, http.StatusBadRequest, "user id cannot be used as connect state", err)
	}
	p, cerr := s.lookup(providerName)
	if cerr != nil {
		return "", cerr
	}
	if err := s.states.Issue(ctx, p.Name, userID, s.opts.StateTTL); err != nil {
		return "", s.internal("could not record connect state", err)
	}
	logger.Info("Connect started", "provider", p.Name, "userID", userID)
	return s.exchanger.AuthCodeURL(p, userID), nil
}

// ConnectionStatus describes one provider connection without secrets.
type ConnectionStatus struct {
	Provider        string     `json:"provider"`
	DisplayName     string     `json:"display_name,omitempty"`
	Connected       bool       `json:"connected"`
	HasRefreshToken bool       `json:"has_refresh_token"`
	TokenType       string     `json:"token_type,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Expired         bool       `json:"expired"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// ListConnections reports every stored connection of userID plus the enabled
// providers it has not connected yet.
func (s *Service) ListConnections(ctx context.Context, userID string) ([]ConnectionStatus, error) {
	if userID == "" {
		return nil, ErrUnauthorized(nil)
	}
	accounts, err := s.connections.ListConnections(ctx, canonicalUser(userID))
	if err != nil {
		return nil, s.internal("could not list connections", err)
	}

	now := s.now()
	seen := make(map[string]bool, len(accounts))
	statuses := make([]ConnectionStatus, 0, len(accounts))
	for _, a := range accounts {
		expiresAt, updatedAt := a.ExpiresAt, a.UpdatedAt
		st := ConnectionStatus{
			Provider:        a.Provider,
			Connected:       true,
			HasRefreshToken: a.RefreshToken != "",
			TokenType:       a.TokenType,
			Scope:           a.Scope,
			ExpiresAt:       &expiresAt,
			Expired:         !now.Before(a.ExpiresAt),
			UpdatedAt:       &updatedAt,
		}
		if p, err := s.providers.ConfigFor(a.Provider); err == nil {
			st.DisplayName = p.DisplayName
		}
		seen[a.Provider] = true
		statuses = append(statuses, st)
	}
	for _, name := range s.providers.Enabled() {
		if seen[name] {
			continue
		}
		p, _ := s.providers.ConfigFor(name)
		statuses = append(statuses, ConnectionStatus{Provider: name, DisplayName: p.DisplayName})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Provider < statuses[j].Provider })
	return statuses, nil
}

// lookup resolves a provider or returns the API error for it.
func (s *Service) lookup(name string) (provider.ProviderConfig, *Error) {
	p, err := s.providers.ConfigFor(name)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, provider.ErrUnknownProvider):
		return p, newError(KindUnknownProvider, http.StatusNotFound, "unknown provider: "+name, err)
	case errors.Is(err, provider.ErrNotConfigured):
		return p, newError(KindNotConfigured, http.StatusInternalServerError, "provider not configured: "+name, err)
	default:
		return p, s.internal("provider lookup failed", err)
	}
}

// canonicalUser maps a UUID subject to the lowercase form stored by callbacks.
// Other subjects pass through unchanged.
func canonicalUser(id string) string {
	if c, err := oauth.ParseState(id); err == nil {
		return c
	}
	return id
}

func (s *Service) internal(message string, err error) *Error {
	if s.opts.ExposeErrorDetail && err != nil {
		message += ": " + err.Error()
	}
	return newError(KindInternal, http.StatusInternalServerError, message, err)
}
