package provider

import (
	"fmt"
	"sort"

	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/logger"
)

// Registry holds every known provider and allows lookup by name. It is built
// once and never mutated.
type Registry struct {
	providers map[string]ProviderConfig
}

// NewRegistry builds the registry from application configuration. A provider
// with only part of its credentials set is rejected so misconfiguration
// surfaces at start-up rather than as a remote 401.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	fitbit := FitbitAdapter()
	fitbit.ClientID = cfg.FitbitClientID
	fitbit.ClientSecret = cfg.FitbitClientSecret
	fitbit.RedirectURI = cfg.FitbitRedirectURI
	overrideURL(&fitbit.TokenURL, cfg.FitbitTokenURL)
	overrideURL(&fitbit.AuthURL, cfg.FitbitAuthURL)

	oura := OuraAdapter()
	oura.ClientID = cfg.OuraClientID
	oura.ClientSecret = cfg.OuraClientSecret
	oura.RedirectURI = cfg.OuraRedirectURI
	overrideURL(&oura.TokenURL, cfg.OuraTokenURL)
	overrideURL(&oura.AuthURL, cfg.OuraAuthURL)

	return Build(fitbit, oura)
}

// Build registers the given provider configs by name. Names must be unique.
func Build(list ...ProviderConfig) (*Registry, error) {
	m := make(map[string]ProviderConfig, len(list))
	for _, p := range list {
		if _, dup := m[p.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.Name)
		}
		if n := p.credentialsSet(); n > 0 && n < 3 {
			return nil, fmt.Errorf("%s: %w (client id, client secret and redirect uri are all required)", p.Name, ErrIncompleteConfig)
		}
		if p.Configured() {
			logger.Info("Provider enabled", "provider", p.Name, "tokenURL", p.TokenURL, "clientID", logger.Mask(p.ClientID))
		} else {
			logger.Info("Provider disabled, no credentials", "provider", p.Name)
		}
		p.Scopes = append([]string(nil), p.Scopes...)
		m[p.Name] = p
	}
	return &Registry{providers: m}, nil
}

// ConfigFor returns the configuration for name. Unknown names fail with
// ErrUnknownProvider; known but credential-less providers with ErrNotConfigured.
func (r *Registry) ConfigFor(name string) (ProviderConfig, error) {
	p, ok := r.providers[name]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !p.Configured() {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	p.Scopes = append([]string(nil), p.Scopes...)
	return p, nil
}

// Enabled returns the names of configured providers, sorted.
func (r *Registry) Enabled() []string {
	var names []string
	for name, p := range r.providers {
		if p.Configured() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RequireEnabled fails when no provider has credentials.
func (r *Registry) RequireEnabled() error {
	if len(r.Enabled()) == 0 {
		return ErrNoProvidersEnabled
	}
	return nil
}

func overrideURL(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
