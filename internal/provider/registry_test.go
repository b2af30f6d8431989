package provider

import (
	"errors"
	"testing"

	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func configured(p ProviderConfig) ProviderConfig {
	p.ClientID = p.Name + "-id"
	p.ClientSecret = p.Name + "-secret"
	p.RedirectURI = "https://app.example.com/auth/" + p.Name + "/callback"
	return p
}

func TestConfigFor(t *testing.T) {
	reg, err := Build(configured(FitbitAdapter()), OuraAdapter())
	require.NoError(t, err)

	t.Run("configured", func(t *testing.T) {
		p, err := reg.ConfigFor(Fitbit)
		require.NoError(t, err)
		assert.Equal(t, "Fitbit", p.DisplayName)
		assert.Equal(t, "fitbit-id", p.ClientID)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := reg.ConfigFor(Oura)
		assert.True(t, errors.Is(err, ErrNotConfigured), "got %v", err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := reg.ConfigFor("garmin")
		assert.True(t, errors.Is(err, ErrUnknownProvider), "got %v", err)
	})
}

func TestBuild_RejectsPartialCredentials(t *testing.T) {
	p := FitbitAdapter()
	p.ClientID = "only-id"

	_, err := Build(p)
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestBuild_RejectsDuplicates(t *testing.T) {
	_, err := Build(FitbitAdapter(), FitbitAdapter())
	assert.Error(t, err)
}

func TestEnabled(t *testing.T) {
	reg, err := Build(configured(OuraAdapter()), configured(FitbitAdapter()))
	require.NoError(t, err)
	assert.Equal(t, []string{Fitbit, Oura}, reg.Enabled())
	assert.NoError(t, reg.RequireEnabled())

	empty, err := Build(FitbitAdapter(), OuraAdapter())
	require.NoError(t, err)
	assert.Empty(t, empty.Enabled())
	assert.ErrorIs(t, empty.RequireEnabled(), ErrNoProvidersEnabled)
}

func TestNewRegistry_AppliesOverrides(t *testing.T) {
	cfg := &config.Config{
		OuraClientID:     "oid",
		OuraClientSecret: "osecret",
		OuraRedirectURI:  "https://app.example.com/auth/oura/callback",
		OuraTokenURL:     "http://127.0.0.1:9999/token",
	}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	p, err := reg.ConfigFor(Oura)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/token", p.TokenURL)
	assert.Equal(t, "https://cloud.ouraring.com/oauth/authorize", p.AuthURL)
	assert.Equal(t, 24*60*60, int(p.DefaultLifetime.Seconds()))

	_, err = reg.ConfigFor(Fitbit)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOAuth2Config_UsesBasicAuth(t *testing.T) {
	oc := configured(FitbitAdapter()).OAuth2Config()
	assert.Equal(t, "fitbit-id", oc.ClientID)
	assert.Equal(t, FitbitAdapter().TokenURL, oc.Endpoint.TokenURL)
	assert.Equal(t, oauth2.AuthStyleInHeader, oc.Endpoint.AuthStyle)
}
