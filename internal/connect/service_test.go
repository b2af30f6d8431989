package connect

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrschumacher/fitlink/internal/oauth"
	"github.com/jrschumacher/fitlink/internal/provider"
	"github.com/jrschumacher/fitlink/internal/repository"
	"github.com/jrschumacher/fitlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExchanger records calls and returns canned results.
type fakeExchanger struct {
	codeCalls    int
	refreshCalls int
	lastRefresh  string
	result       *oauth.TokenResult
	err          error
}

func (f *fakeExchanger) AuthCodeURL(p provider.ProviderConfig, state string) string {
	return p.AuthURL + "?state=" + state
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _ provider.ProviderConfig, _ string) (*oauth.TokenResult, error) {
	f.codeCalls++
	return f.result, f.err
}

func (f *fakeExchanger) ExchangeRefreshToken(_ context.Context, _ provider.ProviderConfig, rt string) (*oauth.TokenResult, error) {
	f.refreshCalls++
	f.lastRefresh = rt
	return f.result, f.err
}

type fixture struct {
	svc   *Service
	ex    *fakeExchanger
	repo  repository.ConnectionRepository
	user  string
	fixed time.Time
}

func newFixture(t *testing.T, states oauth.StateCache) *fixture {
	t.Helper()

	fitbit := provider.FitbitAdapter()
	fitbit.ClientID, fitbit.ClientSecret, fitbit.RedirectURI = "id", "secret", "https://app.example.com/auth/fitbit/callback"
	reg, err := provider.Build(fitbit, provider.OuraAdapter())
	require.NoError(t, err)

	fixed := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ex := &fakeExchanger{result: &oauth.TokenResult{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		TokenType:    "Bearer",
		Scope:        "activity",
		ExpiresIn:    8 * time.Hour,
		ExpiresAt:    fixed.Add(8 * time.Hour),
	}}
	repo := repository.NewConnectionRepository(testutil.TestDatabase(t))
	svc := NewService(reg, ex, repo, states, Options{AppURL: "https://app.example.com/", ErrorPath: "/dashboard"})
	svc.now = func() time.Time { return fixed }

	return &fixture{svc: svc, ex: ex, repo: repo, user: testutil.NewUserID(), fixed: fixed}
}

func errorParam(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", u.Path)
	return u.Query().Get("error")
}

func TestHandleCallback_Failures(t *testing.T) {
	f := newFixture(t, nil)
	valid := f.user

	tests := []struct {
		name     string
		provider string
		params   CallbackParams
		want     string
	}{
		{"provider error", "fitbit", CallbackParams{Error: "access_denied", Code: "c", State: valid}, "access_denied"},
		{"provider error with description", "fitbit", CallbackParams{Error: "access_denied", ErrorDescription: "user said no"}, "access_denied: user said no"},
		{"no code", "fitbit", CallbackParams{State: valid}, ReasonNoCode},
		{"missing state", "fitbit", CallbackParams{Code: "c"}, ReasonInvalidState},
		{"malformed state", "fitbit", CallbackParams{Code: "c", State: "user-42"}, ReasonInvalidState},
		{"unknown provider", "garmin", CallbackParams{Code: "c", State: valid}, ReasonUnknownProvider},
		{"unconfigured provider", "oura", CallbackParams{Code: "c", State: valid}, ReasonServerConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.svc.HandleCallback(context.Background(), tt.provider, tt.params)
			assert.False(t, out.Connected)
			assert.Equal(t, tt.want, errorParam(t, out.RedirectURL))
		})
	}
	assert.Zero(t, f.ex.codeCalls, "no local failure may reach the provider")
}

func TestHandleCallback_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	out := f.svc.HandleCallback(ctx, "fitbit", CallbackParams{Code: "abc123", State: f.user})
	require.True(t, out.Connected, out.Reason)
	assert.Equal(t, 1, f.ex.codeCalls)
	assert.Equal(t, "https://app.example.com/dashboard?connected=fitbit&message=Fitbit+connected", out.RedirectURL)

	acct, err := f.repo.GetConnection(ctx, f.user, "fitbit")
	require.NoError(t, err)
	assert.Equal(t, "AT1", acct.AccessToken)
	assert.Equal(t, "RT1", acct.RefreshToken)
	assert.True(t, acct.ExpiresAt.Equal(f.fixed.Add(8*time.Hour)))
}

func TestHandleCallback_ExchangeFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.ex.result = nil
	f.ex.err = &oauth.ExchangeError{Status: http.StatusBadRequest, Body: map[string]any{"error": "invalid_grant"}}

	out := f.svc.HandleCallback(context.Background(), "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.Equal(t, ReasonExchangeFailed, errorParam(t, out.RedirectURL))

	_, err := f.repo.GetConnection(context.Background(), f.user, "fitbit")
	assert.ErrorIs(t, err, repository.ErrConnectionNotFound)
}

func TestHandleCallback_SaveFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.ex.result = &oauth.TokenResult{TokenType: "Bearer", ExpiresAt: f.fixed}

	out := f.svc.HandleCallback(context.Background(), "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.Equal(t, ReasonSaveFailed+": connection could not be stored", errorParam(t, out.RedirectURL))
	assert.NotContains(t, out.RedirectURL, "invalid+input")

	f.svc.opts.ExposeErrorDetail = true
	out = f.svc.HandleCallback(context.Background(), "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.Equal(t, ReasonSaveFailed+": invalid input: user id, provider and access token are required",
		errorParam(t, out.RedirectURL))
}

func TestHandleCallback_UppercaseStateMatchesBearerSubject(t *testing.T) {
	f := newFixture(t, oauth.NewMemoryStateCache())
	ctx := context.Background()

	_, err := f.svc.AuthorizeURL(ctx, f.user, "fitbit")
	require.NoError(t, err)

	out := f.svc.HandleCallback(ctx, "fitbit", CallbackParams{Code: "c", State: strings.ToUpper(f.user)})
	require.True(t, out.Connected, out.Reason)

	acc, err := f.repo.GetConnection(ctx, f.user, "fitbit")
	require.NoError(t, err)
	assert.Equal(t, f.user, acc.UserID)

	res, err := f.svc.Refresh(ctx, strings.ToUpper(f.user), "fitbit")
	require.NoError(t, err)
	assert.Equal(t, "RT1", res.RefreshToken)
}

func TestHandleCallback_PendingState(t *testing.T) {
	f := newFixture(t, oauth.NewMemoryStateCache())
	ctx := context.Background()

	out := f.svc.HandleCallback(ctx, "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.Equal(t, ReasonInvalidState, errorParam(t, out.RedirectURL))
	assert.Zero(t, f.ex.codeCalls)

	authURL, err := f.svc.AuthorizeURL(ctx, f.user, "fitbit")
	require.NoError(t, err)
	assert.Contains(t, authURL, "state="+f.user)

	out = f.svc.HandleCallback(ctx, "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.True(t, out.Connected, out.Reason)

	out = f.svc.HandleCallback(ctx, "fitbit", CallbackParams{Code: "c", State: f.user})
	assert.Equal(t, ReasonInvalidState, errorParam(t, out.RedirectURL), "state is single use")
}

func seed(t *testing.T, f *fixture, refresh string) {
	t.Helper()
	require.NoError(t, f.repo.UpsertOnConnect(context.Background(), &repository.ConnectedAccount{
		UserID:       f.user,
		Provider:     "fitbit",
		AccessToken:  "AT1",
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Scope:        "activity",
		ExpiresAt:    f.fixed,
	}))
}

func TestRefresh_KeepsStoredRefreshToken(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f, "RT1")
	f.ex.result = &oauth.TokenResult{
		AccessToken: "AT2",
		TokenType:   "Bearer",
		ExpiresIn:   24 * time.Hour,
		ExpiresAt:   f.fixed.Add(24 * time.Hour),
	}

	res, err := f.svc.Refresh(context.Background(), f.user, "fitbit")
	require.NoError(t, err)
	assert.Equal(t, "RT1", f.ex.lastRefresh)
	assert.Equal(t, "AT2", res.AccessToken)
	assert.Equal(t, "RT1", res.RefreshToken)
	assert.True(t, res.ExpiresAt.Equal(f.fixed.Add(24*time.Hour)))

	rt, err := f.repo.ReadRefreshToken(context.Background(), f.user, "fitbit")
	require.NoError(t, err)
	assert.Equal(t, "RT1", rt)
}

func TestRefresh_RotatedRefreshToken(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f, "RT1")
	f.ex.result = &oauth.TokenResult{AccessToken: "AT2", RefreshToken: "RT2", TokenType: "Bearer", ExpiresAt: f.fixed.Add(time.Hour)}

	res, err := f.svc.Refresh(context.Background(), f.user, "fitbit")
	require.NoError(t, err)
	assert.Equal(t, "RT2", res.RefreshToken)

	rt, _ := f.repo.ReadRefreshToken(context.Background(), f.user, "fitbit")
	assert.Equal(t, "RT2", rt)
}

func TestRefresh_Errors(t *testing.T) {
	tests := []struct {
		name     string
		user     func(f *fixture) string
		provider string
		refresh  *string
		exErr    error
		kind     Kind
		status   int
	}{
		{"no identity", func(*fixture) string { return "" }, "fitbit", nil, nil, KindUnauthorized, 401},
		{"unknown provider", nil, "garmin", nil, nil, KindUnknownProvider, 404},
		{"not configured", nil, "oura", nil, nil, KindNotConfigured, 500},
		{"no connection", nil, "fitbit", nil, nil, KindConnectionNotFound, 404},
		{"null refresh token", nil, "fitbit", strPtr(""), nil, KindNoRefreshToken, 400},
		{"upstream 400", nil, "fitbit", strPtr("RT1"), &oauth.ExchangeError{Status: 400, Body: map[string]any{"error": "invalid_grant"}}, KindExchangeFailed, 400},
		{"upstream 503", nil, "fitbit", strPtr("RT1"), &oauth.ExchangeError{Status: 503, Body: map[string]any{}}, KindExchangeFailed, 503},
		{"transport", nil, "fitbit", strPtr("RT1"), errors.New("dial tcp: refused"), KindExchangeFailed, 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tt.refresh != nil {
				seed(t, f, *tt.refresh)
			}
			if tt.exErr != nil {
				f.ex.result, f.ex.err = nil, tt.exErr
			}
			user := f.user
			if tt.user != nil {
				user = tt.user(f)
			}

			_, err := f.svc.Refresh(context.Background(), user, tt.provider)
			ce, ok := AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.status, ce.Status)
			if tt.refresh == nil || *tt.refresh == "" {
				assert.Zero(t, f.ex.refreshCalls)
			}
		})
	}
}

func TestRefresh_ExchangeMessageCarriesProviderCode(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f, "RT1")
	f.ex.result, f.ex.err = nil, &oauth.ExchangeError{Status: 401, Body: map[string]any{"error": "invalid_token"}}

	_, err := f.svc.Refresh(context.Background(), f.user, "fitbit")
	ce, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "token refresh failed: invalid_token", ce.Message)
}

func TestAuthorizeURL_Errors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.AuthorizeURL(context.Background(), "not-a-uuid", "fitbit")
	ce, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidUser, ce.Kind)

	_, err = f.svc.AuthorizeURL(context.Background(), f.user, "garmin")
	ce, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ce.Status)
}

func TestListConnections(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f, "RT1")

	statuses, err := f.svc.ListConnections(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "fitbit", statuses[0].Provider)
	assert.Equal(t, "Fitbit", statuses[0].DisplayName)
	assert.True(t, statuses[0].Connected)
	assert.True(t, statuses[0].HasRefreshToken)
	assert.True(t, statuses[0].Expired, "seeded expiry equals now")

	other, err := f.svc.ListConnections(context.Background(), testutil.NewUserID())
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.False(t, other[0].Connected)
}

func strPtr(s string) *string { return &s }
