package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jrschumacher/fitlink/internal/provider"
	"golang.org/x/oauth2"
)

// TokenResult is a normalized provider token response.
type TokenResult struct {
	AccessToken string
	// RefreshToken is empty when the provider did not return one.
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    time.Duration
	ExpiresAt    time.Time
}

// ExchangeError describes a failed token exchange.
type ExchangeError struct {
	// Status is the upstream HTTP status, or 502 when no usable reply arrived.
	Status int
	Body   map[string]any
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed (%d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("token exchange failed (%d)", e.Status)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Client performs authorization-code and refresh-token exchanges.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewClient returns a client whose provider calls are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// WithClock replaces the clock used to compute absolute expiry.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// AuthCodeURL builds the provider authorize URL carrying state.
func (c *Client) AuthCodeURL(p provider.ProviderConfig, state string) string {
	return p.OAuth2Config().AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, p provider.ProviderConfig, code string) (*TokenResult, error) {
	tok, err := p.OAuth2Config().Exchange(c.context(ctx), code)
	if err != nil {
		return nil, exchangeError(err)
	}
	return c.result(p, tok), nil
}

// ExchangeRefreshToken trades a refresh token for a new access token.
func (c *Client) ExchangeRefreshToken(ctx context.Context, p provider.ProviderConfig, refreshToken string) (*TokenResult, error) {
	src := p.OAuth2Config().TokenSource(c.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, exchangeError(err)
	}
	return c.result(p, tok), nil
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) result(p provider.ProviderConfig, tok *oauth2.Token) *TokenResult {
	lifetime := p.DefaultLifetime
	if secs, ok := expiresIn(tok.Extra("expires_in")); ok {
		lifetime = time.Duration(secs) * time.Second
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	res := &TokenResult{
		AccessToken: tok.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   lifetime,
		ExpiresAt:   c.now().UTC().Add(lifetime),
	}
	// x/oauth2 copies the request's refresh token into the result when the
	// provider omits one, so read the raw response field instead.
	if rt, ok := extraString(tok.Extra("refresh_token")); ok {
		res.RefreshToken = rt
	}
	if scope, ok := extraString(tok.Extra("scope")); ok {
		res.Scope = scope
	}
	return res
}

func expiresIn(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	}
	return 0, false
}

// extraString reads a textual response field. Form-encoded replies surface
// digit-only values as numbers.
func extraString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, s != ""
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	}
	return "", false
}

func exchangeError(err error) *ExchangeError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		body := map[string]any{}
		if len(re.Body) > 0 {
			if jerr := json.Unmarshal(re.Body, &body); jerr != nil {
				body = map[string]any{}
			}
		}
		status := re.Response.StatusCode
		// An error document on a 2xx reply is still an upstream failure.
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return &ExchangeError{Status: status, Body: body, Err: err}
	}
	return &ExchangeError{Status: http.StatusBadGateway, Body: map[string]any{}, Err: err}
}
