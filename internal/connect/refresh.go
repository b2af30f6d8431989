package connect

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/oauth"
	"github.com/jrschumacher/fitlink/internal/repository"
)

// RefreshResult is the credential set after a successful refresh.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TokenType    string
}

// Refresh exchanges the stored refresh token of (userID, provider) for a new
// access token and persists the result. Failures are *Error values.
func (s *Service) Refresh(ctx context.Context, userID, providerName string) (*RefreshResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized(nil)
	}
	userID = canonicalUser(userID)
	log := logger.With("provider", providerName, "userID", userID)

	p, cerr := s.lookup(providerName)
	if cerr != nil {
		log.Warn("Refresh rejected", "error", cerr)
		return nil, cerr
	}

	stored, err := s.connections.ReadRefreshToken(ctx, userID, p.Name)
	switch {
	case errors.Is(err, repository.ErrConnectionNotFound):
		return nil, newError(KindConnectionNotFound, http.StatusNotFound, "connection not found, reconnect required", err)
	case errors.Is(err, repository.ErrNoRefreshToken):
		return nil, newError(KindNoRefreshToken, http.StatusBadRequest, "no refresh token available, reconnect required", err)
	case err != nil:
		log.Error("Could not read refresh token", "error", err)
		return nil, s.internal("could not read connection", err)
	}

	tokens, err := s.exchanger.ExchangeRefreshToken(ctx, p, stored)
	if err != nil {
		log.Error("Refresh exchange failed", "error", err)
		return nil, exchangeFailed(err)
	}

	effective := tokens.RefreshToken
	if effective == "" {
		effective = stored
	}

	err = s.connections.UpdateOnRefresh(ctx, repository.RefreshUpdateParams{
		UserID:       userID,
		Provider:     p.Name,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresAt:    tokens.ExpiresAt,
	})
	if errors.Is(err, repository.ErrConnectionNotFound) {
		return nil, newError(KindConnectionNotFound, http.StatusNotFound, "connection not found, reconnect required", err)
	}
	if err != nil {
		log.Error("Could not store refreshed tokens", "error", err)
		return nil, s.internal("could not save refreshed tokens", err)
	}

	log.Info("Tokens refreshed", "expiresAt", tokens.ExpiresAt, "rotated", tokens.RefreshToken != "")
	return &RefreshResult{
		AccessToken:  tokens.AccessToken,
		RefreshToken: effective,
		ExpiresAt:    tokens.ExpiresAt,
		TokenType:    tokens.TokenType,
	}, nil
}

// exchangeFailed maps an upstream failure onto the response status: upstream
// 4xx and 5xx pass through, anything else is a bad gateway.
func exchangeFailed(err error) *Error {
	status := http.StatusBadGateway
	message := "token refresh failed"

	var xe *oauth.ExchangeError
	if errors.As(err, &xe) {
		if xe.Status >= 400 && xe.Status <= 599 {
			status = xe.Status
		}
		if code, ok := xe.Body["error"].(string); ok && code != "" {
			message += ": " + code
		}
	}
	return newError(KindExchangeFailed, status, message, err)
}
