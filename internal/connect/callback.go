package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/oauth"
	"github.com/jrschumacher/fitlink/internal/provider"
	"github.com/jrschumacher/fitlink/internal/repository"
)

// CallbackParams are the query parameters a provider sends back to the callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Callback failure reasons, as shown to the user.
const (
	ReasonNoCode          = "no code"
	ReasonInvalidState    = "invalid state"
	ReasonUnknownProvider = "unknown provider"
	ReasonServerConfig    = "server config"
	ReasonExchangeFailed  = "exchange failed"
	ReasonSaveFailed      = "save failed"
)

// CallbackOutcome is where the browser goes after a callback.
type CallbackOutcome struct {
	RedirectURL string
	Connected   bool
	// Reason is the error text carried on failure.
	Reason string
}

// HandleCallback completes a connect. Checks run in a fixed order and the
// provider is only contacted once every local check has passed.
func (s *Service) HandleCallback(ctx context.Context, providerName string, params CallbackParams) CallbackOutcome {
	log := logger.With("provider", providerName)

	if params.Error != "" {
		reason := params.Error
		if params.ErrorDescription != "" {
			reason += ": " + params.ErrorDescription
		}
		log.Warn("Provider returned an error", "error", params.Error)
		return s.fail(reason)
	}

	if params.Code == "" {
		log.Warn("Callback without authorization code")
		return s.fail(ReasonNoCode)
	}

	userID, err := oauth.ParseState(params.State)
	if err != nil {
		log.Warn("Callback with invalid state", "error", err)
		return s.fail(ReasonInvalidState)
	}
	log = log.With("userID", userID)

	p, err := s.providers.ConfigFor(providerName)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			log.Warn("Callback for unknown provider")
			return s.fail(ReasonUnknownProvider)
		}
		log.Error("Callback for unconfigured provider", "error", err)
		return s.fail(ReasonServerConfig)
	}

	ok, err := s.states.Consume(ctx, p.Name, userID)
	if err != nil {
		log.Error("Could not check pending connect", "error", err)
		return s.fail(ReasonInvalidState)
	}
	if !ok {
		log.Warn("No pending connect for state")
		return s.fail(ReasonInvalidState)
	}

	tokens, err := s.exchanger.ExchangeCode(ctx, p, params.Code)
	if err != nil {
		log.Error("Code exchange failed", "error", err)
		return s.fail(ReasonExchangeFailed)
	}

	account := &repository.ConnectedAccount{
		UserID:       userID,
		Provider:     p.Name,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Scope:        tokens.Scope,
		ExpiresAt:    tokens.ExpiresAt,
	}
	if err := s.connections.UpsertOnConnect(ctx, account); err != nil {
		log.Error("Could not save connection", "error", err)
		detail := "connection could not be stored"
		if s.opts.ExposeErrorDetail {
			detail = err.Error()
		}
		return s.fail(fmt.Sprintf("%s: %s", ReasonSaveFailed, detail))
	}

	log.Info("Provider connected", "expiresAt", tokens.ExpiresAt, "hasRefreshToken", tokens.RefreshToken != "")
	return CallbackOutcome{RedirectURL: s.successRedirect(p), Connected: true}
}

func (s *Service) fail(reason string) CallbackOutcome {
	return CallbackOutcome{RedirectURL: s.ErrorRedirect(reason), Reason: reason}
}
