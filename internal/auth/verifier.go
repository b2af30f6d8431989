// Package auth resolves application bearer credentials to a user identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/jwtutil"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Claims *jwtutil.JWTClaims
}

// Verifier resolves a bearer token to an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWTVerifier verifies application JWTs with a shared secret or a remote JWKS.
type JWTVerifier struct {
	key      jwt.ParseOption
	audience string
}

// NewJWTVerifier builds a verifier from config. A configured JWKS URL takes
// precedence over the shared secret and is fetched once up front.
func NewJWTVerifier(ctx context.Context, cfg *config.Config) (*JWTVerifier, error) {
	if cfg.AuthJWKSURL != "" {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(cfg.AuthJWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return nil, fmt.Errorf("register JWKS %s: %w", cfg.AuthJWKSURL, err)
		}
		if _, err := cache.Refresh(ctx, cfg.AuthJWKSURL); err != nil {
			return nil, fmt.Errorf("fetch JWKS %s: %w", cfg.AuthJWKSURL, err)
		}
		logger.Info("Bearer verification using JWKS", "url", cfg.AuthJWKSURL)
		return &JWTVerifier{
			key:      jwtutil.KeySet(jwk.NewCachedSet(cache, cfg.AuthJWKSURL)),
			audience: cfg.AuthAudience,
		}, nil
	}

	if cfg.AuthJWTSecret == "" {
		return nil, errors.New("no bearer verification key configured")
	}
	return NewHMACVerifier(cfg.AuthJWTSecret, cfg.AuthAudience), nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{
		key:      jwtutil.HMACKey(secret),
		audience: audience,
	}
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := jwtutil.ParseAndValidateJWT(ctx, token, v.key, v.audience)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{UserID: claims.Sub, Claims: claims}, nil
}
