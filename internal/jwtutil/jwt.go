// Package jwtutil provides utilities for working with application bearer JWTs
package jwtutil

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrMissingSubject is returned when the JWT is missing a subject (user id)
	ErrMissingSubject = fmt.Errorf("missing subject in token")
	// ErrMissingSecret is returned when signing without a secret
	ErrMissingSecret = fmt.Errorf("missing signing secret")
)

// acceptableSkew tolerates small clock drift between issuer and this service.
const acceptableSkew = 30 * time.Second

// JWTClaims represents the claims we care about from a JWT token
type JWTClaims struct {
	Iss   string `json:"iss"`   // Issuer
	Sub   string `json:"sub"`   // Subject (user id)
	Aud   string `json:"aud"`   // Audience
	Exp   int64  `json:"exp"`   // Expiry time
	Iat   int64  `json:"iat"`   // Issued at
	Role  string `json:"role"`  // Role claim set by hosted auth providers
	Email string `json:"email"` // Email, when present
}

// HMACKey verifies HS256 tokens signed with secret.
func HMACKey(secret string) jwt.ParseOption {
	return jwt.WithKey(jwa.HS256, []byte(secret))
}

// KeySet verifies tokens against a JWKS, selecting the key by kid.
func KeySet(set jwk.Set) jwt.ParseOption {
	return jwt.WithKeySet(set)
}

// ParseAndValidateJWT parses, verifies and validates a JWT using the jwx library.
// Expiry is always validated; audience only when non-empty.
func ParseAndValidateJWT(_ context.Context, tokenString string, key jwt.ParseOption, audience string) (*JWTClaims, error) {
	opts := []jwt.ParseOption{
		key,
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(acceptableSkew),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse and verify JWT: %w", err)
	}

	claims := &JWTClaims{
		Iss: token.Issuer(),
		Sub: token.Subject(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}

	// Get audience (may be a string or []string)
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}

	claims.Role = stringClaim(token, "role")
	claims.Email = stringClaim(token, "email")

	if claims.Sub == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// MintHS256 issues a signed token for subject. Intended for local development.
func MintHS256(secret, subject, audience string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if subject == "" {
		return "", ErrMissingSubject
	}

	now := time.Now()
	b := jwt.NewBuilder().
		Issuer("fitlink").
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim("role", "authenticated")
	if audience != "" {
		b = b.Audience([]string{audience})
	}

	token, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build JWT: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return string(signed), nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
