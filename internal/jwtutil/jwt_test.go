package jwtutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

const testSecret = "super-secret-jwt-signing-key-for-tests"

func TestParseAndValidateJWT_InvalidToken(t *testing.T) {
	// Test with an invalid token format
	_, err := ParseAndValidateJWT(context.Background(), "invalid.jwt.token", HMACKey(testSecret), "")
	if err == nil {
		t.Fatal("expected error with invalid token")
	}
}

func TestMintAndParse(t *testing.T) {
	token, err := MintHS256(testSecret, "3f2504e0-4f89-41d3-9a0c-0305e82c3301", "authenticated", time.Hour)
	if err != nil {
		t.Fatalf("MintHS256 error: %v", err)
	}

	claims, err := ParseAndValidateJWT(context.Background(), token, HMACKey(testSecret), "authenticated")
	if err != nil {
		t.Fatalf("ParseAndValidateJWT error: %v", err)
	}
	if claims.Sub != "3f2504e0-4f89-41d3-9a0c-0305e82c3301" {
		t.Errorf("sub = %q", claims.Sub)
	}
	if claims.Role != "authenticated" {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.Aud != "authenticated" {
		t.Errorf("aud = %q", claims.Aud)
	}
}

func TestParseAndValidateJWT_Rejects(t *testing.T) {
	good, _ := MintHS256(testSecret, "user", "app", time.Hour)
	expired, _ := MintHS256(testSecret, "user", "", -time.Hour)

	tests := []struct {
		name     string
		token    string
		secret   string
		audience string
	}{
		{"wrong secret", good, "another-secret", ""},
		{"wrong audience", good, testSecret, "other-app"},
		{"expired", expired, testSecret, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAndValidateJWT(context.Background(), tt.token, HMACKey(tt.secret), tt.audience); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMintHS256_RequiresInputs(t *testing.T) {
	if _, err := MintHS256("", "user", "", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := MintHS256(testSecret, "", "", time.Hour); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("expected ErrMissingSubject, got %v", err)
	}
}
