// Package testutil provides shared fixtures for package tests
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/db"
)

// TestDatabase creates an in-memory SQLite database with the schema applied
func TestDatabase(t *testing.T) *db.Service {
	t.Helper()

	cfg := &config.Config{
		DatabaseURL: ":memory:",
		AppEnv:      config.EnvTest,
	}

	dbService, err := db.NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := dbService.MigrateUp(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := dbService.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return dbService
}

// TestServer creates a test HTTP server around handler
func TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// NewUserID returns a fresh canonical user id.
func NewUserID() string {
	return uuid.NewString()
}
