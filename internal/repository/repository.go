// Package repository persists provider connections.
package repository

import (
	"context"
	"time"

	"github.com/jrschumacher/fitlink/internal/db"
)

// ConnectionRepository stores one credential row per (user, provider).
type ConnectionRepository interface {
	UpsertOnConnect(ctx context.Context, account *ConnectedAccount) error
	ReadRefreshToken(ctx context.Context, userID, provider string) (string, error)
	UpdateOnRefresh(ctx context.Context, params RefreshUpdateParams) error
	GetConnection(ctx context.Context, userID, provider string) (*ConnectedAccount, error)
	ListConnections(ctx context.Context, userID string) ([]*ConnectedAccount, error)
}

// ConnectedAccount is a user's stored credentials for one provider
type ConnectedAccount struct {
	UserID      string
	Provider    string
	AccessToken string
	// RefreshToken is empty when none is stored.
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshUpdateParams describes the outcome of a token refresh
type RefreshUpdateParams struct {
	UserID      string
	Provider    string
	AccessToken string
	// RefreshToken replaces the stored one only when non-empty.
	RefreshToken string
	// TokenType replaces the stored one only when non-empty.
	TokenType string
	ExpiresAt time.Time
}

// NewConnectionRepository creates a repository backed by dbService
func NewConnectionRepository(dbService *db.Service) ConnectionRepository {
	return &connectionRepository{
		dbService: dbService,
		now:       time.Now,
	}
}
