package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrschumacher/fitlink/internal/db"
)

// connectionRepository implements ConnectionRepository
type connectionRepository struct {
	dbService *db.Service
	now       func() time.Time
}

const upsertConnectionSQL = `
INSERT INTO connected_accounts
	(user_id, provider, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, provider) DO UPDATE SET
	access_token  = excluded.access_token,
	refresh_token = COALESCE(excluded.refresh_token, connected_accounts.refresh_token),
	token_type    = excluded.token_type,
	scope         = excluded.scope,
	expires_at    = excluded.expires_at,
	updated_at    = excluded.updated_at`

const updateOnRefreshSQL = `
UPDATE connected_accounts SET
	access_token  = ?,
	refresh_token = COALESCE(?, refresh_token),
	token_type    = COALESCE(?, token_type),
	expires_at    = ?,
	updated_at    = ?
WHERE user_id = ? AND provider = ?`

const selectConnectionColumns = `
SELECT user_id, provider, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
FROM connected_accounts`

// UpsertOnConnect inserts or fully replaces the row for (user, provider) in a
// single statement. A missing refresh token keeps the stored one.
func (r *connectionRepository) UpsertOnConnect(ctx context.Context, account *ConnectedAccount) error {
	if account == nil || account.UserID == "" || account.Provider == "" || account.AccessToken == "" {
		return fmt.Errorf("%w: user id, provider and access token are required", ErrInvalidInput)
	}

	tokenType := account.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	now := r.now().UTC()

	_, err := r.dbService.DB().ExecContext(ctx, r.dbService.Rebind(upsertConnectionSQL),
		account.UserID,
		account.Provider,
		account.AccessToken,
		nullString(account.RefreshToken),
		tokenType,
		nullString(account.Scope),
		account.ExpiresAt.UTC(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert connection: %v", ErrStore, err)
	}
	return nil
}

// ReadRefreshToken returns the stored refresh token for (user, provider).
func (r *connectionRepository) ReadRefreshToken(ctx context.Context, userID, provider string) (string, error) {
	var token sql.NullString
	err := r.dbService.DB().QueryRowContext(ctx,
		r.dbService.Rebind(`SELECT refresh_token FROM connected_accounts WHERE user_id = ? AND provider = ?`),
		userID, provider,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrConnectionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read refresh token: %v", ErrStore, err)
	}
	if !token.Valid || token.String == "" {
		return "", ErrNoRefreshToken
	}
	return token.String, nil
}

// UpdateOnRefresh applies a refresh result. Scope and created_at are left alone.
func (r *connectionRepository) UpdateOnRefresh(ctx context.Context, params RefreshUpdateParams) error {
	if params.UserID == "" || params.Provider == "" || params.AccessToken == "" {
		return fmt.Errorf("%w: user id, provider and access token are required", ErrInvalidInput)
	}

	res, err := r.dbService.DB().ExecContext(ctx, r.dbService.Rebind(updateOnRefreshSQL),
		params.AccessToken,
		nullString(params.RefreshToken),
		nullString(params.TokenType),
		params.ExpiresAt.UTC(),
		r.now().UTC(),
		params.UserID,
		params.Provider,
	)
	if err != nil {
		return fmt.Errorf("%w: update connection: %v", ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update connection: %v", ErrStore, err)
	}
	if n == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// GetConnection returns the stored row for (user, provider)
func (r *connectionRepository) GetConnection(ctx context.Context, userID, provider string) (*ConnectedAccount, error) {
	row := r.dbService.DB().QueryRowContext(ctx,
		r.dbService.Rebind(selectConnectionColumns+` WHERE user_id = ? AND provider = ?`),
		userID, provider,
	)
	account, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get connection: %v", ErrStore, err)
	}
	return account, nil
}

// ListConnections returns every connection of userID ordered by provider
func (r *connectionRepository) ListConnections(ctx context.Context, userID string) ([]*ConnectedAccount, error) {
	rows, err := r.dbService.DB().QueryContext(ctx,
		r.dbService.Rebind(selectConnectionColumns+` WHERE user_id = ? ORDER BY provider`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list connections: %v", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []*ConnectedAccount
	for rows.Next() {
		account, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list connections: %v", ErrStore, err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list connections: %v", ErrStore, err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*ConnectedAccount, error) {
	var (
		account        ConnectedAccount
		refresh, scope sql.NullString
	)
	err := row.Scan(
		&account.UserID,
		&account.Provider,
		&account.AccessToken,
		&refresh,
		&account.TokenType,
		&scope,
		&account.ExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.RefreshToken = refresh.String
	account.Scope = scope.String
	account.ExpiresAt = account.ExpiresAt.UTC()
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
