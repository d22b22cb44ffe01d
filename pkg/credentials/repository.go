package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Get returns the stored credential for the provider, or nil when the
	// provider was never connected.
	Get(ctx context.Context, provider string) (*Credential, error)
	// Store inserts or overwrites the credential for its provider.
	Store(ctx context.Context, credential Credential) error
	Delete(ctx context.Context, provider string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Get(ctx context.Context, provider string) (*Credential, error) {
	var credential Credential
	var refreshToken *string
	var scope *string
	var expiryTimestamp int64

	err := r.db.QueryRow(ctx,
		"SELECT provider, access_token, refresh_token, token_type, expiry, scope FROM calendar_credentials WHERE provider = $1",
		provider,
	).Scan(&credential.Provider, &credential.AccessToken, &refreshToken, &credential.TokenType, &expiryTimestamp, &scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve credential for %s: %w", provider, err)
	}

	if refreshToken != nil {
		credential.RefreshToken = *refreshToken
	}
	if scope != nil {
		credential.Scope = *scope
	}
	if expiryTimestamp > 0 {
		credential.Expiry = time.Unix(expiryTimestamp, 0).UTC()
	}
	return &credential, nil
}

func (r *RepositoryImpl) Store(ctx context.Context, credential Credential) error {
	var expiryTimestamp int64
	if !credential.Expiry.IsZero() {
		expiryTimestamp = credential.Expiry.Unix()
	}

	const query = `
		INSERT INTO calendar_credentials (provider, access_token, refresh_token, token_type, expiry, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (provider)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scope = EXCLUDED.scope,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		credential.Provider,
		credential.AccessToken,
		credential.RefreshToken,
		credential.TokenType,
		expiryTimestamp,
		credential.Scope,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential for %s: %w", credential.Provider, err)
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, provider string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM calendar_credentials WHERE provider = $1", provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential for %s: %w", provider, err)
	}
	return nil
}
