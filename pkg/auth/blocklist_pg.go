package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBlocklist shares revocations between instances through PostgreSQL.
type PGBlocklist struct {
	pool *pgxpool.Pool
}

// NewPGBlocklist connects and creates the revoked_tokens table if needed.
func NewPGBlocklist(ctx context.Context, databaseURL string) (*PGBlocklist, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	b := &PGBlocklist{pool: pool}
	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return b, nil
}

func (b *PGBlocklist) migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS revoked_tokens (
			jti        TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens (expires_at);
	`)
	return err
}

func (b *PGBlocklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= now()`); err != nil {
		return fmt.Errorf("failed to prune revoked tokens: %w", err)
	}

	_, err := b.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)
	`, jti, time.Now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (b *PGBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := b.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1 AND expires_at > now())`,
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// Ping checks database connectivity
func (b *PGBlocklist) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PGBlocklist) Close() error {
	b.pool.Close()
	return nil
}
