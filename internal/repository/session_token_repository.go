package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/client-service/internal/domain"
)

// ErrTokenNotFound is returned when the store holds no record for a token.
var ErrTokenNotFound = errors.New("session token record not found")

// SessionTokenRepository is the durable mapping from a bearer token string
// to its session record. Operations on a single token are serialized by the
// backing store; distinct tokens proceed fully in parallel.
type SessionTokenRepository interface {
	// Create upserts a fresh record with status Active and a current
	// last-used timestamp. Called once per login.
	Create(ctx context.Context, token string, userID int64, username string) (*domain.SessionTokenRecord, error)
	// Get looks a record up by token value.
	Get(ctx context.Context, token string) (*domain.SessionTokenRecord, error)
	// Touch atomically sets status Valid and refreshes the last-used
	// timestamp unless the record is Invalid, in which case the record is
	// returned unchanged.
	Touch(ctx context.Context, token string) (*domain.SessionTokenRecord, error)
	// Invalidate unconditionally marks the record Invalid, leaving the
	// last-used timestamp as it was. Reports whether a record was found.
	Invalidate(ctx context.Context, token string) (bool, error)
	// SetStatus is the low-level transition used for inactivity burns.
	SetStatus(ctx context.Context, token string, status domain.TokenStatus) (bool, error)
}

type postgresSessionTokenRepository struct {
	pool *pgxpool.Pool
}

// NewSessionTokenRepository returns a Postgres-backed implementation. Every
// mutation is a single conditional UPDATE so that a read-then-write sequence
// cannot race a concurrent invalidation of the same token.
func NewSessionTokenRepository(pool *pgxpool.Pool) SessionTokenRepository {
	return &postgresSessionTokenRepository{pool: pool}
}

const sessionTokenColumns = `token, user_id, username, status, last_used_at, created_at`

func (r *postgresSessionTokenRepository) Create(ctx context.Context, token string, userID int64, username string) (*domain.SessionTokenRecord, error) {
	const query = `
        INSERT INTO session_tokens (token, user_id, username, status, last_used_at)
        VALUES ($1, $2, $3, 'Active', NOW())
        ON CONFLICT (token) DO UPDATE
            SET user_id=EXCLUDED.user_id, username=EXCLUDED.username,
                status='Active', last_used_at=NOW()
        RETURNING ` + sessionTokenColumns

	return scanSessionToken(r.pool.QueryRow(ctx, query, token, userID, username))
}

func (r *postgresSessionTokenRepository) Get(ctx context.Context, token string) (*domain.SessionTokenRecord, error) {
	const query = `
        SELECT ` + sessionTokenColumns + `
        FROM session_tokens WHERE token=$1`

	record, err := scanSessionToken(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *postgresSessionTokenRepository) Touch(ctx context.Context, token string) (*domain.SessionTokenRecord, error) {
	const query = `
        UPDATE session_tokens SET status='Valid', last_used_at=NOW()
        WHERE token=$1 AND status <> 'Invalid'
        RETURNING ` + sessionTokenColumns

	record, err := scanSessionToken(r.pool.QueryRow(ctx, query, token))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Either absent or already Invalid; Get distinguishes the two.
	return r.Get(ctx, token)
}

func (r *postgresSessionTokenRepository) Invalidate(ctx context.Context, token string) (bool, error) {
	const query = `
        UPDATE session_tokens SET status='Invalid'
        WHERE token=$1`

	cmd, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresSessionTokenRepository) SetStatus(ctx context.Context, token string, status domain.TokenStatus) (bool, error) {
	const query = `
        UPDATE session_tokens SET status=$2
        WHERE token=$1`

	cmd, err := r.pool.Exec(ctx, query, token, string(status))
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanSessionToken(row pgx.Row) (*domain.SessionTokenRecord, error) {
	var record domain.SessionTokenRecord
	if err := row.Scan(
		&record.Token,
		&record.UserID,
		&record.Username,
		&record.Status,
		&record.LastUsedAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
