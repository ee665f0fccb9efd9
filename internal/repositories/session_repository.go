package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/db"
)

// PostgresSessionStore keeps refresh sessions in the sessions table.
type PostgresSessionStore struct {
	pool db.Pool
}

func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) withConn(ctx context.Context, fn func(*pgxpool.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

// Save inserts the session, replacing any row with the same refresh token.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, `
        INSERT INTO sessions (refresh_token, user_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (refresh_token)
        DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
    `, session.RefreshToken, session.UserID, session.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

func (s *PostgresSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	var session auth.Session
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
        SELECT refresh_token, user_id, expires_at FROM sessions WHERE refresh_token = $1
    `, refreshToken).Scan(&session.RefreshToken, &session.UserID, &session.ExpiresAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return auth.ErrSessionNotFound
		case err != nil:
			return fmt.Errorf("select session: %w", err)
		}
		return nil
	})
	if err != nil {
		return auth.Session{}, err
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

// Delete removes one session; a missing token reports auth.ErrSessionNotFound.
func (s *PostgresSessionStore) Delete(ctx context.Context, refreshToken string) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrSessionNotFound
		}
		return nil
	})
}

func (s *PostgresSessionStore) DeleteForUser(ctx context.Context, userID string) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete user sessions: %w", err)
		}
		return nil
	})
}

// DeleteExpired purges sessions that expired at or before now.
func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
		if err != nil {
			return fmt.Errorf("purge expired sessions: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
