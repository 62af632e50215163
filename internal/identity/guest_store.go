package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// GuestStore persists anonymous guest sessions.
type GuestStore interface {
	FindActive(ctx context.Context, token string, now time.Time) (GuestIdentity, error)
	Create(ctx context.Context, token string, expiresAt time.Time) (GuestIdentity, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresGuestStore struct {
	pool DBPool
}

func NewPostgresGuestStore(pool DBPool) *PostgresGuestStore {
	return &PostgresGuestStore{pool: pool}
}

func (s *PostgresGuestStore) FindActive(ctx context.Context, token string, now time.Time) (GuestIdentity, error) {
	var g GuestIdentity
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, session_token, expires_at
		FROM guests
		WHERE session_token = $1 AND expires_at > $2
	`, token, now).Scan(&g.GuestID, &g.SessionToken, &g.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GuestIdentity{}, ErrGuestNotFound
		}
		return GuestIdentity{}, fmt.Errorf("find guest: %w", err)
	}
	return g, nil
}

func (s *PostgresGuestStore) Create(ctx context.Context, token string, expiresAt time.Time) (GuestIdentity, error) {
	g := GuestIdentity{SessionToken: token, ExpiresAt: expiresAt}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO guests (session_token, expires_at)
		VALUES ($1, $2)
		RETURNING id::text
	`, token, expiresAt).Scan(&g.GuestID)
	if err != nil {
		return GuestIdentity{}, fmt.Errorf("insert guest: %w", err)
	}
	return g, nil
}

// DeleteExpired removes guests whose session ended before the given time. Their carts cascade.
func (s *PostgresGuestStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM guests WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired guests: %w", err)
	}
	return tag.RowsAffected(), nil
}
