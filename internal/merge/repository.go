package merge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Result reports what a merge moved. Merged is false when no live guest matched the token.
type Result struct {
	Merged  bool
	GuestID string
	CartID  string
	Lines   int
	Units   int
}

type Repository interface {
	MergeGuestCart(ctx context.Context, userID, guestToken string, now time.Time) (Result, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// MergeGuestCart folds the guest's lines into the user's cart and removes the guest, all in one transaction.
// Quantities for variants present in both carts are summed and capped at the integer column range.
func (r *PostgresRepository) MergeGuestCart(ctx context.Context, userID, guestToken string, now time.Time) (res Result, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id::text FROM guests
		WHERE session_token = $1 AND expires_at > $2
		FOR UPDATE
	`, guestToken, now).Scan(&res.GuestID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return Result{}, tx.Commit(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("lock guest: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id::text
	`, userID).Scan(&res.CartID)
	if err != nil {
		return Result{}, fmt.Errorf("get or create user cart: %w", err)
	}

	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(ci.quantity), 0)::int
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.guest_id = $1
	`, res.GuestID).Scan(&res.Lines, &res.Units)
	if err != nil {
		return Result{}, fmt.Errorf("count guest lines: %w", err)
	}

	if res.Lines > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO cart_items (cart_id, product_variant_id, quantity)
			SELECT $1::uuid, ci.product_variant_id, ci.quantity
			FROM cart_items ci
			JOIN carts c ON c.id = ci.cart_id
			WHERE c.guest_id = $2
			ORDER BY ci.created_at, ci.id
			ON CONFLICT (cart_id, product_variant_id)
			DO UPDATE SET quantity = LEAST(cart_items.quantity::bigint + EXCLUDED.quantity, $3)::int
		`, res.CartID, res.GuestID, int64(math.MaxInt32))
		if err != nil {
			return Result{}, fmt.Errorf("move guest lines: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM carts WHERE guest_id = $1`, res.GuestID); err != nil {
		return Result{}, fmt.Errorf("delete guest cart: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM guests WHERE id = $1`, res.GuestID); err != nil {
		return Result{}, fmt.Errorf("delete guest: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit merge: %w", err)
	}
	res.Merged = true
	return res, nil
}
