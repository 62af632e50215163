package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetOrCreate(ctx context.Context, owner Owner) (string, error)
	// AddLine inserts the line or increments an existing one for the same variant, atomically.
	// A sum above MaxLineQuantity leaves the line untouched and returns ErrInvalidQuantity.
	AddLine(ctx context.Context, cartID, variantID string, quantity int) (Line, error)
	LineByID(ctx context.Context, cartID, lineID string) (Line, error)
	QuantityOf(ctx context.Context, cartID, variantID string) (int, error)
	SetQuantity(ctx context.Context, cartID, lineID string, quantity int) error
	DeleteLine(ctx context.Context, cartID, lineID string) error
	ClearLines(ctx context.Context, cartID string) error
	ListLines(ctx context.Context, cartID string) ([]LineView, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetOrCreate relies on the unique owner columns so concurrent first touches converge on one cart.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, owner Owner) (string, error) {
	var (
		query string
		arg   string
	)
	switch {
	case owner.UserID != "" && owner.GuestID == "":
		query = `
			INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
			RETURNING id::text`
		arg = owner.UserID
	case owner.GuestID != "" && owner.UserID == "":
		query = `
			INSERT INTO carts (guest_id) VALUES ($1)
			ON CONFLICT (guest_id) DO UPDATE SET updated_at = now()
			RETURNING id::text`
		arg = owner.GuestID
	default:
		return "", fmt.Errorf("cart owner must have exactly one of user or guest")
	}

	var id string
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&id); err != nil {
		return "", fmt.Errorf("get or create cart: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) AddLine(ctx context.Context, cartID, variantID string, quantity int) (Line, error) {
	l := Line{CartID: cartID, VariantID: variantID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		WHERE cart_items.quantity::bigint + EXCLUDED.quantity <= $4
		RETURNING id::text, quantity
	`, cartID, variantID, quantity, int64(MaxLineQuantity)).Scan(&l.ID, &l.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, fmt.Errorf("%w: line would exceed %d", ErrInvalidQuantity, MaxLineQuantity)
		}
		return Line{}, fmt.Errorf("upsert cart line: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) LineByID(ctx context.Context, cartID, lineID string) (Line, error) {
	l := Line{ID: lineID, CartID: cartID}
	err := r.pool.QueryRow(ctx, `
		SELECT product_variant_id::text, quantity
		FROM cart_items
		WHERE id = $1 AND cart_id = $2
	`, lineID, cartID).Scan(&l.VariantID, &l.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrLineNotFound
		}
		return Line{}, fmt.Errorf("load cart line: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) QuantityOf(ctx context.Context, cartID, variantID string) (int, error) {
	var qty int
	err := r.pool.QueryRow(ctx, `
		SELECT quantity FROM cart_items
		WHERE cart_id = $1 AND product_variant_id = $2
	`, cartID, variantID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("load line quantity: %w", err)
	}
	return qty, nil
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, cartID, lineID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items SET quantity = $3
		WHERE id = $1 AND cart_id = $2
	`, lineID, cartID, quantity)
	if err != nil {
		return fmt.Errorf("set line quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteLine(ctx context.Context, cartID, lineID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, lineID, cartID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearLines(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListLines(ctx context.Context, cartID string) ([]LineView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.id::text, ci.product_variant_id::text, p.name, COALESCE(img.url, ''),
		       c.name, s.name, v.price::float8, v.sale_price::float8, ci.quantity, v.in_stock
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.product_variant_id
		JOIN products p ON p.id = v.product_id
		JOIN colors c ON c.id = v.color_id
		JOIN sizes s ON s.id = v.size_id
		LEFT JOIN LATERAL (
			SELECT pi.url FROM product_images pi
			WHERE pi.product_id = p.id AND pi.is_primary
			ORDER BY pi.sort_order
			LIMIT 1
		) img ON true
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []LineView{}
	for rows.Next() {
		var l LineView
		if err := rows.Scan(&l.LineID, &l.VariantID, &l.ProductName, &l.ImageURL,
			&l.Color, &l.Size, &l.UnitPrice, &l.SalePrice, &l.Quantity, &l.InStock); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return lines, nil
}
