package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrVariantNotFound    = errors.New("variant not found")
	ErrStorageUnavailable = errors.New("catalog storage unavailable")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository is the read-only variant lookup used by the cart engine and the selection UI.
type Repository interface {
	Get(ctx context.Context, variantID string) (Variant, error)
	Resolve(ctx context.Context, productID, colorID, sizeID string) (Variant, error)
	ListByProduct(ctx context.Context, productID string) ([]Variant, error)
	PriceOf(ctx context.Context, variantID string) (float64, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectVariant = `
	SELECT v.id::text, v.product_id::text, v.color_id::text, c.name, v.size_id::text, s.name,
	       v.sku, v.price::float8, v.sale_price::float8, v.in_stock
	FROM product_variants v
	JOIN colors c ON c.id = v.color_id
	JOIN sizes s ON s.id = v.size_id
`

func (r *PostgresRepository) Get(ctx context.Context, variantID string) (Variant, error) {
	if !validID(variantID) {
		return Variant{}, ErrVariantNotFound
	}
	row := r.pool.QueryRow(ctx, selectVariant+` WHERE v.id = $1`, variantID)
	return scanVariant(row)
}

func (r *PostgresRepository) Resolve(ctx context.Context, productID, colorID, sizeID string) (Variant, error) {
	if !validID(productID) || !validID(colorID) || !validID(sizeID) {
		return Variant{}, ErrVariantNotFound
	}
	row := r.pool.QueryRow(ctx, selectVariant+` WHERE v.product_id = $1 AND v.color_id = $2 AND v.size_id = $3`,
		productID, colorID, sizeID)
	return scanVariant(row)
}

func (r *PostgresRepository) ListByProduct(ctx context.Context, productID string) ([]Variant, error) {
	if !validID(productID) {
		return []Variant{}, nil
	}
	rows, err := r.pool.Query(ctx, selectVariant+` WHERE v.product_id = $1 ORDER BY c.name, s.sort_order, v.sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: list variants: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	variants := []Variant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list variants: %w", ErrStorageUnavailable, err)
	}
	return variants, nil
}

func (r *PostgresRepository) PriceOf(ctx context.Context, variantID string) (float64, error) {
	if !validID(variantID) {
		return 0, ErrVariantNotFound
	}
	var price float64
	err := r.pool.QueryRow(ctx, `SELECT price::float8 FROM product_variants WHERE id = $1`, variantID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVariantNotFound
		}
		return 0, fmt.Errorf("%w: price of variant: %w", ErrStorageUnavailable, err)
	}
	return price, nil
}

func scanVariant(row pgx.Row) (Variant, error) {
	var v Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.ColorID, &v.ColorName, &v.SizeID, &v.SizeName,
		&v.SKU, &v.Price, &v.SalePrice, &v.InStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, ErrVariantNotFound
		}
		return Variant{}, fmt.Errorf("%w: scan variant: %w", ErrStorageUnavailable, err)
	}
	return v, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
