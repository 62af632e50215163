//go:build integration

// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

// Start runs postgres in a container, applies migrations and returns a connected pool.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/storefront?sslmode=disable", host, port.Port())
	require.NoError(t, db.RunMigrations(dsn, logger.Nop()))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type Catalog struct {
	ProductID string
	ColorID   string
	SizeIDs   []string
	// VariantIDs are ordered like SizeIDs.
	VariantIDs []string
}

// SeedCatalog inserts one product in one color and three sizes, each with the given stock.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool, price float64, stock int) Catalog {
	t.Helper()
	ctx := context.Background()
	var c Catalog

	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, is_published) VALUES ('Heavyweight Tee', true) RETURNING id::text`,
	).Scan(&c.ProductID))
	_, err := pool.Exec(ctx,
		`INSERT INTO product_images (product_id, url, is_primary) VALUES ($1, 'https://cdn.example/tee.jpg', true)`,
		c.ProductID)
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO colors (name, slug, hex_code) VALUES ('Black', 'black', '#000000') RETURNING id::text`,
	).Scan(&c.ColorID))

	for i, size := range []string{"S", "M", "L"} {
		var sizeID, variantID string
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO sizes (name, slug, sort_order) VALUES ($1, lower($1), $2) RETURNING id::text`,
			size, i,
		).Scan(&sizeID))
		require.NoError(t, pool.QueryRow(ctx, `
			INSERT INTO product_variants (product_id, sku, price, color_id, size_id, in_stock)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id::text`,
			c.ProductID, "TEE-BLK-"+size, price, c.ColorID, sizeID, stock,
		).Scan(&variantID))
		c.SizeIDs = append(c.SizeIDs, sizeID)
		c.VariantIDs = append(c.VariantIDs, variantID)
	}
	return c
}
