package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		surname       TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		existence  INTEGER NOT NULL CHECK (existence >= 0),
		price      NUMERIC(12,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON products (lower(name))`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		surname    TEXT NOT NULL,
		company    TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		telephone  TEXT NOT NULL,
		seller_id  TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_seller ON clients (seller_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		items      JSONB NOT NULL,
		total      NUMERIC(12,2) NOT NULL,
		client_id  TEXT NOT NULL,
		seller_id  TEXT NOT NULL REFERENCES users(id),
		state      TEXT NOT NULL CHECK (state IN ('PENDIENTE','COMPLETADO','CANCELADO')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_seller_state ON orders (seller_id, state)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := db.Exec(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
