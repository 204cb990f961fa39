// Package store provides the PostgreSQL persistence layer. Every
// multi-row mutation runs inside a single transaction; the relational
// store's isolation is the only concurrency-correctness mechanism the
// engine relies on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres establishes and verifies a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id               TEXT PRIMARY KEY,
		order_number     TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		status           TEXT NOT NULL,
		address_snapshot JSONB,
		subtotal         BIGINT NOT NULL,
		shipping_cost    BIGINT NOT NULL,
		discount_amount  BIGINT NOT NULL,
		total_amount     BIGINT NOT NULL,
		payment_status   TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		CONSTRAINT orders_order_number_key UNIQUE (order_number)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created_idx
		ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id            TEXT PRIMARY KEY,
		order_id      TEXT NOT NULL REFERENCES orders (id),
		product_id    TEXT NOT NULL,
		product_name  TEXT NOT NULL,
		product_image TEXT NOT NULL DEFAULT '',
		quantity      INT NOT NULL,
		unit_price    BIGINT NOT NULL,
		total_price   BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items (order_id)`,
	`CREATE TABLE IF NOT EXISTS order_payments (
		id             TEXT PRIMARY KEY,
		order_id       TEXT NOT NULL REFERENCES orders (id),
		amount         BIGINT NOT NULL,
		status         TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		processed_at   TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_payments_order_idx ON order_payments (order_id)`,
	`CREATE TABLE IF NOT EXISTS order_status_history (
		id         TEXT PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders (id),
		status     TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		actor      TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_status_history_order_idx
		ON order_status_history (order_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		holder_name      TEXT NOT NULL,
		card_brand       TEXT NOT NULL,
		card_last4       TEXT NOT NULL,
		exp_month        INT NOT NULL,
		exp_year         INT NOT NULL,
		token            TEXT NOT NULL,
		card_fingerprint TEXT NOT NULL,
		is_default       BOOLEAN NOT NULL DEFAULT FALSE,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payment_methods_user_idx
		ON payment_methods (user_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		recipient   TEXT NOT NULL,
		phone       TEXT NOT NULL DEFAULT '',
		line1       TEXT NOT NULL,
		line2       TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL,
		province    TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		is_default  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id    TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		price BIGINT NOT NULL,
		image TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates the engine's tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
