package store

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog (
		id SERIAL PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		base_price NUMERIC(12, 2) NOT NULL CHECK (base_price >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pricing_config (
		id INT PRIMARY KEY CHECK (id = 1),
		mcd JSONB,
		rcd JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS customer_profiles (
		client_id INT PRIMARY KEY,
		total_spend NUMERIC(14, 2) NOT NULL DEFAULT 0,
		visit_count INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processed_orders (
		order_id TEXT PRIMARY KEY,
		client_id INT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the pricing tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
