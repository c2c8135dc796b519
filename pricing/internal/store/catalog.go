package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Item mirrors a row of the 'catalog' table. BasePrice is the list price
// before any pricing rule runs.
type Item struct {
	ID        int       `json:"id"`
	Sku       string    `json:"sku"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	BasePrice float64   `json:"base_price"` // NUMERIC in DB
	CreatedAt time.Time `json:"created_at"`
}

// CatalogStore reads and writes catalog base prices.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore expects main to pass it a working database connection.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// GetItem loads a single sku.
func (s *CatalogStore) GetItem(ctx context.Context, sku string) (*Item, error) {
	query := `
		SELECT id, sku, name, brand, base_price, created_at
		FROM catalog
		WHERE sku = $1
	`
	var i Item
	err := s.db.QueryRowContext(ctx, query, sku).Scan(
		&i.ID, &i.Sku, &i.Name, &i.Brand, &i.BasePrice, &i.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", sku, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &i, nil
}

// UpsertItem inserts the sku or, when it already exists, replaces its
// price, name and brand.
func (s *CatalogStore) UpsertItem(ctx context.Context, item Item) (int, error) {
	query := `
		INSERT INTO catalog (sku, name, brand, base_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku)
		DO UPDATE SET
			base_price = EXCLUDED.base_price,
			name = EXCLUDED.name,
			brand = EXCLUDED.brand
		RETURNING id
	`

	var id int
	// RETURNING id works for both the insert and the update path.
	err := s.db.QueryRowContext(ctx, query, item.Sku, item.Name, item.Brand, item.BasePrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert item: %w", err)
	}

	return id, nil
}

// GetItemsBySKUs loads many skus in one round trip. Missing skus are simply
// absent from the result.
func (s *CatalogStore) GetItemsBySKUs(ctx context.Context, skus []string) (map[string]Item, error) {
	items := make(map[string]Item, len(skus))
	if len(skus) == 0 {
		return items, nil
	}

	query := `
		SELECT id, sku, name, brand, base_price, created_at
		FROM catalog
		WHERE sku = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(skus))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Sku, &i.Name, &i.Brand, &i.BasePrice, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items[i.Sku] = i
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// ListItems pages through the catalog ordered by sku.
func (s *CatalogStore) ListItems(ctx context.Context, limit, offset int) ([]Item, error) {
	query := `
		SELECT id, sku, name, brand, base_price, created_at
		FROM catalog
		ORDER BY sku
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Sku, &i.Name, &i.Brand, &i.BasePrice, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
