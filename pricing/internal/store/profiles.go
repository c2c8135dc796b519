package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CustomerProfile matches the 'customer_profiles' table. It is the source of
// the spend/visit snapshot the pricing rules look at.
type CustomerProfile struct {
	ClientID   int
	TotalSpend float64
	VisitCount int
	UpdatedAt  time.Time
}

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetProfile returns the customer's profile. A customer with no orders yet
// gets a zero profile rather than an error.
func (s *ProfileStore) GetProfile(ctx context.Context, clientID int) (*CustomerProfile, error) {
	query := `
		SELECT client_id, total_spend, visit_count, updated_at
		FROM customer_profiles
		WHERE client_id = $1
	`
	var p CustomerProfile
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(&p.ClientID, &p.TotalSpend, &p.VisitCount, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &CustomerProfile{ClientID: clientID}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get customer profile: %w", err)
	}
	return &p, nil
}

// RecordPurchase adds amount to the customer's spend and counts one visit,
// once per orderID. It returns false without touching the profile when the
// order was already counted.
func (s *ProfileStore) RecordPurchase(ctx context.Context, orderID string, clientID int, amount float64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin purchase tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO processed_orders (order_id, client_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, clientID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to mark order processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark order processed: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customer_profiles (client_id, total_spend, visit_count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (client_id)
		DO UPDATE SET
			total_spend = customer_profiles.total_spend + EXCLUDED.total_spend,
			visit_count = customer_profiles.visit_count + 1,
			updated_at = NOW()
	`, clientID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to record purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit purchase: %w", err)
	}
	return true, nil
}
