package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/pricing/internal/logic"
)

// ConfigStore persists the MCD/RCD rule configuration. The table holds a
// single row with id = 1; each rule is a JSONB column so absent rules stay NULL.
type ConfigStore struct {
	db *sql.DB
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// GetPricingConfig returns the stored config. When nothing has been saved yet
// both rules are absent, which the engine treats as disabled.
func (s *ConfigStore) GetPricingConfig(ctx context.Context) (*logic.PricingConfig, error) {
	query := `SELECT mcd, rcd FROM pricing_config WHERE id = 1`

	var mcdRaw, rcdRaw []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&mcdRaw, &rcdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return &logic.PricingConfig{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get pricing config: %w", err)
	}

	var cfg logic.PricingConfig
	if len(mcdRaw) > 0 {
		if err := json.Unmarshal(mcdRaw, &cfg.MCD); err != nil {
			return nil, fmt.Errorf("failed to decode mcd config: %w", err)
		}
	}
	if len(rcdRaw) > 0 {
		if err := json.Unmarshal(rcdRaw, &cfg.RCD); err != nil {
			return nil, fmt.Errorf("failed to decode rcd config: %w", err)
		}
	}
	return &cfg, nil
}

// SavePricingConfig replaces the stored config.
func (s *ConfigStore) SavePricingConfig(ctx context.Context, cfg logic.PricingConfig) error {
	mcd, err := nullableJSON(cfg.MCD)
	if err != nil {
		return fmt.Errorf("failed to encode mcd config: %w", err)
	}
	rcd, err := nullableJSON(cfg.RCD)
	if err != nil {
		return fmt.Errorf("failed to encode rcd config: %w", err)
	}

	query := `
		INSERT INTO pricing_config (id, mcd, rcd, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			mcd = EXCLUDED.mcd,
			rcd = EXCLUDED.rcd,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, mcd, rcd); err != nil {
		return fmt.Errorf("failed to save pricing config: %w", err)
	}
	return nil
}

// nullableJSON encodes v, mapping a nil pointer to SQL NULL.
func nullableJSON[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
