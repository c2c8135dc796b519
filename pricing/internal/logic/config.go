package logic

import "math"

// MCDConfig configures Marketing Cost Displacement, the markup rule.
// MaxPriceIncrease is fractional (0.15 = 15%).
type MCDConfig struct {
	Enabled                bool    `json:"enabled" toml:"enabled"`
	SensitivityCoefficient float64 `json:"sensitivityCoefficient" toml:"sensitivityCoefficient"`
	MaxPriceIncrease       float64 `json:"maxPriceIncrease" toml:"maxPriceIncrease"`
	MinimumSpendThreshold  float64 `json:"minimumSpendThreshold" toml:"minimumSpendThreshold"`
}

// RCDThresholds gate Returning Customer Discount eligibility.
type RCDThresholds struct {
	MinimumSpend  float64 `json:"minimumSpend" toml:"minimumSpend"`
	MinimumVisits float64 `json:"minimumVisits" toml:"minimumVisits"`
}

// RCDConfig configures Returning Customer Discount, the loyalty rule.
// MaxDiscount is in percentage points (0-100).
type RCDConfig struct {
	Enabled     bool          `json:"enabled" toml:"enabled"`
	MaxDiscount float64       `json:"maxDiscount" toml:"maxDiscount"`
	SpendWeight float64       `json:"spendWeight" toml:"spendWeight"`
	Thresholds  RCDThresholds `json:"thresholds" toml:"thresholds"`
}

// PricingConfig holds both rule configs. A nil rule is treated as disabled.
type PricingConfig struct {
	MCD *MCDConfig `json:"mcd,omitempty" toml:"mcd"`
	RCD *RCDConfig `json:"rcd,omitempty" toml:"rcd"`
}

// CustomerContext is a spend/visit snapshot for one customer.
type CustomerContext struct {
	Spend  float64 `json:"spend"`
	Visits float64 `json:"visits"`
}

// Normalize returns a copy with every rule present and every numeric field
// non-negative and finite.
func (c PricingConfig) Normalize() PricingConfig {
	mcd := normalizeMCD(c.MCD)
	rcd := normalizeRCD(c.RCD)
	return PricingConfig{MCD: &mcd, RCD: &rcd}
}

func normalizeMCD(c *MCDConfig) MCDConfig {
	if c == nil {
		return MCDConfig{}
	}
	return MCDConfig{
		Enabled:                c.Enabled,
		SensitivityCoefficient: orZero(c.SensitivityCoefficient),
		MaxPriceIncrease:       orZero(c.MaxPriceIncrease),
		MinimumSpendThreshold:  orZero(c.MinimumSpendThreshold),
	}
}

func normalizeRCD(c *RCDConfig) RCDConfig {
	if c == nil {
		return RCDConfig{}
	}
	return RCDConfig{
		Enabled:     c.Enabled,
		MaxDiscount: math.Min(orZero(c.MaxDiscount), 100),
		SpendWeight: orZero(c.SpendWeight),
		Thresholds: RCDThresholds{
			MinimumSpend:  orZero(c.Thresholds.MinimumSpend),
			MinimumVisits: orZero(c.Thresholds.MinimumVisits),
		},
	}
}

// orZero maps negative, NaN and infinite config values to 0.
func orZero(v float64) float64 {
	if !isNonNegative(v) {
		return 0
	}
	return v
}

func isNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
