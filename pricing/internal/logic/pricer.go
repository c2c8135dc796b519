package logic

import "math"

// PriceInput is everything CalculateFinalPrice needs for one product.
type PriceInput struct {
	BasePrice      float64
	MCD            *MCDConfig
	RCD            *RCDConfig
	CustomerSpend  float64
	CustomerVisits float64
}

// PriceBreakdown reports each stage of the pipeline. Discount is the
// percentage drop from MCDPrice to RCDPrice.
type PriceBreakdown struct {
	BasePrice float64 `json:"basePrice"`
	MCDPrice  float64 `json:"mcdPrice"`
	RCDPrice  float64 `json:"rcdPrice"`
	Discount  float64 `json:"discount"`
}

// ApplyMCD marks basePrice up by sensitivity*spendFactor, capped at
// basePrice*(1+maxPriceIncrease). A nil or disabled config leaves the price as is.
func ApplyMCD(basePrice float64, cfg *MCDConfig, spendFactor float64) (float64, error) {
	if err := checkArg("basePrice", basePrice); err != nil {
		return 0, err
	}
	if err := checkArg("spendFactor", spendFactor); err != nil {
		return 0, err
	}

	c := normalizeMCD(cfg)
	if !c.Enabled {
		return basePrice, nil
	}

	raw := basePrice * (1 + c.SensitivityCoefficient*spendFactor)
	ceiling := basePrice * (1 + c.MaxPriceIncrease)
	return math.Min(raw, ceiling), nil
}

// ApplyRCD discounts price by min(spend/100*spendWeight, maxDiscount) percent
// once the customer meets both thresholds. Below either threshold no discount
// applies at all.
func ApplyRCD(price float64, cfg *RCDConfig, customerSpend, customerVisits float64) (float64, error) {
	if err := checkArg("price", price); err != nil {
		return 0, err
	}
	if err := checkArg("customerSpend", customerSpend); err != nil {
		return 0, err
	}
	if err := checkArg("customerVisits", customerVisits); err != nil {
		return 0, err
	}

	c := normalizeRCD(cfg)
	if !c.Enabled {
		return price, nil
	}
	if customerSpend < c.Thresholds.MinimumSpend || customerVisits < c.Thresholds.MinimumVisits {
		return price, nil
	}

	discount := math.Min(customerSpend/100*c.SpendWeight, c.MaxDiscount)
	return price * (1 - discount/100), nil
}

// SpendFactor is the binary MCD gate: 1 once customerSpend reaches the
// configured threshold, otherwise 0.
func SpendFactor(cfg *MCDConfig, customerSpend float64) float64 {
	c := normalizeMCD(cfg)
	if customerSpend >= c.MinimumSpendThreshold {
		return 1
	}
	return 0
}

// CalculateFinalPrice runs MCD on the base price and then RCD on the
// marked-up price.
func CalculateFinalPrice(in PriceInput) (PriceBreakdown, error) {
	if err := checkArg("customerSpend", in.CustomerSpend); err != nil {
		return PriceBreakdown{}, err
	}

	mcdPrice, err := ApplyMCD(in.BasePrice, in.MCD, SpendFactor(in.MCD, in.CustomerSpend))
	if err != nil {
		return PriceBreakdown{}, err
	}
	rcdPrice, err := ApplyRCD(mcdPrice, in.RCD, in.CustomerSpend, in.CustomerVisits)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if mcdPrice == 0 {
		return PriceBreakdown{}, ErrZeroPrice
	}

	return PriceBreakdown{
		BasePrice: in.BasePrice,
		MCDPrice:  mcdPrice,
		RCDPrice:  rcdPrice,
		Discount:  (mcdPrice - rcdPrice) / mcdPrice * 100,
	}, nil
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
