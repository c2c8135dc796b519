package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/pricing/internal/logic"
	"storefront/pricing/internal/mq"
	"storefront/pricing/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownSku      = errors.New("unknown sku")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ConfigStore is the durable home of the rule config.
type ConfigStore interface {
	GetPricingConfig(ctx context.Context) (*logic.PricingConfig, error)
	SavePricingConfig(ctx context.Context, cfg logic.PricingConfig) error
}

// ConfigCache fronts ConfigStore. Fill writes only when the key is absent.
type ConfigCache interface {
	Get(ctx context.Context) (*logic.PricingConfig, error)
	Fill(ctx context.Context, cfg logic.PricingConfig) error
	Set(ctx context.Context, cfg logic.PricingConfig) error
	Invalidate(ctx context.Context) error
}

type CatalogStore interface {
	GetItemsBySKUs(ctx context.Context, skus []string) (map[string]store.Item, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, clientID int) (*store.CustomerProfile, error)
}

// QuotePublisher receives every priced line.
type QuotePublisher interface {
	PublishQuote(m mq.QuoteMetric) error
}

// Quoter prices catalog items for a customer.
type Quoter struct {
	configs   ConfigStore
	cache     ConfigCache
	catalog   CatalogStore
	profiles  ProfileStore
	publisher QuotePublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// Option customises a Quoter.
type Option func(*Quoter)

// WithCache puts a cache in front of the config store.
func WithCache(c ConfigCache) Option {
	return func(q *Quoter) { q.cache = c }
}

// WithPublisher emits a QuoteMetric for every priced line.
func WithPublisher(p QuotePublisher) Option {
	return func(q *Quoter) { q.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Quoter) { q.logger = l }
}

// NewQuoter wires the stores the quoter reads from.
func NewQuoter(configs ConfigStore, catalog CatalogStore, profiles ProfileStore, opts ...Option) *Quoter {
	q := &Quoter{
		configs:  configs,
		catalog:  catalog,
		profiles: profiles,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QuoteRequest asks for prices of skus as seen by one customer. ClientID 0
// is an anonymous shopper with no spend or visits.
type QuoteRequest struct {
	ClientID int      `json:"client_id"`
	Skus     []string `json:"skus"`
}

type QuoteLine struct {
	Sku string `json:"sku"`
	logic.PriceBreakdown
}

type Quote struct {
	QuoteID  string                `json:"quote_id"`
	ClientID int                   `json:"client_id"`
	Customer logic.CustomerContext `json:"customer"`
	Lines    []QuoteLine           `json:"lines"`
}

// Config returns the current rule config, preferring the cache. Cache
// failures are logged and bypassed.
func (q *Quoter) Config(ctx context.Context) (*logic.PricingConfig, error) {
	if q.cache != nil {
		cfg, err := q.cache.Get(ctx)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, store.ErrCacheMiss) {
			q.logger.Warn().Err(err).Msg("[pricing] config cache read failed")
		}
	}

	cfg, err := q.configs.GetPricingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch pricing config: %w", err)
	}

	if q.cache != nil {
		if err := q.cache.Fill(ctx, *cfg); err != nil {
			q.logger.Warn().Err(err).Msg("[pricing] config cache fill failed")
		}
	}
	return cfg, nil
}

// SaveConfig persists cfg and writes it through to the cache. If the cache
// write fails the cached copy is dropped instead.
func (q *Quoter) SaveConfig(ctx context.Context, cfg logic.PricingConfig) error {
	if err := q.configs.SavePricingConfig(ctx, cfg); err != nil {
		return err
	}
	if q.cache != nil {
		if err := q.cache.Set(ctx, cfg); err != nil {
			q.logger.Warn().Err(err).Msg("[pricing] config cache write failed")
			if err := q.cache.Invalidate(ctx); err != nil {
				q.logger.Error().Err(err).Msg("[pricing] config cache invalidate failed")
			}
		}
	}
	q.logger.Info().
		Bool("mcd_enabled", cfg.MCD != nil && cfg.MCD.Enabled).
		Bool("rcd_enabled", cfg.RCD != nil && cfg.RCD.Enabled).
		Msg("[pricing] config saved")
	return nil
}

// Customer loads the spend/visit snapshot for clientID.
func (q *Quoter) Customer(ctx context.Context, clientID int) (logic.CustomerContext, error) {
	if clientID == 0 {
		return logic.CustomerContext{}, nil
	}
	p, err := q.profiles.GetProfile(ctx, clientID)
	if err != nil {
		return logic.CustomerContext{}, fmt.Errorf("could not fetch customer profile: %w", err)
	}
	return logic.CustomerContext{Spend: p.TotalSpend, Visits: float64(p.VisitCount)}, nil
}

// Quote prices every requested sku for the customer.
func (q *Quoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	cfg, err := q.Config(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := q.Customer(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	items, err := q.catalog.GetItemsBySKUs(ctx, req.Skus)
	if err != nil {
		return nil, fmt.Errorf("could not fetch catalog prices: %w", err)
	}

	quote := &Quote{
		QuoteID:  uuid.New().String(),
		ClientID: req.ClientID,
		Customer: customer,
		Lines:    make([]QuoteLine, 0, len(req.Skus)),
	}
	for _, sku := range req.Skus {
		item, ok := items[sku]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSku, sku)
		}
		breakdown, err := price(item.BasePrice, cfg, customer)
		if err != nil {
			return nil, fmt.Errorf("sku %s: %w", sku, err)
		}
		quote.Lines = append(quote.Lines, QuoteLine{Sku: sku, PriceBreakdown: breakdown})
	}

	q.publish(quote)
	q.logger.Debug().Str("quote_id", quote.QuoteID).Int("client_id", req.ClientID).
		Int("lines", len(quote.Lines)).Msg("[pricing] quote complete")
	return quote, nil
}

// Preview runs the engine with an ad-hoc config, for the admin dashboard.
func (q *Quoter) Preview(cfg logic.PricingConfig, basePrice float64, customer logic.CustomerContext) (logic.PriceBreakdown, error) {
	return price(basePrice, &cfg, customer)
}

// price guards the zero-price case, where the discount would be undefined,
// before running the engine.
func price(basePrice float64, cfg *logic.PricingConfig, customer logic.CustomerContext) (logic.PriceBreakdown, error) {
	if basePrice == 0 {
		return logic.PriceBreakdown{}, nil
	}
	return logic.CalculateFinalPrice(logic.PriceInput{
		BasePrice:      basePrice,
		MCD:            cfg.MCD,
		RCD:            cfg.RCD,
		CustomerSpend:  customer.Spend,
		CustomerVisits: customer.Visits,
	})
}

func (q *Quoter) publish(quote *Quote) {
	if q.publisher == nil {
		return
	}
	ts := q.now().Unix()
	for _, line := range quote.Lines {
		err := q.publisher.PublishQuote(mq.QuoteMetric{
			QuoteID:   quote.QuoteID,
			Sku:       line.Sku,
			ClientID:  int32(quote.ClientID),
			BasePrice: line.BasePrice,
			MCDPrice:  line.MCDPrice,
			RCDPrice:  line.RCDPrice,
			Discount:  line.Discount,
			Timestamp: ts,
		})
		if err != nil {
			q.logger.Warn().Err(err).Str("quote_id", quote.QuoteID).Str("sku", line.Sku).
				Msg("[pricing] analytics publish failed")
		}
	}
}

// BillItem is one cart line.
type BillItem struct {
	Sku      string `json:"sku"`
	Quantity int32  `json:"quantity"`
}

type BillRequest struct {
	ClientID int        `json:"client_id"`
	Items    []BillItem `json:"items"`
}

type BillLine struct {
	Sku        string          `json:"sku"`
	Quantity   int32           `json:"quantity"`
	BasePrice  float64         `json:"base_price"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Discount   float64         `json:"discount"`
}

type Bill struct {
	QuoteID    string          `json:"quote_id"`
	Items      []BillLine      `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Bill prices a cart. Unit prices are rounded to cents before they are
// multiplied out so line totals match what the shopper was shown.
func (q *Quoter) Bill(ctx context.Context, req BillRequest) (*Bill, error) {
	skus := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: sku %s quantity %d", ErrInvalidQuantity, item.Sku, item.Quantity)
		}
		skus = append(skus, item.Sku)
	}

	quote, err := q.Quote(ctx, QuoteRequest{ClientID: req.ClientID, Skus: skus})
	if err != nil {
		return nil, err
	}

	bill := &Bill{QuoteID: quote.QuoteID, Items: make([]BillLine, 0, len(req.Items)), GrandTotal: decimal.Zero}
	for i, item := range req.Items {
		line := quote.Lines[i]
		unit := decimal.NewFromFloat(line.RCDPrice).Round(2)
		total := unit.Mul(decimal.NewFromInt32(item.Quantity))
		bill.GrandTotal = bill.GrandTotal.Add(total)

		bill.Items = append(bill.Items, BillLine{
			Sku:        item.Sku,
			Quantity:   item.Quantity,
			BasePrice:  line.BasePrice,
			UnitPrice:  unit,
			TotalPrice: total,
			Discount:   line.Discount,
		})
	}
	q.logger.Info().Str("quote_id", bill.QuoteID).Int("client_id", req.ClientID).
		Str("grand_total", bill.GrandTotal.StringFixed(2)).Msg("[pricing] bill complete")
	return bill, nil
}
