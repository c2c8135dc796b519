package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"storefront/pricing/internal/logic"
	"storefront/pricing/internal/mq"
	"storefront/pricing/internal/store"
)

type fakeConfigStore struct {
	cfg   *logic.PricingConfig
	err   error
	gets  int
	saved *logic.PricingConfig

	// afterRead runs once, after a read has taken its copy.
	afterRead func()
}

func (f *fakeConfigStore) GetPricingConfig(ctx context.Context) (*logic.PricingConfig, error) {
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.cfg
	if hook := f.afterRead; hook != nil {
		f.afterRead = nil
		hook()
	}
	return &c, nil
}

func (f *fakeConfigStore) SavePricingConfig(ctx context.Context, cfg logic.PricingConfig) error {
	f.saved = &cfg
	f.cfg = &cfg
	return nil
}

type fakeCache struct {
	cfg         *logic.PricingConfig
	getErr      error
	setErr      error
	fills       int
	sets        int
	invalidated int
}

func (f *fakeCache) Get(ctx context.Context) (*logic.PricingConfig, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.cfg == nil {
		return nil, store.ErrCacheMiss
	}
	return f.cfg, nil
}

func (f *fakeCache) Fill(ctx context.Context, cfg logic.PricingConfig) error {
	f.fills++
	if f.cfg == nil {
		f.cfg = &cfg
	}
	return nil
}

func (f *fakeCache) Set(ctx context.Context, cfg logic.PricingConfig) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.cfg = &cfg
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.invalidated++
	f.cfg = nil
	return nil
}

type fakeCatalog map[string]store.Item

func (f fakeCatalog) GetItemsBySKUs(ctx context.Context, skus []string) (map[string]store.Item, error) {
	out := make(map[string]store.Item)
	for _, s := range skus {
		if it, ok := f[s]; ok {
			out[s] = it
		}
	}
	return out, nil
}

type fakeProfiles map[int]store.CustomerProfile

func (f fakeProfiles) GetProfile(ctx context.Context, clientID int) (*store.CustomerProfile, error) {
	p, ok := f[clientID]
	if !ok {
		return &store.CustomerProfile{ClientID: clientID}, nil
	}
	return &p, nil
}

type fakePublisher struct {
	metrics []mq.QuoteMetric
	err     error
}

func (f *fakePublisher) PublishQuote(m mq.QuoteMetric) error {
	f.metrics = append(f.metrics, m)
	return f.err
}

func scenarioConfig() *logic.PricingConfig {
	return &logic.PricingConfig{
		MCD: &logic.MCDConfig{Enabled: true, SensitivityCoefficient: 1, MaxPriceIncrease: 0.15, MinimumSpendThreshold: 100},
		RCD: &logic.RCDConfig{Enabled: true, MaxDiscount: 20, SpendWeight: 2, Thresholds: logic.RCDThresholds{MinimumSpend: 50, MinimumVisits: 2}},
	}
}

func newTestQuoter(cfg *logic.PricingConfig, opts ...Option) (*Quoter, *fakeConfigStore) {
	configs := &fakeConfigStore{cfg: cfg}
	catalog := fakeCatalog{
		"MILK-1L": {Sku: "MILK-1L", BasePrice: 100},
		"BREAD":   {Sku: "BREAD", BasePrice: 4.5},
		"FREEBIE": {Sku: "FREEBIE", BasePrice: 0},
	}
	profiles := fakeProfiles{
		7: {ClientID: 7, TotalSpend: 150, VisitCount: 3},
		8: {ClientID: 8, TotalSpend: 150, VisitCount: 1},
	}
	return NewQuoter(configs, catalog, profiles, opts...), configs
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestQuoter_Quote(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())

	quote, err := q.Quote(context.Background(), QuoteRequest{ClientID: 7, Skus: []string{"MILK-1L"}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.QuoteID == "" {
		t.Error("expected a quote id")
	}
	if len(quote.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(quote.Lines))
	}
	line := quote.Lines[0]
	if !near(line.MCDPrice, 115) || !near(line.RCDPrice, 111.55) || !near(line.Discount, 3) {
		t.Errorf("unexpected breakdown: %+v", line.PriceBreakdown)
	}
}

func TestQuoter_Quote_CustomerVariants(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())

	tests := []struct {
		name     string
		clientID int
		wantMCD  float64
		wantRCD  float64
	}{
		{name: "anonymous shopper", clientID: 0, wantMCD: 100, wantRCD: 100},
		{name: "too few visits", clientID: 8, wantMCD: 115, wantRCD: 115},
		{name: "unknown customer", clientID: 99, wantMCD: 100, wantRCD: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := q.Quote(context.Background(), QuoteRequest{ClientID: tt.clientID, Skus: []string{"MILK-1L"}})
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			got := quote.Lines[0]
			if !near(got.MCDPrice, tt.wantMCD) || !near(got.RCDPrice, tt.wantRCD) {
				t.Errorf("got %+v, want mcd=%v rcd=%v", got.PriceBreakdown, tt.wantMCD, tt.wantRCD)
			}
		})
	}
}

func TestQuoter_Quote_UnknownSku(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())
	_, err := q.Quote(context.Background(), QuoteRequest{Skus: []string{"MILK-1L", "NOPE"}})
	if !errors.Is(err, ErrUnknownSku) {
		t.Fatalf("expected ErrUnknownSku, got %v", err)
	}
}

func TestQuoter_Quote_ZeroPriceItem(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())
	quote, err := q.Quote(context.Background(), QuoteRequest{ClientID: 7, Skus: []string{"FREEBIE"}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Lines[0].PriceBreakdown != (logic.PriceBreakdown{}) {
		t.Errorf("expected zero breakdown, got %+v", quote.Lines[0].PriceBreakdown)
	}
}

func TestQuoter_Quote_AbsentConfig(t *testing.T) {
	q, _ := newTestQuoter(&logic.PricingConfig{})
	quote, err := q.Quote(context.Background(), QuoteRequest{ClientID: 7, Skus: []string{"BREAD"}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got := quote.Lines[0]; got.MCDPrice != 4.5 || got.RCDPrice != 4.5 {
		t.Errorf("absent rules should leave price unchanged, got %+v", got.PriceBreakdown)
	}
}

func TestQuoter_Config_UsesCache(t *testing.T) {
	cache := &fakeCache{}
	q, configs := newTestQuoter(scenarioConfig(), WithCache(cache))
	ctx := context.Background()

	if _, err := q.Config(ctx); err != nil {
		t.Fatalf("Config: %v", err)
	}
	if _, err := q.Config(ctx); err != nil {
		t.Fatalf("Config: %v", err)
	}
	if configs.gets != 1 {
		t.Errorf("expected 1 store read, got %d", configs.gets)
	}
	if cache.fills != 1 {
		t.Errorf("expected 1 cache fill, got %d", cache.fills)
	}
}

func TestQuoter_Config_CacheFailureFallsBack(t *testing.T) {
	cache := &fakeCache{getErr: errors.New("redis down")}
	q, configs := newTestQuoter(scenarioConfig(), WithCache(cache))

	cfg, err := q.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.MCD == nil || !cfg.MCD.Enabled {
		t.Errorf("unexpected config %+v", cfg)
	}
	if configs.gets != 1 {
		t.Errorf("expected store fallback, got %d reads", configs.gets)
	}
}

func TestQuoter_Config_StoreError(t *testing.T) {
	q, configs := newTestQuoter(scenarioConfig())
	configs.err = errors.New("db down")
	if _, err := q.Config(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuoter_SaveConfig_WritesThroughCache(t *testing.T) {
	cache := &fakeCache{cfg: scenarioConfig()}
	q, configs := newTestQuoter(scenarioConfig(), WithCache(cache))

	next := logic.PricingConfig{MCD: &logic.MCDConfig{Enabled: false}}
	if err := q.SaveConfig(context.Background(), next); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if configs.saved == nil {
		t.Fatal("config not persisted")
	}
	if cache.sets != 1 || cache.invalidated != 0 {
		t.Errorf("expected one cache write and no invalidation, got sets=%d invalidated=%d", cache.sets, cache.invalidated)
	}

	got, err := q.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if got.MCD == nil || got.MCD.Enabled || got.RCD != nil {
		t.Errorf("expected the saved config, got %+v", got)
	}
	if configs.gets != 0 {
		t.Errorf("expected the saved config from cache, got %d store reads", configs.gets)
	}
}

func TestQuoter_SaveConfig_CacheWriteFailureInvalidates(t *testing.T) {
	cache := &fakeCache{cfg: scenarioConfig(), setErr: errors.New("redis down")}
	q, _ := newTestQuoter(scenarioConfig(), WithCache(cache))

	if err := q.SaveConfig(context.Background(), logic.PricingConfig{}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if cache.invalidated != 1 || cache.cfg != nil {
		t.Errorf("stale config must be dropped, invalidated=%d cfg=%+v", cache.invalidated, cache.cfg)
	}
}

func TestQuoter_Config_ConcurrentSaveNotOverwritten(t *testing.T) {
	cache := &fakeCache{}
	q, configs := newTestQuoter(scenarioConfig(), WithCache(cache))
	ctx := context.Background()

	next := logic.PricingConfig{RCD: &logic.RCDConfig{Enabled: true, MaxDiscount: 20}}
	// The save lands between the reader's store read and its cache fill.
	configs.afterRead = func() {
		if err := q.SaveConfig(ctx, next); err != nil {
			t.Errorf("SaveConfig: %v", err)
		}
	}

	stale, err := q.Config(ctx)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if stale.MCD == nil {
		t.Fatalf("first read should see the old config, got %+v", stale)
	}

	got, err := q.Config(ctx)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if got.MCD != nil || got.RCD == nil || got.RCD.MaxDiscount != 20 {
		t.Errorf("cache holds a stale config: %+v", got)
	}
}

func TestQuoter_Publishes(t *testing.T) {
	pub := &fakePublisher{err: errors.New("socket closed")}
	q, _ := newTestQuoter(scenarioConfig(), WithPublisher(pub))
	q.now = func() time.Time { return time.Unix(1700000000, 0) }

	quote, err := q.Quote(context.Background(), QuoteRequest{ClientID: 7, Skus: []string{"MILK-1L", "BREAD"}})
	if err != nil {
		t.Fatalf("publish failures must not fail the quote: %v", err)
	}
	if len(pub.metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(pub.metrics))
	}
	m := pub.metrics[0]
	if m.QuoteID != quote.QuoteID || m.Sku != "MILK-1L" || m.ClientID != 7 || m.Timestamp != 1700000000 {
		t.Errorf("unexpected metric %+v", m)
	}
}

func TestQuoter_Bill(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())

	bill, err := q.Bill(context.Background(), BillRequest{
		ClientID: 7,
		Items: []BillItem{
			{Sku: "MILK-1L", Quantity: 3},
			{Sku: "BREAD", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("Bill: %v", err)
	}
	if len(bill.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(bill.Items))
	}
	// MILK: 111.55 * 3 = 334.65
	// BREAD: 4.5 -> 5.175 -> 5.0198 -> 5.02 * 2 = 10.04
	if got := bill.Items[0].TotalPrice.StringFixed(2); got != "334.65" {
		t.Errorf("milk total = %s, want 334.65", got)
	}
	if got := bill.Items[1].UnitPrice.StringFixed(2); got != "5.02" {
		t.Errorf("bread unit = %s, want 5.02", got)
	}
	if got := bill.GrandTotal.StringFixed(2); got != "344.69" {
		t.Errorf("grand total = %s, want 344.69", got)
	}
}

func TestQuoter_Bill_InvalidQuantity(t *testing.T) {
	q, _ := newTestQuoter(scenarioConfig())
	_, err := q.Bill(context.Background(), BillRequest{Items: []BillItem{{Sku: "BREAD", Quantity: 0}}})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestQuoter_Preview(t *testing.T) {
	q, _ := newTestQuoter(&logic.PricingConfig{})

	got, err := q.Preview(*scenarioConfig(), 100, logic.CustomerContext{Spend: 150, Visits: 3})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !near(got.RCDPrice, 111.55) {
		t.Errorf("unexpected preview %+v", got)
	}

	if _, err := q.Preview(*scenarioConfig(), -1, logic.CustomerContext{}); !errors.Is(err, logic.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
