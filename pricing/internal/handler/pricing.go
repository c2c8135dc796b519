package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront/pricing/internal/auth"
	"storefront/pricing/internal/logic"
	"storefront/pricing/internal/service"
	"storefront/pricing/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pricer is the part of service.Quoter the HTTP layer uses.
type Pricer interface {
	Config(ctx context.Context) (*logic.PricingConfig, error)
	SaveConfig(ctx context.Context, cfg logic.PricingConfig) error
	Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error)
	Bill(ctx context.Context, req service.BillRequest) (*service.Bill, error)
	Preview(cfg logic.PricingConfig, basePrice float64, customer logic.CustomerContext) (logic.PriceBreakdown, error)
}

// Catalog is the admin view of the catalog store.
type Catalog interface {
	UpsertItem(ctx context.Context, item store.Item) (int, error)
	GetItem(ctx context.Context, sku string) (*store.Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]store.Item, error)
}

type PricingHandler struct {
	pricer  Pricer
	catalog Catalog
	logger  zerolog.Logger
}

// NewPricingHandler constructs the pricing HTTP handler.
func NewPricingHandler(p Pricer, c Catalog, logger zerolog.Logger) *PricingHandler {
	return &PricingHandler{pricer: p, catalog: c, logger: logger}
}

// Quote prices a list of skus for one customer.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Skus) == 0 {
		writeError(c, http.StatusBadRequest, "skus must not be empty")
		return
	}
	h.logger.Debug().Int("client_id", req.ClientID).Strs("skus", req.Skus).Msg("[pricing] Quote called")

	quote, err := h.pricer.Quote(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Quote", err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Bill computes line totals and the grand total for a cart.
func (h *PricingHandler) Bill(c *gin.Context) {
	var req service.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		writeError(c, http.StatusBadRequest, "items must not be empty")
		return
	}

	bill, err := h.pricer.Bill(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Bill", err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *PricingHandler) GetConfig(c *gin.Context) {
	cfg, err := h.pricer.Config(c.Request.Context())
	if err != nil {
		h.fail(c, "GetConfig", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SaveConfig replaces the rule config. Rules missing from the body are
// stored as absent, i.e. disabled.
func (h *PricingHandler) SaveConfig(c *gin.Context) {
	var cfg logic.PricingConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.pricer.SaveConfig(c.Request.Context(), cfg); err != nil {
		h.fail(c, "SaveConfig", err)
		return
	}
	h.logger.Info().Int("admin_id", c.GetInt(auth.UserKey)).Msg("[pricing] config updated")
	c.JSON(http.StatusOK, cfg)
}

type previewRequest struct {
	Config    logic.PricingConfig   `json:"config"`
	BasePrice *float64              `json:"base_price"`
	Customer  logic.CustomerContext `json:"customer"`
}

// Preview evaluates an unsaved config against a sample price and customer.
func (h *PricingHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.BasePrice == nil {
		writeError(c, http.StatusBadRequest, "base_price is required")
		return
	}

	breakdown, err := h.pricer.Preview(req.Config, *req.BasePrice, req.Customer)
	if err != nil {
		h.fail(c, "Preview", err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

type upsertItemRequest struct {
	Sku       string  `json:"sku"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	BasePrice float64 `json:"base_price"`
}

// UpsertItem creates or updates a catalog sku with an explicit base price.
func (h *PricingHandler) UpsertItem(c *gin.Context) {
	var req upsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Sku == "" || req.BasePrice < 0 {
		writeError(c, http.StatusBadRequest, "sku is required and base_price must be non-negative")
		return
	}

	id, err := h.catalog.UpsertItem(c.Request.Context(), store.Item{
		Sku:       req.Sku,
		Name:      req.Name,
		Brand:     req.Brand,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		h.fail(c, "UpsertItem", err)
		return
	}
	h.logger.Info().Str("sku", req.Sku).Float64("base_price", req.BasePrice).Int("id", id).
		Msg("[pricing] UpsertItem success")
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// GetItem returns the stored base price for a single sku.
func (h *PricingHandler) GetItem(c *gin.Context) {
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.fail(c, "GetItem", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListItems pages through the catalog. Defaults: limit=50 (max 500), offset=0.
func (h *PricingHandler) ListItems(c *gin.Context) {
	limit := 50
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > 500 {
		limit = 500
	}
	offset := 0
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n >= 0 {
		offset = n
	}

	items, err := h.catalog.ListItems(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, "ListItems", err)
		return
	}
	if items == nil {
		items = []store.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// fail maps service errors onto HTTP statuses.
func (h *PricingHandler) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, logic.ErrInvalidArgument), errors.Is(err, service.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownSku), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}

	evt := h.logger.Warn()
	if status == http.StatusInternalServerError {
		evt = h.logger.Error()
	}
	evt.Err(err).Str("op", op).Int("status", status).Msg("[pricing] request failed")

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(c, status, msg)
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
