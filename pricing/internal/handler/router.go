package handler

import (
	"net/http"

	"storefront/pricing/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig carries what the router needs beyond the handlers.
type RouterConfig struct {
	Verifier           *auth.Verifier
	InternalSecretHash []byte
	Logger             zerolog.Logger
}

// NewRouter builds the storefront and admin HTTP surface.
func NewRouter(pricer Pricer, catalog Catalog, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pricing"})
	})

	h := NewPricingHandler(pricer, catalog, cfg.Logger)

	// --- STOREFRONT ROUTES (called by ordering / checkout) ---
	storefront := r.Group("/api/pricing", auth.InternalMiddleware(cfg.InternalSecretHash, cfg.Logger))
	storefront.POST("/quote", h.Quote)
	storefront.POST("/bill", h.Bill)

	// --- ADMIN ROUTES (dashboard) ---
	admin := r.Group("/api/admin", auth.AdminMiddleware(cfg.Verifier))
	admin.GET("/pricing/config", h.GetConfig)
	admin.PUT("/pricing/config", h.SaveConfig)
	admin.POST("/pricing/preview", h.Preview)
	admin.GET("/catalog/items", h.ListItems)
	admin.PUT("/catalog/items", h.UpsertItem)
	admin.GET("/catalog/items/:sku", h.GetItem)

	return r
}
