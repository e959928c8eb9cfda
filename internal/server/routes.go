package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication; health and metrics stay open
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return p == "/v1/health" || p == "/metrics"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(observability.Handler()))

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/pools", h.ListPools)
	v1.GET("/pools/:address", h.GetPool)
	v1.GET("/pools/:address/inspect", h.InspectPool)
	v1.GET("/pools/:address/volume", h.PoolVolume)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/swaps/stream", h.SwapStream)

	// Mutating endpoints with per-client rate limiting
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20
	}
	mutating := v1.Group("", middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit), // Requests per second
		Burst:     int(limit * 2),    // Allow short bursts
		ExpiresIn: 2 * time.Minute,   // Rate limit window
	})))
	mutating.POST("/pools", h.InitializePool)
	mutating.POST("/pools/:address/swap", h.Swap)

	// Ledger bootstrapping for local networks
	if cfg.DevMode && h.Bootstrapper != nil {
		dev := mutating.Group("/dev")
		dev.POST("/accounts", h.DevCreateAccount)
		dev.POST("/mint", h.DevMint)
	}

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
