// Package httpapi wires the HTTP transport (Gin) to the listing service,
// middleware, views and route handlers. It centralizes cross-cutting concerns
// such as tracing, correlation IDs, logging/redaction, the error boundary,
// panic recovery, metrics, compression, CORS and security headers.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-listings/internal/config"
	"github.com/tbourn/go-listings/internal/http/handlers"
	"github.com/tbourn/go-listings/internal/http/middleware"
	"github.com/tbourn/go-listings/internal/http/views"
	"github.com/tbourn/go-listings/internal/validation"
)

// Pinger reports store liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Gzip: compresses whatever the boundary renders too
//  5. ErrorBoundary: the only error renderer
//  6. Recovery: panics become errors for the boundary
//  7. Body size limiter
//  8. Metrics
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, svc handlers.ListingService, store Pinger, cfg config.Config) error {
	// Unknown methods on known paths fall through to the 404 page.
	r.HandleMethodNotAllowed = false

	r.SetHTMLTemplate(views.Must())

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	r.Use(handlers.ErrorBoundary())
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	assets, err := views.Static(cfg.StaticDir)
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(assets))

	r.GET("/healthz", health(store))

	h := handlers.New(svc, validation.New())

	r.GET("/", h.Home)
	listings := r.Group("/listings")
	{
		listings.GET("", h.ListListings)
		listings.GET("/new", h.NewListingForm)
		listings.POST("", h.ValidateListing, h.CreateListing)
		listings.GET("/:id", h.ShowListing)
		listings.GET("/:id/edit", h.EditListingForm)
		listings.PUT("/:id", h.ValidateListing, h.UpdateListing)
		listings.PATCH("/:id", h.ValidateListing, h.UpdateListing)
		listings.DELETE("/:id", h.DeleteListing)
	}
	r.GET("/testerror", h.TestError)

	r.NoRoute(h.NotFound)
	return nil
}

// Handler wraps the engine with method override so HTML forms can issue
// PUT/PATCH/DELETE. Override must run before gin picks a route.
func Handler(r *gin.Engine, cfg config.Config) http.Handler {
	return middleware.MethodOverride(r, cfg.MaxBodyBytes)
}

// corsMiddleware returns the CORS posture: allow all when no origins are
// configured, otherwise echo allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.MethodOverrideHeader},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO: * even without an Origin header.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// health pings the store with a short deadline.
func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("health: store ping failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
