// Package api wires together all HTTP routes for the Orb Integration Hub backend.
//
// Route grouping philosophy:
//   - Ingest routes (/v1/ingest/) authenticate with application API keys. The
//     key alone determines which application, organization, and environment an
//     event lands in; the request body never carries those identifiers.
//   - Admin console routes (/api/v1/) authenticate with user JWTs and always
//     require the appropriate RBAC scope. All authenticated console actions
//     flow through the audit middleware.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/oneredboot/orb-integration-hub/internal/api/admin"
	"github.com/oneredboot/orb-integration-hub/internal/api/ingest"
	"github.com/oneredboot/orb-integration-hub/internal/audit"
	"github.com/oneredboot/orb-integration-hub/internal/auth"
	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/jobs"
	"github.com/oneredboot/orb-integration-hub/internal/middleware"
	"github.com/oneredboot/orb-integration-hub/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	expiryNotifier *jobs.APIKeyExpiryNotifier
	sweeper        *jobs.KeyLifecycleSweeper
	auditShipper   audit.Shipper
	rateLimiters   []middleware.Limiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	if bg.sweeper != nil {
		bg.sweeper.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Wrap *sql.DB with sqlx for the stats queries
	sqlxDB := sqlx.NewDb(db, "postgres")

	// Start the key lifecycle sweeper so ROTATING keys past their grace window
	// flip to EXPIRED even when no request ever presents them again.
	sweeper := jobs.NewKeyLifecycleSweeper(apiKeyRepo, &cfg.Keys)
	safego.Go(func() { sweeper.Start(context.Background()) })

	// Start the expiry notifier (no-op unless notifications are configured)
	expiryNotifier := jobs.NewAPIKeyExpiryNotifier(apiKeyRepo, orgRepo, appRepo, &cfg.Notifications)
	safego.Go(func() { expiryNotifier.Start(context.Background()) })

	// Build the external audit shipper from config, if any destinations are enabled
	auditShipper := buildAuditShipper(cfg.Audit.Shippers)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Initialize admin handlers
	orgHandlers := admin.NewOrganizationHandlers(cfg, db)
	userHandlers := admin.NewUserHandlers(cfg, db)
	appHandlers := admin.NewApplicationHandlers(cfg, db)
	apiKeyHandlers := admin.NewAPIKeyHandlers(cfg, db)
	auditHandlers := admin.NewAuditHandlers(cfg, db)
	statsHandler := admin.NewStatsHandler(sqlxDB)

	// Initialize rate limiters
	generalRateLimiter := newRateLimiter(cfg, middleware.DefaultRateLimitConfig())
	ingestRateLimiter := newRateLimiter(cfg, middleware.IngestRateLimitConfig())

	// Event ingest endpoints - API key authentication only
	v1Ingest := router.Group("/v1/ingest")
	v1Ingest.Use(middleware.APIKeyAuthMiddleware(apiKeyRepo))
	v1Ingest.Use(middleware.RateLimitMiddleware(ingestRateLimiter))
	v1Ingest.Use(middleware.AuditMiddlewareWithShipper(auditRepo, auditShipper, &cfg.Audit))
	{
		v1Ingest.POST("/events", ingest.EventsHandler(cfg, db))
	}

	// Admin console endpoints - user JWT authentication with per-route RBAC scopes
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.JWTAuthMiddleware(userRepo))
	apiV1.Use(middleware.RateLimitMiddleware(generalRateLimiter))
	apiV1.Use(middleware.AuditMiddlewareWithShipper(auditRepo, auditShipper, &cfg.Audit))
	{
		// Self-service endpoint (any authenticated user)
		apiV1.GET("/users/me", userHandlers.CurrentUserHandler())

		// Dashboard stats (any authenticated user)
		apiV1.GET("/stats/dashboard", statsHandler.GetDashboardStats)

		// Organizations management
		orgsGroup := apiV1.Group("/organizations")
		{
			orgsGroup.GET("", middleware.RequireScope(auth.ScopeOrganizationsRead), orgHandlers.ListOrganizationsHandler())
			orgsGroup.GET("/:id", middleware.RequireScope(auth.ScopeOrganizationsRead), orgHandlers.GetOrganizationHandler())
			orgsGroup.POST("", middleware.RequireScope(auth.ScopeOrganizationsWrite), orgHandlers.CreateOrganizationHandler())
			orgsGroup.PUT("/:id", middleware.RequireScope(auth.ScopeOrganizationsWrite), orgHandlers.UpdateOrganizationHandler())
			orgsGroup.DELETE("/:id", middleware.RequireScope(auth.ScopeOrganizationsWrite), orgHandlers.DeleteOrganizationHandler())
		}

		// Users management
		usersGroup := apiV1.Group("/users")
		{
			usersGroup.GET("", middleware.RequireScope(auth.ScopeUsersRead), userHandlers.ListUsersHandler())
			usersGroup.GET("/:id", middleware.RequireScope(auth.ScopeUsersRead), userHandlers.GetUserHandler())
			usersGroup.POST("", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.CreateUserHandler())
			usersGroup.PUT("/:id", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.UpdateUserHandler())
			usersGroup.DELETE("/:id", middleware.RequireScope(auth.ScopeUsersWrite), userHandlers.DeleteUserHandler())
		}

		// Applications management
		appsGroup := apiV1.Group("/applications")
		{
			appsGroup.GET("", middleware.RequireScope(auth.ScopeApplicationsRead), appHandlers.ListApplicationsHandler())
			appsGroup.GET("/:id", middleware.RequireScope(auth.ScopeApplicationsRead), appHandlers.GetApplicationHandler())
			appsGroup.POST("", middleware.RequireScope(auth.ScopeApplicationsWrite), appHandlers.CreateApplicationHandler())
			appsGroup.PUT("/:id", middleware.RequireScope(auth.ScopeApplicationsWrite), appHandlers.UpdateApplicationHandler())
			appsGroup.DELETE("/:id", middleware.RequireScope(auth.ScopeApplicationsWrite), appHandlers.DeleteApplicationHandler())

			// Per-environment key rows for the application's Security tab
			appsGroup.GET("/:id/keys", middleware.RequireScope(auth.ScopeApplicationsRead), apiKeyHandlers.ListApplicationKeysHandler())
			appsGroup.POST("/:id/keys", middleware.RequireScope(auth.ScopeAPIKeysManage), apiKeyHandlers.GenerateKeyHandler())
		}

		// API key lifecycle operations
		keysGroup := apiV1.Group("/keys")
		keysGroup.Use(middleware.RequireScope(auth.ScopeAPIKeysManage))
		{
			keysGroup.POST("/:id/rotate", apiKeyHandlers.RotateKeyHandler())
			keysGroup.POST("/:id/revoke", apiKeyHandlers.RevokeKeyHandler())
		}

		// Audit log access
		auditGroup := apiV1.Group("/audit-logs")
		auditGroup.Use(middleware.RequireScope(auth.ScopeAuditRead))
		{
			auditGroup.GET("", auditHandlers.ListAuditLogsHandler())
			auditGroup.GET("/:id", auditHandlers.GetAuditLogHandler())
		}
	}

	bg := &BackgroundServices{
		expiryNotifier: expiryNotifier,
		sweeper:        sweeper,
		auditShipper:   auditShipper,
		rateLimiters:   []middleware.Limiter{generalRateLimiter, ingestRateLimiter},
	}

	return router, bg
}

// newRateLimiter builds a rate-limiting backend. When Redis is configured the
// counters are shared across replicas; otherwise each replica keeps its own
// in-memory bucket. A Redis connection failure falls back to in-memory so a
// cache outage never takes the API down with it.
func newRateLimiter(cfg *config.Config, rlCfg middleware.RateLimitConfig) middleware.Limiter {
	rlSettings := cfg.Security.RateLimiting
	if rlSettings.RequestsPerMinute > 0 {
		rlCfg.RequestsPerMinute = rlSettings.RequestsPerMinute
	}
	if rlSettings.Burst > 0 {
		rlCfg.BurstSize = rlSettings.Burst
	}

	if rlSettings.RedisAddr != "" {
		limiter, err := middleware.NewRedisRateLimiter(rlSettings.RedisAddr, rlSettings.RedisPassword, rlCfg)
		if err == nil {
			log.Printf("Rate limiting backed by Redis at %s", rlSettings.RedisAddr)
			return limiter
		}
		log.Printf("Redis rate limiter unavailable (%v), falling back to in-memory", err)
	}
	return middleware.NewRateLimiter(rlCfg)
}

// buildAuditShipper converts the audit shipper settings from config into a
// MultiShipper. Returns nil when no destination is enabled; the audit
// middleware treats a nil shipper as database-only logging.
func buildAuditShipper(shippers []config.AuditShipperConfig) audit.Shipper {
	configs := make([]audit.ShipperConfig, 0, len(shippers))
	for _, s := range shippers {
		if !s.Enabled {
			continue
		}
		sc := audit.ShipperConfig{
			Enabled: true,
			Type:    s.Type,
		}
		if s.Syslog != nil {
			sc.Syslog = &audit.SyslogConfig{
				Network: s.Syslog.Network,
				Address: s.Syslog.Address,
				Tag:     s.Syslog.Tag,
			}
		}
		if s.Webhook != nil {
			sc.Webhook = &audit.WebhookConfig{
				URL:           s.Webhook.URL,
				Headers:       s.Webhook.Headers,
				Timeout:       time.Duration(s.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     s.Webhook.BatchSize,
				FlushInterval: time.Duration(s.Webhook.FlushInterval) * time.Second,
			}
		}
		if s.File != nil {
			sc.File = &audit.FileConfig{
				Path:       s.File.Path,
				MaxSizeMB:  s.File.MaxSizeMB,
				MaxBackups: s.File.MaxBackups,
			}
		}
		configs = append(configs, sc)
	}
	if len(configs) == 0 {
		return nil
	}

	shipper, err := audit.NewMultiShipper(configs)
	if err != nil {
		log.Printf("Failed to initialize audit shippers (%v), continuing with database-only audit logging", err)
		return nil
	}
	return shipper
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. The database is
// the only hard dependency; Redis and SMTP degrade gracefully, so they do not
// gate readiness.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version and supported surfaces.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version, surfaces: {admin, ingest}"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
			"surfaces": gin.H{
				"admin":  "v1",
				"ingest": "v1",
			},
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
