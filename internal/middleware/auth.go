// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, request IDs, and audit logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	RequestID → Metrics → Auth → RateLimit → RBAC → Audit → Handler
//
// Auth runs before the rate limiter so the limiter can key on the resolved
// identity (user ID on the admin surface, API key ID on the ingest surface)
// rather than only on client IP; unauthenticated requests fall back to the
// IP key. RBAC reads the identity Auth placed in the context. Audit logging
// runs after RBAC so only successfully authorized mutations are recorded.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oneredboot/orb-integration-hub/internal/auth"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/safego"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// JWTAuthMiddleware authenticates the admin API: it validates the Bearer JWT,
// loads the user, and places the user and their scopes in the Gin context for
// RBAC and audit middleware downstream.
func JWTAuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("organization_id", user.OrganizationID)
		c.Set("scopes", user.Scopes)
		c.Set("auth_method", "jwt")

		c.Next()
	}
}

// APIKeyAuthMiddleware authenticates the ingest API with an orb_api key.
//
// We never store the raw key — only its bcrypt hash. The display prefix
// (orb_api_ + first 4 random characters + ****) is stored plaintext alongside
// the hash and is recomputable from a presented key, so authentication is a
// fast indexed lookup narrowing to a few candidate rows, then a bcrypt
// comparison against each. Without the prefix, every request would bcrypt
// against the whole table.
//
// REVOKED and EXPIRED keys are rejected even if the database sweep has not
// run yet: a usable status AND an unexpired deadline are both required.
func APIKeyAuthMiddleware(apiKeyRepo *repositories.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("bad_format").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		prefix, err := auth.DisplayPrefixFor(token)
		if err != nil {
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("bad_format").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key format",
			})
			return
		}

		apiKey, err := authenticateAPIKey(c.Request.Context(), token, prefix, apiKeyRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}
		if apiKey == nil {
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("unknown").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			return
		}

		switch {
		case apiKey.Status == models.KeyStatusRevoked:
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("revoked").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key has been revoked",
			})
			return
		case apiKey.Status == models.KeyStatusExpired,
			apiKey.ExpiresAt != nil && time.Now().After(*apiKey.ExpiresAt):
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("expired").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key has expired",
			})
			return
		case !apiKey.Status.Usable():
			telemetry.IngestAuthAttemptsTotal.WithLabelValues("unknown").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key is not active",
			})
			return
		}

		telemetry.IngestAuthAttemptsTotal.WithLabelValues("ok").Inc()

		// Update last-used asynchronously. Last-used tracking is best-effort —
		// a failed update is not a correctness problem, and a synchronous write
		// would add DB latency to every ingest request. The 5-second timeout
		// prevents leaked goroutines if the DB is temporarily unreachable.
		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiKeyRepo.UpdateLastUsed(ctx, apiKey.ID)
		})

		c.Set("api_key", apiKey)
		c.Set("api_key_id", apiKey.ID)
		c.Set("application_id", apiKey.ApplicationID)
		c.Set("organization_id", apiKey.OrganizationID)
		c.Set("environment", apiKey.Environment)
		c.Set("auth_method", "api_key")

		c.Next()
	}
}

// authenticateAPIKey looks up candidate keys by display prefix and
// bcrypt-compares the presented key against each.
func authenticateAPIKey(ctx context.Context, providedKey, keyPrefix string, apiKeyRepo *repositories.APIKeyRepository) (*models.APIKey, error) {
	keys, err := apiKeyRepo.GetByPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if auth.ValidateAPIKey(providedKey, key.KeyHash) {
			return key, nil
		}
	}

	return nil, nil
}
