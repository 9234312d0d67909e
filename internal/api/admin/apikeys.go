// Package admin implements the administrative HTTP handlers for the Orb
// Integration Hub. These handlers require JWT authentication and appropriate
// RBAC scopes (see internal/middleware/rbac.go) — unlike the ingest handlers
// in internal/api/ingest, which authenticate with application API keys.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oneredboot/orb-integration-hub/internal/auth"
	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/keys"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// APIKeyHandlers handles API key lifecycle endpoints
type APIKeyHandlers struct {
	cfg        *config.Config
	db         *sql.DB
	apiKeyRepo *repositories.APIKeyRepository
	appRepo    *repositories.ApplicationRepository
}

// NewAPIKeyHandlers creates a new APIKeyHandlers instance
func NewAPIKeyHandlers(cfg *config.Config, db *sql.DB) *APIKeyHandlers {
	return &APIKeyHandlers{
		cfg:        cfg,
		db:         db,
		apiKeyRepo: repositories.NewAPIKeyRepository(db),
		appRepo:    repositories.NewApplicationRepository(db),
	}
}

// applyTTL fills in the computed seconds-to-expiry on every key that carries
// an expiry deadline. Already-passed deadlines clamp to zero.
func applyTTL(apiKeys []*models.APIKey, now time.Time) {
	for _, k := range apiKeys {
		if k.ExpiresAt == nil {
			continue
		}
		secs := int64(k.ExpiresAt.Sub(now).Seconds())
		if secs < 0 {
			secs = 0
		}
		k.TTL = &secs
	}
}

// maxPrefixAttempts bounds prefix-collision regeneration. Collisions need
// two keys sharing the same 4 leading random characters in one environment,
// so a second attempt almost always suffices.
const maxPrefixAttempts = 5

// generateUniqueKey mints key material whose display prefix is not already
// used by another key in the environment, regenerating on collision.
func generateUniqueKey(ctx context.Context, repo *repositories.APIKeyRepository, env models.Environment) (fullKey, hash, prefix string, err error) {
	for attempt := 0; attempt < maxPrefixAttempts; attempt++ {
		fullKey, hash, prefix, err = auth.GenerateAPIKey(env)
		if err != nil {
			return "", "", "", err
		}

		inUse, err := repo.PrefixInUse(ctx, env, prefix)
		if err != nil {
			return "", "", "", err
		}
		if !inUse {
			return fullKey, hash, prefix, nil
		}
	}
	return "", "", "", errors.New("could not generate a unique key prefix")
}

// GeneratedKeyResponse is the one-time response carrying a freshly minted key.
// The full key is never retrievable again; only its bcrypt hash is stored.
type GeneratedKeyResponse struct {
	ID          string             `json:"application_api_key_id"`
	Environment models.Environment `json:"environment"`
	Key         string             `json:"key"` // Only returned once
	KeyPrefix   string             `json:"key_prefix"`
	Status      models.KeyStatus   `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// @Summary      List application key rows
// @Description  Return one display row per selected environment (two during a rotation window), ordered by environment priority then key status. Each row carries the action flags the console needs.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "rows: []keys.Row"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications/{id}/keys [get]
// ListApplicationKeysHandler returns the per-environment key rows for an application
// GET /api/v1/applications/:id/keys
func (h *APIKeyHandlers) ListApplicationKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := c.Param("id")

		app, err := h.appRepo.GetByID(c.Request.Context(), appID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve application",
			})
			return
		}
		if app == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Application not found",
			})
			return
		}

		appKeys, err := h.apiKeyRepo.ListByApplication(c.Request.Context(), appID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list API keys",
			})
			return
		}

		now := time.Now()
		applyTTL(appKeys, now)
		rows := keys.ProjectRows(app.Environments, appKeys, now)

		c.JSON(http.StatusOK, gin.H{
			"application_id": appID,
			"rows":           rows,
		})
	}
}

// GenerateKeyRequest selects the environment the new key is scoped to.
type GenerateKeyRequest struct {
	Environment string `json:"environment" binding:"required"`
}

// @Summary      Generate API key
// @Description  Mint a new ACTIVE key for one of the application's environments. The full key appears in this response exactly once. Fails with 409 if the environment already has a usable key — rotate or revoke it first.
// @Tags         API Keys
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "Application ID"
// @Param        body  body  GenerateKeyRequest  true  "Target environment"
// @Success      201  {object}  map[string]interface{}  "api_key: GeneratedKeyResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid environment or environment not selected for this application"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      409  {object}  map[string]interface{}  "Environment already has a usable key"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications/{id}/keys [post]
// GenerateKeyHandler mints a new key for an application environment
// POST /api/v1/applications/:id/keys
func (h *APIKeyHandlers) GenerateKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := c.Param("id")

		var req GenerateKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		env := models.ParseEnvironment(req.Environment)
		if env == models.EnvironmentUnknown {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown environment: " + req.Environment,
			})
			return
		}

		app, err := h.appRepo.GetByID(c.Request.Context(), appID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve application",
			})
			return
		}
		if app == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Application not found",
			})
			return
		}

		selected := false
		for _, e := range app.Environments {
			if e == env {
				selected = true
				break
			}
		}
		if !selected {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Environment is not selected for this application",
			})
			return
		}

		existing, err := h.apiKeyRepo.ListByApplication(c.Request.Context(), appID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list API keys",
			})
			return
		}
		for _, k := range existing {
			if k.Environment == env && k.Status.Usable() {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Environment already has a usable key; rotate or revoke it first",
				})
				return
			}
		}

		fullKey, hash, prefix, err := generateUniqueKey(c.Request.Context(), h.apiKeyRepo, env)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate API key",
			})
			return
		}

		apiKey := &models.APIKey{
			ApplicationID:  appID,
			OrganizationID: app.OrganizationID,
			Environment:    env,
			Status:         models.KeyStatusActive,
			KeyHash:        hash,
			KeyPrefix:      prefix,
		}

		if err := h.apiKeyRepo.Create(c.Request.Context(), apiKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store API key",
			})
			return
		}

		telemetry.KeyGenerationsTotal.WithLabelValues(string(env)).Inc()

		c.JSON(http.StatusCreated, gin.H{
			"api_key": GeneratedKeyResponse{
				ID:          apiKey.ID,
				Environment: env,
				Key:         fullKey,
				KeyPrefix:   prefix,
				Status:      apiKey.Status,
				CreatedAt:   apiKey.CreatedAt,
			},
		})
	}
}

// @Summary      Rotate API key
// @Description  Start a rotation: the current key moves to ROTATING and keeps working until the grace deadline, while a replacement ACTIVE key is minted. The replacement's full key appears in this response exactly once. A concurrent rotation of the same key loses with 409.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "API key ID"
// @Success      200  {object}  map[string]interface{}  "api_key: GeneratedKeyResponse, previous_key: models.APIKey"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      409  {object}  map[string]interface{}  "Key is not ACTIVE (already rotating, revoked or expired)"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/keys/{id}/rotate [post]
// RotateKeyHandler rotates a key, opening a grace window for the old one
// POST /api/v1/keys/:id/rotate
func (h *APIKeyHandlers) RotateKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		keyID := c.Param("id")

		oldKey, err := h.apiKeyRepo.GetByID(c.Request.Context(), keyID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve API key",
			})
			return
		}
		if oldKey == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "API key not found",
			})
			return
		}

		now := time.Now()
		deadline := now.Add(h.cfg.Keys.RotationGracePeriod())

		// The status guard in MarkRotating resolves concurrent rotations of
		// the same key: exactly one request wins, the rest get 409.
		if err := h.apiKeyRepo.MarkRotating(c.Request.Context(), keyID, deadline); err != nil {
			if errors.Is(err, repositories.ErrStatusConflict) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Key is not active; it may already be rotating, revoked or expired",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to rotate API key",
			})
			return
		}

		fullKey, hash, prefix, err := generateUniqueKey(c.Request.Context(), h.apiKeyRepo, oldKey.Environment)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate replacement key",
			})
			return
		}

		newKey := &models.APIKey{
			ApplicationID:  oldKey.ApplicationID,
			OrganizationID: oldKey.OrganizationID,
			Environment:    oldKey.Environment,
			Status:         models.KeyStatusActive,
			KeyHash:        hash,
			KeyPrefix:      prefix,
		}

		if err := h.apiKeyRepo.Create(c.Request.Context(), newKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store replacement key",
			})
			return
		}

		telemetry.KeyRotationsTotal.WithLabelValues(string(oldKey.Environment)).Inc()

		oldKey.Status = models.KeyStatusRotating
		oldKey.ExpiresAt = &deadline
		applyTTL([]*models.APIKey{oldKey}, now)

		c.JSON(http.StatusOK, gin.H{
			"api_key": GeneratedKeyResponse{
				ID:          newKey.ID,
				Environment: newKey.Environment,
				Key:         fullKey,
				KeyPrefix:   prefix,
				Status:      newKey.Status,
				CreatedAt:   newKey.CreatedAt,
			},
			"previous_key": oldKey,
		})
	}
}

// RevokeKeyRequest carries the explicit confirmation revocation requires.
type RevokeKeyRequest struct {
	Confirm bool `json:"confirm"`
}

// @Summary      Revoke API key
// @Description  Immediately and irreversibly revoke a key. Requires confirm=true in the body; revocation takes effect at once, with no grace period. A concurrent revoke of the same key loses with 409.
// @Tags         API Keys
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "API key ID"
// @Param        body  body  RevokeKeyRequest  true  "Confirmation"
// @Success      200  {object}  map[string]interface{}  "api_key: models.APIKey"
// @Failure      400  {object}  map[string]interface{}  "Missing confirmation"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      409  {object}  map[string]interface{}  "Key already revoked or expired"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/keys/{id}/revoke [post]
// RevokeKeyHandler revokes a key immediately
// POST /api/v1/keys/:id/revoke
func (h *APIKeyHandlers) RevokeKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		keyID := c.Param("id")

		var req RevokeKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !req.Confirm {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Revocation is irreversible and requires confirm=true",
			})
			return
		}

		apiKey, err := h.apiKeyRepo.GetByID(c.Request.Context(), keyID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve API key",
			})
			return
		}
		if apiKey == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "API key not found",
			})
			return
		}

		now := time.Now()
		if err := h.apiKeyRepo.MarkRevoked(c.Request.Context(), keyID, now); err != nil {
			if errors.Is(err, repositories.ErrStatusConflict) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Key is already revoked or expired",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to revoke API key",
			})
			return
		}

		telemetry.KeyRevocationsTotal.WithLabelValues(string(apiKey.Environment)).Inc()

		apiKey.Status = models.KeyStatusRevoked
		apiKey.RevokedAt = &now
		apiKey.ExpiresAt = &now

		c.JSON(http.StatusOK, gin.H{
			"api_key": apiKey,
		})
	}
}
