// Package ingest implements the HTTP surface integration clients talk to.
// Every request authenticates with an application API key (orb_api_…) through
// the API key middleware, which scopes the request to one application and one
// environment. The handlers here trust that context and never accept
// application or environment identifiers from the request body.
package ingest

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// maxBatchSize caps how many events one request may carry.
const maxBatchSize = 500

// Event is one client-submitted event in an ingest batch.
type Event struct {
	Type       string                 `json:"type" binding:"required"`
	OccurredAt *time.Time             `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// EventBatchRequest is the body of POST /v1/ingest/events.
type EventBatchRequest struct {
	Events []Event `json:"events" binding:"required"`
}

// @Summary      Ingest events
// @Description  Accept a batch of integration events for the authenticated application. The batch is stored atomically; the environment comes from the API key, not the body.
// @Tags         Ingest
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        body  body  EventBatchRequest  true  "Event batch (at most 500 events)"
// @Success      202  {object}  map[string]interface{}  "accepted: int, environment: string"
// @Failure      400  {object}  map[string]interface{}  "Invalid body, empty batch, or batch too large"
// @Failure      401  {object}  map[string]interface{}  "Missing or unusable API key"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /v1/ingest/events [post]
// EventsHandler accepts event batches from authenticated integration clients
// Implements: POST /v1/ingest/events
func EventsHandler(cfg *config.Config, db *sql.DB) gin.HandlerFunc {
	eventRepo := repositories.NewEventRepository(db)

	return func(c *gin.Context) {
		var req EventBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if len(req.Events) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Batch must contain at least one event",
			})
			return
		}
		if len(req.Events) > maxBatchSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Batch exceeds the maximum of 500 events",
			})
			return
		}

		envVal, exists := c.Get("environment")
		env, ok := envVal.(models.Environment)
		if !exists || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key authentication required",
			})
			return
		}

		applicationID := c.GetString("application_id")
		organizationID := c.GetString("organization_id")

		var apiKeyID *string
		if id := c.GetString("api_key_id"); id != "" {
			apiKeyID = &id
		}

		events := make([]*models.IngestEvent, 0, len(req.Events))
		for _, e := range req.Events {
			events = append(events, &models.IngestEvent{
				ApplicationID:  applicationID,
				OrganizationID: organizationID,
				APIKeyID:       apiKeyID,
				Environment:    env,
				EventType:      e.Type,
				Payload:        e.Payload,
				OccurredAt:     e.OccurredAt,
			})
		}

		if err := eventRepo.CreateBatch(c.Request.Context(), events); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store events",
			})
			return
		}

		telemetry.IngestEventsAcceptedTotal.WithLabelValues(string(env)).Add(float64(len(events)))

		c.JSON(http.StatusAccepted, gin.H{
			"accepted":    len(events),
			"environment": env,
		})
	}
}
