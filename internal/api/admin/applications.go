// applications.go implements handlers for application CRUD and the activation
// gate: a PENDING application may only move to ACTIVE once every selected
// environment holds a usable API key.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/keys"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// ApplicationHandlers handles application management endpoints
type ApplicationHandlers struct {
	cfg        *config.Config
	db         *sql.DB
	appRepo    *repositories.ApplicationRepository
	orgRepo    *repositories.OrganizationRepository
	apiKeyRepo *repositories.APIKeyRepository
}

// NewApplicationHandlers creates a new ApplicationHandlers instance
func NewApplicationHandlers(cfg *config.Config, db *sql.DB) *ApplicationHandlers {
	return &ApplicationHandlers{
		cfg:        cfg,
		db:         db,
		appRepo:    repositories.NewApplicationRepository(db),
		orgRepo:    repositories.NewOrganizationRepository(db),
		apiKeyRepo: repositories.NewAPIKeyRepository(db),
	}
}

// parseEnvironments converts raw environment tags into typed values. Tags
// outside the known set collapse to EnvironmentUnknown rather than failing
// the request; the raw spelling is not retained.
func parseEnvironments(raw []string) []models.Environment {
	envs := make([]models.Environment, 0, len(raw))
	for _, tag := range raw {
		envs = append(envs, models.ParseEnvironment(tag))
	}
	return envs
}

// @Summary      List applications
// @Description  List the applications belonging to an organization.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        organization_id  query  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "applications: []models.Application"
// @Failure      400  {object}  map[string]interface{}  "Missing organization_id"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications [get]
// ListApplicationsHandler lists applications for an organization
// GET /api/v1/applications?organization_id=...
func (h *ApplicationHandlers) ListApplicationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Query("organization_id")
		if orgID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "organization_id query parameter is required",
			})
			return
		}

		apps, err := h.appRepo.ListByOrganization(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list applications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"applications": apps,
		})
	}
}

// @Summary      Get application
// @Description  Retrieve a specific application by ID.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "application: models.Application"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications/{id} [get]
// GetApplicationHandler retrieves a specific application by ID
// GET /api/v1/applications/:id
func (h *ApplicationHandlers) GetApplicationHandler() gin.HandlerFunc {
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

		c.JSON(http.StatusOK, gin.H{
			"application": app,
		})
	}
}

// CreateApplicationRequest represents the request to create a new application
type CreateApplicationRequest struct {
	OrganizationID string   `json:"organization_id" binding:"required"`
	Name           string   `json:"name" binding:"required,max=255"`
	Description    *string  `json:"description" binding:"omitempty,max=2000"`
	Environments   []string `json:"environments"`
}

// @Summary      Create application
// @Description  Create a new application in PENDING status. The application stays a draft until activation.
// @Tags         Applications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateApplicationRequest  true  "Application details"
// @Success      201  {object}  map[string]interface{}  "application: models.Application"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications [post]
// CreateApplicationHandler creates a new application
// POST /api/v1/applications
func (h *ApplicationHandlers) CreateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), req.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organization",
			})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Organization not found",
			})
			return
		}

		app := &models.Application{
			OrganizationID: req.OrganizationID,
			Name:           req.Name,
			Description:    req.Description,
			Status:         models.ApplicationStatusPending,
			Environments:   parseEnvironments(req.Environments),
		}

		if err := h.appRepo.Create(c.Request.Context(), app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create application",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"application": app,
		})
	}
}

// UpdateApplicationRequest represents the request to update an application
type UpdateApplicationRequest struct {
	Name         *string   `json:"name" binding:"omitempty,max=255"`
	Description  *string   `json:"description" binding:"omitempty,max=2000"`
	Environments *[]string `json:"environments"`
	Status       *string   `json:"status"`
}

// @Summary      Update application
// @Description  Update an application. Moving a PENDING application to ACTIVE requires a usable API key in every selected environment; the request fails with 422 otherwise.
// @Tags         Applications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "Application ID"
// @Param        body  body  UpdateApplicationRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "application: models.Application"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body or status value"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      422  {object}  map[string]interface{}  "Activation gate failed; missing_environments lists the gaps"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications/{id} [put]
// UpdateApplicationHandler updates an application, enforcing the activation gate
// PUT /api/v1/applications/:id
func (h *ApplicationHandlers) UpdateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := c.Param("id")

		var req UpdateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
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

		if req.Name != nil {
			app.Name = *req.Name
		}
		if req.Description != nil {
			app.Description = req.Description
		}
		if req.Environments != nil {
			app.Environments = parseEnvironments(*req.Environments)
		}

		if req.Status != nil {
			newStatus := models.ParseApplicationStatus(*req.Status)
			if newStatus == models.ApplicationStatusUnknown {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid status: must be PENDING or ACTIVE",
				})
				return
			}

			// The gate applies only to the Pending→Active transition; edits to
			// an already-active application skip it entirely.
			if app.Status.IsDraft() && newStatus == models.ApplicationStatusActive {
				appKeys, err := h.apiKeyRepo.ListByApplication(c.Request.Context(), appID)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{
						"error": "Failed to load API keys",
					})
					return
				}

				gate := keys.CheckActivation(app.Environments, appKeys)
				if !gate.Satisfied() {
					telemetry.ActivationGateFailuresTotal.Inc()
					c.JSON(http.StatusUnprocessableEntity, gin.H{
						"error":                gate.Message(),
						"missing_environments": gate.Missing,
					})
					return
				}
			}

			app.Status = newStatus
		}

		if err := h.appRepo.Update(c.Request.Context(), app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update application",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"application": app,
		})
	}
}

// @Summary      Delete application
// @Description  Remove an application and its API keys.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "message: Application deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/applications/{id} [delete]
// DeleteApplicationHandler deletes an application
// DELETE /api/v1/applications/:id
func (h *ApplicationHandlers) DeleteApplicationHandler() gin.HandlerFunc {
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

		if err := h.appRepo.Delete(c.Request.Context(), appID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete application",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Application deleted successfully",
		})
	}
}
