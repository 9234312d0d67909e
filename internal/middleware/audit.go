// audit.go provides Gin middleware that records authenticated actions to the audit
// log, with optional shipping to external audit destinations.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oneredboot/orb-integration-hub/internal/audit"
	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/safego"
)

// AuditMiddleware logs authenticated actions to the database only.
func AuditMiddleware(auditRepo *repositories.AuditRepository) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil, nil)
}

// AuditMiddlewareWithShipper logs authenticated actions and ships them to any
// configured external destinations.
func AuditMiddlewareWithShipper(auditRepo *repositories.AuditRepository, shipper audit.Shipper, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		// Default behavior: only log successful write operations.
		if auditCfg == nil {
			if isReadOp || isFailed {
				return
			}
		} else {
			if isReadOp && !logReadOps {
				return
			}
			if isFailed && !logFailedReqs {
				return
			}
		}

		userID, _ := c.Get("user_id")
		orgID, _ := c.Get("organization_id")
		authMethod, _ := c.Get("auth_method")

		path := c.Request.URL.Path
		action := fmt.Sprintf("%s %s", c.Request.Method, path)
		ipAddress := c.ClientIP()
		statusCode := c.Writer.Status()

		auditLog := &models.AuditLog{
			Action:    action,
			IPAddress: &ipAddress,
			CreatedAt: time.Now(),
		}

		var userIDStr string
		if uid, ok := userID.(string); ok {
			userIDStr = uid
			auditLog.UserID = &userIDStr
		}

		var orgIDStr string
		if oid, ok := orgID.(string); ok {
			orgIDStr = oid
			auditLog.OrganizationID = &orgIDStr
		}

		// Classify the resource from the URL. Key routes are checked before
		// application routes because key endpoints nest under applications.
		var resourceType string
		switch {
		case strings.Contains(path, "/keys") || strings.Contains(path, "/rotate") || strings.Contains(path, "/revoke"):
			resourceType = "api_key"
			if strings.Contains(path, "/rotate") {
				action = "api_key.rotated"
			} else if strings.Contains(path, "/revoke") {
				action = "api_key.revoked"
			} else if c.Request.Method == "POST" {
				action = "api_key.generated"
			}
			auditLog.Action = action
		case strings.Contains(path, "/applications"):
			resourceType = "application"
		case strings.Contains(path, "/organizations"):
			resourceType = "organization"
		case strings.Contains(path, "/users"):
			resourceType = "user"
		case strings.Contains(path, "/ingest"):
			resourceType = "event"
		}
		if resourceType != "" {
			auditLog.ResourceType = &resourceType
		}

		metadata := map[string]interface{}{
			"status_code": statusCode,
		}
		if authMethod != nil {
			metadata["auth_method"] = authMethod
		}
		auditLog.Metadata = metadata

		// Persist off the request path so audit writes never add latency.
		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					slog.Error("failed to write audit log", "action", auditLog.Action, "error", err)
				}
			}

			if shipper != nil {
				authMethodStr, _ := authMethod.(string)

				entry := &audit.LogEntry{
					Timestamp:      auditLog.CreatedAt,
					Action:         auditLog.Action,
					UserID:         userIDStr,
					OrganizationID: orgIDStr,
					ResourceType:   resourceType,
					IPAddress:      ipAddress,
					AuthMethod:     authMethodStr,
					StatusCode:     statusCode,
					Metadata:       metadata,
				}

				if err := shipper.Ship(ctx, entry); err != nil {
					slog.Error("failed to ship audit log", "action", auditLog.Action, "error", err)
				}
			}
		})
	}
}
