// audit_log.go defines the AuditLog model for recording security-relevant
// events, capturing actor, action, affected resource, client IP, and arbitrary metadata.
package models

import "time"

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID             string                 `db:"id" json:"id"`
	UserID         *string                `db:"user_id" json:"user_id,omitempty"` // Nullable for system actions
	OrganizationID *string                `db:"organization_id" json:"organization_id,omitempty"`
	Action         string                 `db:"action" json:"action"`                        // "application.update", "api_key.rotate"
	ResourceType   *string                `db:"resource_type" json:"resource_type,omitempty"` // "organization", "application", "api_key", "user"
	ResourceID     *string                `db:"resource_id" json:"resource_id,omitempty"`
	Metadata       map[string]interface{} `db:"-" json:"metadata,omitempty"` // JSONB: additional context
	IPAddress      *string                `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt      time.Time              `db:"created_at" json:"created_at"`
}
