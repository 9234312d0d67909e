// event.go defines the IngestEvent model for events submitted by integration
// clients through the ingest API.
package models

import "time"

// IngestEvent represents one event accepted from an integration client. The
// application, organization, and environment are taken from the authenticated
// API key, never from the request body.
type IngestEvent struct {
	ID             string                 `db:"id" json:"id"`
	ApplicationID  string                 `db:"application_id" json:"application_id"`
	OrganizationID string                 `db:"organization_id" json:"organization_id"`
	APIKeyID       *string                `db:"api_key_id" json:"api_key_id,omitempty"`
	Environment    Environment            `db:"environment" json:"environment"`
	EventType      string                 `db:"event_type" json:"event_type"`
	Payload        map[string]interface{} `db:"-" json:"payload,omitempty"`
	OccurredAt     *time.Time             `db:"occurred_at" json:"occurred_at,omitempty"`
	ReceivedAt     time.Time              `db:"received_at" json:"received_at"`
}
