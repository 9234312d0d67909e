// application.go defines the Application model and its Pending/Active status
// enum. An application in Pending status is a draft: it cannot be moved to
// Active until every selected environment has a usable API key (see
// internal/keys/gate.go).
package models

import "time"

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationStatusPending ApplicationStatus = "PENDING"
	ApplicationStatusActive  ApplicationStatus = "ACTIVE"

	// ApplicationStatusUnknown is the defensive fallback for unrecognized values.
	ApplicationStatusUnknown ApplicationStatus = "UNKNOWN"
)

// ParseApplicationStatus converts a raw string into an ApplicationStatus,
// falling back to ApplicationStatusUnknown for unrecognized values.
func ParseApplicationStatus(s string) ApplicationStatus {
	switch ApplicationStatus(s) {
	case ApplicationStatusPending, ApplicationStatusActive:
		return ApplicationStatus(s)
	}
	return ApplicationStatusUnknown
}

// IsDraft reports whether the application is still a draft (not yet activated).
func (s ApplicationStatus) IsDraft() bool {
	return s == ApplicationStatusPending
}

// Application represents an integration application owned by an organization.
// Environments holds the deployment tiers the application is configured for;
// it is stored as a JSONB array of environment tags.
type Application struct {
	ID             string            `db:"id" json:"application_id"`
	OrganizationID string            `db:"organization_id" json:"organization_id"`
	Name           string            `db:"name" json:"name"`
	Description    *string           `db:"description" json:"description,omitempty"`
	Status         ApplicationStatus `db:"status" json:"status"`
	Environments   []Environment     `db:"-" json:"environments"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}
