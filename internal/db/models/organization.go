// organization.go defines the Organization model representing a tenant that
// owns applications, users, and API keys in the hub.
package models

import "time"

// Organization represents an organization/tenant in the hub.
type Organization struct {
	ID           string    `db:"id" json:"organization_id"`
	Name         string    `db:"name" json:"name"` // URL-safe name
	DisplayName  string    `db:"display_name" json:"display_name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
