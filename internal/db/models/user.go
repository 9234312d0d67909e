// user.go defines the User model for hub accounts. Scopes are stored directly
// on the user record (JSONB array) and checked at request time, so permission
// changes take effect on the user's next request without reissuing tokens.
package models

import "time"

// User represents a user account in the hub.
type User struct {
	ID             string    `db:"id" json:"user_id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	Scopes         []string  `db:"-" json:"scopes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasAdminScope returns true if the user carries the admin wildcard scope.
func (u *User) HasAdminScope() bool {
	for _, s := range u.Scopes {
		if s == "admin" {
			return true
		}
	}
	return false
}
