// Package models defines the database model types for the Orb Integration Hub.
// Each type corresponds to a database table and uses struct tags for both JSON serialization and sqlx row scanning.
// Models are pure data types — business logic belongs in the domain packages, query logic belongs in the repositories layer.
package models

import "time"

// Environment is the deployment tier an API key is scoped to.
type Environment string

const (
	EnvironmentProduction  Environment = "PRODUCTION"
	EnvironmentStaging     Environment = "STAGING"
	EnvironmentDevelopment Environment = "DEVELOPMENT"
	EnvironmentTest        Environment = "TEST"
	EnvironmentPreview     Environment = "PREVIEW"

	// EnvironmentUnknown is the fallback for unrecognized tags coming off the
	// wire or out of the database. Parsing collapses every such tag to this
	// single value (the original spelling is lost); the value is carried
	// through and displayed, never rejected.
	EnvironmentUnknown Environment = "UNKNOWN"
)

// KnownEnvironments lists every recognized environment in display-priority order.
func KnownEnvironments() []Environment {
	return []Environment{
		EnvironmentProduction,
		EnvironmentStaging,
		EnvironmentDevelopment,
		EnvironmentTest,
		EnvironmentPreview,
	}
}

// ParseEnvironment converts a raw string into an Environment, falling back to
// EnvironmentUnknown for unrecognized values. Parsing happens once at the
// deserialization boundary; everything downstream works with the typed value.
func ParseEnvironment(s string) Environment {
	switch Environment(s) {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment,
		EnvironmentTest, EnvironmentPreview:
		return Environment(s)
	}
	return EnvironmentUnknown
}

// Label returns the human-readable label for the environment ("Production",
// "Staging", ...). Values outside the known set fall back to their string
// form; after ParseEnvironment that is always "UNKNOWN".
func (e Environment) Label() string {
	switch e {
	case EnvironmentProduction:
		return "Production"
	case EnvironmentStaging:
		return "Staging"
	case EnvironmentDevelopment:
		return "Development"
	case EnvironmentTest:
		return "Test"
	case EnvironmentPreview:
		return "Preview"
	}
	return string(e)
}

// KeyStatus is the lifecycle state of an API key.
type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "ACTIVE"
	KeyStatusRotating KeyStatus = "ROTATING"
	KeyStatusRevoked  KeyStatus = "REVOKED"
	KeyStatusExpired  KeyStatus = "EXPIRED"

	// KeyStatusUnknown is the defensive fallback for unrecognized status values.
	KeyStatusUnknown KeyStatus = "UNKNOWN"
)

// ParseKeyStatus converts a raw string into a KeyStatus, falling back to
// KeyStatusUnknown for unrecognized values.
func ParseKeyStatus(s string) KeyStatus {
	switch KeyStatus(s) {
	case KeyStatusActive, KeyStatusRotating, KeyStatusRevoked, KeyStatusExpired:
		return KeyStatus(s)
	}
	return KeyStatusUnknown
}

// Usable reports whether a key in this status authenticates requests and
// satisfies the activation gate. Only ACTIVE and ROTATING keys are usable;
// REVOKED and EXPIRED never are.
func (s KeyStatus) Usable() bool {
	return s == KeyStatusActive || s == KeyStatusRotating
}

// APIKey represents an environment-scoped API key issued to an application.
//
// Invariants maintained by the repositories and handlers:
//   - a REVOKED key's ExpiresAt equals its RevokedAt;
//   - a ROTATING key's ExpiresAt is the rotation grace deadline
//     (UpdatedAt + the configured grace period, default 7 days).
type APIKey struct {
	ID             string      `db:"id" json:"application_api_key_id"`
	ApplicationID  string      `db:"application_id" json:"application_id"`
	OrganizationID string      `db:"organization_id" json:"organization_id"`
	Environment    Environment `db:"environment" json:"environment"`
	Status         KeyStatus   `db:"status" json:"status"`
	KeyHash        string      `db:"key_hash" json:"-"`
	KeyPrefix      string      `db:"key_prefix" json:"key_prefix"` // e.g. "orb_api_a1b2****"
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	LastUsedAt     *time.Time  `db:"last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt      *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	RevokedAt      *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
	ActivatesAt    *time.Time  `db:"activates_at" json:"activates_at,omitempty"`

	// ExpiryNotifiedAt records when the expiry warning email was sent, so the
	// notifier job does not send duplicates. Not exposed over the API.
	ExpiryNotifiedAt *time.Time `db:"expiry_notified_at" json:"-"`

	// TTL is the number of seconds until ExpiresAt, computed at response time
	// for keys that carry an expiry. Never stored.
	TTL *int64 `db:"-" json:"ttl,omitempty"`
}
