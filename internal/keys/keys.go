// Package keys implements the API key lifecycle rules for the Orb Integration
// Hub: per-environment row projection, the deterministic two-level display
// ordering, human-readable activity text, and the activation gate that blocks
// a draft application from going live without key coverage.
//
// Everything in this package is a pure function over immutable snapshots of
// the key set. Handlers recompute projections per request; nothing here is
// persisted or cached.
package keys

import (
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// unknownPriority sorts unrecognized environments and keyless rows last.
const unknownPriority = 99

// EnvironmentPriority returns the display ordering priority for an
// environment: Production=0, Staging=1, Development=2, Test=3, Preview=4.
// Unrecognized environments sort last.
func EnvironmentPriority(env models.Environment) int {
	switch env {
	case models.EnvironmentProduction:
		return 0
	case models.EnvironmentStaging:
		return 1
	case models.EnvironmentDevelopment:
		return 2
	case models.EnvironmentTest:
		return 3
	case models.EnvironmentPreview:
		return 4
	}
	return unknownPriority
}

// StatusPriority returns the within-environment ordering priority for a key
// status: Active=0, Rotating=1, Revoked=2, Expired=3. Unrecognized statuses
// sort last, alongside rows that have no key at all.
func StatusPriority(status models.KeyStatus) int {
	switch status {
	case models.KeyStatusActive:
		return 0
	case models.KeyStatusRotating:
		return 1
	case models.KeyStatusRevoked:
		return 2
	case models.KeyStatusExpired:
		return 3
	}
	return unknownPriority
}
