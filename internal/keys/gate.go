// gate.go implements the activation gate: a draft application may only move
// to Active once every selected environment holds a usable key.
package keys

import (
	"sort"
	"strings"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// GateResult reports the outcome of an activation check. Missing holds the
// environments without a usable key, ordered by environment priority.
type GateResult struct {
	Missing []models.Environment
}

// Satisfied reports whether every selected environment had a usable key.
func (r GateResult) Satisfied() bool {
	return len(r.Missing) == 0
}

// Message renders the user-facing validation message, or "" when the gate
// passed.
func (r GateResult) Message() string {
	if r.Satisfied() {
		return ""
	}
	labels := make([]string, len(r.Missing))
	for i, env := range r.Missing {
		labels[i] = env.Label()
	}
	return "Cannot activate: API keys are required for " + strings.Join(labels, ", ") +
		". Configure keys in the Security tab before activating."
}

// CheckActivation verifies that every selected environment has at least one
// key with status ACTIVE or ROTATING. REVOKED and EXPIRED keys never satisfy
// an environment. The check is pure: callers decide whether to apply it
// (it only applies to a Pending→Active transition; edits to an already-active
// application skip it entirely).
func CheckActivation(environments []models.Environment, apiKeys []*models.APIKey) GateResult {
	usable := make(map[models.Environment]bool, len(environments))
	for _, k := range apiKeys {
		if k.Status.Usable() {
			usable[k.Environment] = true
		}
	}

	var missing []models.Environment
	for _, env := range environments {
		if !usable[env] {
			missing = append(missing, env)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return EnvironmentPriority(missing[i]) < EnvironmentPriority(missing[j])
	})
	return GateResult{Missing: missing}
}
