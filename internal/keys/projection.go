// projection.go derives the per-environment display rows for an application's
// key set and applies the two-level display ordering.
package keys

import (
	"sort"
	"time"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// Row is one display row for an (environment, key) pair. Rows are ephemeral:
// derived fresh from the current key set on every request, never stored.
type Row struct {
	Environment models.Environment `json:"environment"`
	Label       string             `json:"label"`
	Key         *models.APIKey     `json:"key,omitempty"`

	HasUsableKey bool `json:"has_usable_key"`
	IsRotating   bool `json:"is_rotating"`
	IsRevoked    bool `json:"is_revoked"`
	IsExpired    bool `json:"is_expired"`

	CanGenerate   bool `json:"can_generate"`
	CanRegenerate bool `json:"can_regenerate"`
	CanRotate     bool `json:"can_rotate"`
	CanRevoke     bool `json:"can_revoke"`

	ActivityText string `json:"activity_text"`
	Muted        bool   `json:"muted"`
}

// ProjectRows builds one row per selected environment from the application's
// key set, then orders the result with SortRows.
//
// Key selection per environment:
//   - no keys at all → a single keyless row with CanGenerate set;
//   - an ACTIVE and a ROTATING key coexist (rotation window) → both are kept
//     as separate rows;
//   - otherwise exactly one row, preferring a usable (non-revoked,
//     non-expired) key, falling back to the best remaining key by status
//     priority and then recency.
func ProjectRows(environments []models.Environment, apiKeys []*models.APIKey, now time.Time) []Row {
	byEnv := make(map[models.Environment][]*models.APIKey, len(environments))
	for _, k := range apiKeys {
		byEnv[k.Environment] = append(byEnv[k.Environment], k)
	}

	rows := make([]Row, 0, len(environments))
	for _, env := range environments {
		envKeys := byEnv[env]
		if len(envKeys) == 0 {
			rows = append(rows, newRow(env, nil, now))
			continue
		}

		active := pickByStatus(envKeys, models.KeyStatusActive)
		rotating := pickByStatus(envKeys, models.KeyStatusRotating)
		if active != nil && rotating != nil {
			// Rotation window: the old key and its replacement each get a row.
			rows = append(rows, newRow(env, active, now), newRow(env, rotating, now))
			continue
		}

		rows = append(rows, newRow(env, mostRelevant(envKeys), now))
	}

	SortRows(rows)
	return rows
}

// newRow derives all display flags for a single (environment, key) pair.
func newRow(env models.Environment, key *models.APIKey, now time.Time) Row {
	row := Row{
		Environment:  env,
		Label:        env.Label(),
		Key:          key,
		ActivityText: ActivityText(key, now),
	}

	if key == nil {
		row.CanGenerate = true
		row.Muted = true
		return row
	}

	row.HasUsableKey = key.Status.Usable()
	row.IsRotating = key.Status == models.KeyStatusRotating
	row.IsRevoked = key.Status == models.KeyStatusRevoked
	row.IsExpired = key.Status == models.KeyStatusExpired

	row.CanRotate = key.Status == models.KeyStatusActive
	row.CanRevoke = row.HasUsableKey
	row.CanRegenerate = !row.HasUsableKey
	row.Muted = !row.HasUsableKey

	return row
}

// pickByStatus returns the most recently updated key with the given status,
// or nil if none matches.
func pickByStatus(envKeys []*models.APIKey, status models.KeyStatus) *models.APIKey {
	var best *models.APIKey
	for _, k := range envKeys {
		if k.Status != status {
			continue
		}
		if best == nil || k.UpdatedAt.After(best.UpdatedAt) {
			best = k
		}
	}
	return best
}

// mostRelevant selects the single key to display for an environment when no
// rotation window is in progress: lowest status priority wins, recency breaks
// ties.
func mostRelevant(envKeys []*models.APIKey) *models.APIKey {
	best := envKeys[0]
	for _, k := range envKeys[1:] {
		bp, kp := StatusPriority(best.Status), StatusPriority(k.Status)
		if kp < bp || (kp == bp && k.UpdatedAt.After(best.UpdatedAt)) {
			best = k
		}
	}
	return best
}

// Compare orders two rows by (environment priority, status priority) and
// returns the numeric difference; zero means the rows tie and their relative
// input order must be preserved.
func Compare(a, b Row) int {
	if d := EnvironmentPriority(a.Environment) - EnvironmentPriority(b.Environment); d != 0 {
		return d
	}
	return rowStatusPriority(a) - rowStatusPriority(b)
}

// SortRows sorts rows in place with the two-level policy. The sort is stable:
// rows comparing equal keep their relative input order.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return Compare(rows[i], rows[j]) < 0
	})
}

func rowStatusPriority(r Row) int {
	if r.Key == nil {
		return unknownPriority
	}
	return StatusPriority(r.Key.Status)
}
