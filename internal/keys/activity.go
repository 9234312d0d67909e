// activity.go renders the human-readable activity line for a key row.
package keys

import (
	"fmt"
	"time"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// activityDateLayout is the short-date form used in activity text,
// e.g. "Mar 4, 2026".
const activityDateLayout = "Jan 2, 2006"

// ActivityText maps a key and the caller's current wall-clock time to the
// status line shown next to it:
//
//	nil key   → "No API key configured"
//	REVOKED   → "Revoked on {date}" (or "Revoked" without a timestamp)
//	EXPIRED   → "Expired on {date}" (or "Expired" without a timestamp)
//	ROTATING  → "Expires today" / "Expires in 1 day" / "Expires in {N} days"
//	otherwise → last-used elapsed-time bucket, or "Never used"
func ActivityText(key *models.APIKey, now time.Time) string {
	if key == nil {
		return "No API key configured"
	}

	switch key.Status {
	case models.KeyStatusRevoked:
		if key.RevokedAt != nil {
			return "Revoked on " + key.RevokedAt.Format(activityDateLayout)
		}
		return "Revoked"

	case models.KeyStatusExpired:
		if key.ExpiresAt != nil {
			return "Expired on " + key.ExpiresAt.Format(activityDateLayout)
		}
		return "Expired"

	case models.KeyStatusRotating:
		days := 0
		if key.ExpiresAt != nil {
			days = daysUntil(*key.ExpiresAt, now)
		}
		switch {
		case days <= 0:
			return "Expires today"
		case days == 1:
			return "Expires in 1 day"
		default:
			return fmt.Sprintf("Expires in %d days", days)
		}
	}

	return lastUsedText(key.LastUsedAt, now)
}

// daysUntil is ceil((t − now) / 24h).
func daysUntil(t, now time.Time) int {
	remaining := t.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// lastUsedText renders the coarsest applicable elapsed-time bucket for an
// active key's last use.
func lastUsedText(lastUsedAt *time.Time, now time.Time) string {
	if lastUsedAt == nil {
		return "Never used"
	}

	elapsed := now.Sub(*lastUsedAt)
	switch {
	case elapsed < time.Minute:
		return "Last used just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("Last used %d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return "Last used " + plural(int(elapsed.Hours()), "hour") + " ago"
	case elapsed < 7*24*time.Hour:
		return "Last used " + plural(int(elapsed.Hours()/24), "day") + " ago"
	default:
		return "Last used " + lastUsedAt.Format(activityDateLayout)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
