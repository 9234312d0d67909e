// api_key_repository.go implements APIKeyRepository, providing database queries
// for environment-scoped application API keys: creation, prefix lookup, the
// rotate/revoke status transitions, expiry sweeping, and last-used updates.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// ErrStatusConflict is returned when a status transition's guard matches no
// row: rotating a key that is not ACTIVE, or revoking a key that is already
// REVOKED or EXPIRED. Handlers map it to 409 so double-submits are harmless.
var ErrStatusConflict = errors.New("api key is not in a state that allows this transition")

const apiKeyColumns = `id, application_id, organization_id, environment, status, key_hash, key_prefix,
	       created_at, updated_at, last_used_at, expires_at, revoked_at, activates_at, expiry_notified_at`

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAPIKey scans one row into an APIKey, parsing the environment and status
// strings through the model Parse functions so unrecognized database values
// surface as the Unknown variants rather than raw strings.
func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	k := &models.APIKey{}
	var environment, status string

	err := row.Scan(
		&k.ID,
		&k.ApplicationID,
		&k.OrganizationID,
		&environment,
		&status,
		&k.KeyHash,
		&k.KeyPrefix,
		&k.CreatedAt,
		&k.UpdatedAt,
		&k.LastUsedAt,
		&k.ExpiresAt,
		&k.RevokedAt,
		&k.ActivatesAt,
		&k.ExpiryNotifiedAt,
	)
	if err != nil {
		return nil, err
	}

	k.Environment = models.ParseEnvironment(environment)
	k.Status = models.ParseKeyStatus(status)
	return k, nil
}

// Create inserts a new API key. The caller supplies environment, status,
// key_hash, and key_prefix; ID and timestamps are set here.
func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	apiKey.ID = uuid.New().String()
	now := time.Now()
	apiKey.CreatedAt = now
	apiKey.UpdatedAt = now

	query := `
		INSERT INTO application_api_keys (id, application_id, organization_id, environment, status, key_hash, key_prefix, created_at, updated_at, expires_at, activates_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		apiKey.ID,
		apiKey.ApplicationID,
		apiKey.OrganizationID,
		string(apiKey.Environment),
		string(apiKey.Status),
		apiKey.KeyHash,
		apiKey.KeyPrefix,
		apiKey.CreatedAt,
		apiKey.UpdatedAt,
		apiKey.ExpiresAt,
		apiKey.ActivatesAt,
	)

	return err
}

// GetByID retrieves an API key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, keyID string) (*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM application_api_keys
		WHERE id = $1
	`

	apiKey, err := scanAPIKey(r.db.QueryRowContext(ctx, query, keyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return apiKey, nil
}

// ListByApplication retrieves every key belonging to an application, across
// all environments and statuses. Row projection happens in the keys package;
// this returns the raw set.
func (r *APIKeyRepository) ListByApplication(ctx context.Context, applicationID string) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM application_api_keys
		WHERE application_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apiKeys := make([]*models.APIKey, 0)
	for rows.Next() {
		apiKey, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		apiKeys = append(apiKeys, apiKey)
	}

	return apiKeys, rows.Err()
}

// GetByPrefix retrieves API keys matching a display prefix (for ingest
// authentication). Multiple keys can share a prefix only by collision, but a
// rotation window legitimately leaves several keys with distinct prefixes per
// environment, so the caller bcrypt-compares against every candidate.
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, keyPrefix string) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM application_api_keys
		WHERE key_prefix = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, keyPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apiKeys := make([]*models.APIKey, 0)
	for rows.Next() {
		apiKey, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		apiKeys = append(apiKeys, apiKey)
	}

	return apiKeys, rows.Err()
}

// PrefixInUse reports whether any key in the environment already carries the
// display prefix. Generation regenerates on collision so prefixes stay
// distinct within an environment; idx_api_keys_env_prefix backs this check.
func (r *APIKeyRepository) PrefixInUse(ctx context.Context, environment models.Environment, keyPrefix string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM application_api_keys
			WHERE environment = $1 AND key_prefix = $2
		)
	`

	var inUse bool
	if err := r.db.QueryRowContext(ctx, query, string(environment), keyPrefix).Scan(&inUse); err != nil {
		return false, err
	}
	return inUse, nil
}

// MarkRotating transitions an ACTIVE key to ROTATING with the given grace
// deadline. The status guard in the WHERE clause makes concurrent rotate
// requests safe: the second one matches no row and gets ErrStatusConflict.
func (r *APIKeyRepository) MarkRotating(ctx context.Context, keyID string, expiresAt time.Time) error {
	query := `
		UPDATE application_api_keys
		SET status = 'ROTATING', expires_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'ACTIVE'
	`

	result, err := r.db.ExecContext(ctx, query, keyID, expiresAt, time.Now())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkRevoked transitions a usable (ACTIVE or ROTATING) key to REVOKED.
// revoked_at and expires_at are both set to revokedAt so a revoked key's
// expiry always equals its revocation time.
func (r *APIKeyRepository) MarkRevoked(ctx context.Context, keyID string, revokedAt time.Time) error {
	query := `
		UPDATE application_api_keys
		SET status = 'REVOKED', revoked_at = $2, expires_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('ACTIVE', 'ROTATING')
	`

	result, err := r.db.ExecContext(ctx, query, keyID, revokedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SweepExpired flips every usable key whose expiry has passed to EXPIRED and
// returns how many rows changed. Run periodically by the lifecycle sweeper.
func (r *APIKeyRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE application_api_keys
		SET status = 'EXPIRED', updated_at = $1
		WHERE status IN ('ACTIVE', 'ROTATING')
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateLastUsed updates the last_used_at timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string) error {
	query := `
		UPDATE application_api_keys
		SET last_used_at = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, keyID, time.Now())
	return err
}

// FindExpiringRotating returns ROTATING keys whose grace deadline falls within
// warningDays from now and that have not yet had a warning email sent
// (expiry_notified_at IS NULL).
func (r *APIKeyRepository) FindExpiringRotating(ctx context.Context, warningDays int) ([]*models.APIKey, error) {
	cutoff := time.Now().Add(time.Duration(warningDays) * 24 * time.Hour)
	query := `
		SELECT ` + apiKeyColumns + `
		FROM application_api_keys
		WHERE status = 'ROTATING'
		  AND expires_at IS NOT NULL
		  AND expires_at > NOW()
		  AND expires_at <= $1
		  AND expiry_notified_at IS NULL
		ORDER BY expires_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MarkExpiryNotificationSent records that the expiry warning email was sent for a key,
// preventing duplicate emails on subsequent job runs.
func (r *APIKeyRepository) MarkExpiryNotificationSent(ctx context.Context, keyID string) error {
	query := `UPDATE application_api_keys SET expiry_notified_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), keyID)
	return err
}
