// audit_repository.go implements AuditRepository, the database half of the
// hub's audit trail. The audit middleware writes one row per authenticated
// mutation (key lifecycle changes, application activation, scope edits) and
// the audit-log admin endpoints read them back filtered by actor,
// organization, action, resource type, and time window.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

const auditLogColumns = `id, user_id, organization_id, action, resource_type, resource_id, metadata, ip_address, created_at`

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters narrows an audit-log listing. Nil fields are ignored.
type AuditFilters struct {
	UserID         *string
	OrganizationID *string
	Action         *string
	ResourceType   *string
	StartDate      *time.Time
	EndDate        *time.Time
}

// whereClause renders the active filters as an AND chain starting at
// parameter $1, returning the clause and its arguments.
func (f AuditFilters) whereClause() (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := make([]interface{}, 0)

	add := func(cond string, value interface{}) {
		args = append(args, value)
		clause += fmt.Sprintf(` AND `+cond, len(args))
	}

	if f.UserID != nil {
		add(`user_id = $%d`, *f.UserID)
	}
	if f.OrganizationID != nil {
		add(`organization_id = $%d`, *f.OrganizationID)
	}
	if f.Action != nil {
		add(`action = $%d`, *f.Action)
	}
	if f.ResourceType != nil {
		add(`resource_type = $%d`, *f.ResourceType)
	}
	if f.StartDate != nil {
		add(`created_at >= $%d`, *f.StartDate)
	}
	if f.EndDate != nil {
		add(`created_at <= $%d`, *f.EndDate)
	}

	return clause, args
}

// scanAuditLog scans one row, decoding the JSONB metadata column.
func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var metadataJSON []byte

	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.OrganizationID,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&metadataJSON,
		&log.IPAddress,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, err
		}
	}

	return log, nil
}

// CreateAuditLog inserts one audit entry, assigning its ID and timestamp.
// Entries are append-only; nothing in the hub updates or deletes them.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	var metadataJSON []byte
	var err error
	if log.Metadata != nil {
		metadataJSON, err = json.Marshal(log.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (` + auditLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.OrganizationID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		metadataJSON,
		log.IPAddress,
		log.CreatedAt,
	)

	return err
}

// ListAuditLogs returns the filtered entries newest-first along with the
// total match count, so the admin UI can paginate.
func (r *AuditRepository) ListAuditLogs(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditLog, int, error) {
	clause, args := filters.whereClause()

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}

// GetAuditLog retrieves a single entry by ID, (nil, nil) when absent.
func (r *AuditRepository) GetAuditLog(ctx context.Context, logID string) (*models.AuditLog, error) {
	query := `SELECT ` + auditLogColumns + ` FROM audit_logs WHERE id = $1`

	log, err := scanAuditLog(r.db.QueryRowContext(ctx, query, logID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return log, nil
}
