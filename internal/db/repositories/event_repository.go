// event_repository.go implements EventRepository, the write and read paths for
// the ingest event store.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// EventRepository handles ingest event database operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateBatch inserts a batch of events inside one transaction so a batch is
// either fully accepted or not stored at all.
func (r *EventRepository) CreateBatch(ctx context.Context, events []*models.IngestEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO ingest_events (id, application_id, organization_id, api_key_id, environment, event_type, payload, occurred_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, event := range events {
		event.ID = uuid.New().String()
		event.ReceivedAt = now

		payloadJSON, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}

		if _, err := stmt.ExecContext(ctx,
			event.ID,
			event.ApplicationID,
			event.OrganizationID,
			event.APIKeyID,
			string(event.Environment),
			event.EventType,
			payloadJSON,
			event.OccurredAt,
			event.ReceivedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByApplication retrieves recent events for an application, newest first.
func (r *EventRepository) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]*models.IngestEvent, error) {
	query := `
		SELECT id, application_id, organization_id, api_key_id, environment, event_type, payload, occurred_at, received_at
		FROM ingest_events
		WHERE application_id = $1
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.IngestEvent, 0)
	for rows.Next() {
		event := &models.IngestEvent{}
		var environment string
		var payloadJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.ApplicationID,
			&event.OrganizationID,
			&event.APIKeyID,
			&environment,
			&event.EventType,
			&payloadJSON,
			&event.OccurredAt,
			&event.ReceivedAt,
		)
		if err != nil {
			return nil, err
		}

		event.Environment = models.ParseEnvironment(environment)
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
