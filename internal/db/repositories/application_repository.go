// application_repository.go implements ApplicationRepository, providing
// database queries for application CRUD and the Pending→Active status update.
// Built on sqlx so rows scan straight into tagged structs.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

// ApplicationRepository handles database operations for applications
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new application repository. The plain
// *sql.DB from db.Connect is wrapped here so the rest of the codebase keeps a
// single pool.
func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: sqlx.NewDb(db, "postgres")}
}

// applicationRow mirrors the applications table. Environments and status are
// raw here and converted through the model Parse functions on the way out.
type applicationRow struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	Description    *string   `db:"description"`
	Status         string    `db:"status"`
	Environments   []byte    `db:"environments"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row *applicationRow) toModel() (*models.Application, error) {
	var tags []string
	if len(row.Environments) > 0 {
		if err := json.Unmarshal(row.Environments, &tags); err != nil {
			return nil, fmt.Errorf("failed to parse environments: %w", err)
		}
	}

	environments := make([]models.Environment, 0, len(tags))
	for _, tag := range tags {
		environments = append(environments, models.ParseEnvironment(tag))
	}

	return &models.Application{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		Description:    row.Description,
		Status:         models.ParseApplicationStatus(row.Status),
		Environments:   environments,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func environmentsJSON(environments []models.Environment) ([]byte, error) {
	tags := make([]string, 0, len(environments))
	for _, env := range environments {
		tags = append(tags, string(env))
	}
	return json.Marshal(tags)
}

// Create inserts a new application in PENDING status
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	app.ID = uuid.New().String()
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	envJSON, err := environmentsJSON(app.Environments)
	if err != nil {
		return fmt.Errorf("failed to encode environments: %w", err)
	}

	query := `
		INSERT INTO applications (id, organization_id, name, description, status, environments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		app.ID,
		app.OrganizationID,
		app.Name,
		app.Description,
		string(app.Status),
		envJSON,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `
		SELECT id, organization_id, name, description, status, environments, created_at, updated_at
		FROM applications
		WHERE id = $1
	`

	var row applicationRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return row.toModel()
}

// ListByOrganization retrieves all applications belonging to an organization
func (r *ApplicationRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Application, error) {
	query := `
		SELECT id, organization_id, name, description, status, environments, created_at, updated_at
		FROM applications
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	var dbRows []applicationRow
	if err := r.db.SelectContext(ctx, &dbRows, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := make([]*models.Application, 0, len(dbRows))
	for i := range dbRows {
		app, err := dbRows[i].toModel()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// Update updates an application's name, description, environments, and status.
// The activation gate runs in the handler before a PENDING→ACTIVE update
// reaches here; this method just persists.
func (r *ApplicationRepository) Update(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now()

	envJSON, err := environmentsJSON(app.Environments)
	if err != nil {
		return fmt.Errorf("failed to encode environments: %w", err)
	}

	query := `
		UPDATE applications
		SET name = $2, description = $3, status = $4, environments = $5, updated_at = $6
		WHERE id = $1
	`

	_, err = r.db.ExecContext(ctx, query,
		app.ID,
		app.Name,
		app.Description,
		string(app.Status),
		envJSON,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	return nil
}

// Delete deletes an application (cascades to its API keys)
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM applications WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return nil
}
