package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

var applicationCols = []string{
	"id", "organization_id", "name", "description", "status", "environments",
	"created_at", "updated_at",
}

func sampleApplicationRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(applicationCols).
		AddRow("app-1", "org-1", "checkout", nil, "PENDING",
			[]byte(`["PRODUCTION","STAGING"]`), now, now)
}

func newApplicationRepo(t *testing.T) (*ApplicationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewApplicationRepository(db), mock
}

func TestCreateApplication_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	app := &models.Application{
		OrganizationID: "org-1",
		Name:           "checkout",
		Environments:   []models.Environment{models.EnvironmentProduction},
	}
	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ID == "" {
		t.Error("Create did not assign an ID")
	}
	if app.Status != models.ApplicationStatusPending {
		t.Errorf("Status = %s, want PENDING default", app.Status)
	}
}

func TestGetApplicationByID_Found(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("SELECT.*FROM applications.*WHERE id").
		WithArgs("app-1").
		WillReturnRows(sampleApplicationRow())

	app, err := repo.GetByID(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app == nil {
		t.Fatal("expected application, got nil")
	}
	if app.Status != models.ApplicationStatusPending {
		t.Errorf("Status = %s, want PENDING", app.Status)
	}
	if len(app.Environments) != 2 {
		t.Fatalf("len(Environments) = %d, want 2", len(app.Environments))
	}
	if app.Environments[0] != models.EnvironmentProduction {
		t.Errorf("Environments[0] = %s, want PRODUCTION", app.Environments[0])
	}
}

func TestGetApplicationByID_NotFound(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("SELECT.*FROM applications.*WHERE id").
		WillReturnRows(sqlmock.NewRows(applicationCols))

	app, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestGetApplicationByID_UnknownEnvironmentTag(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	now := time.Now()
	rows := sqlmock.NewRows(applicationCols).
		AddRow("app-2", "org-1", "edge", nil, "ACTIVE",
			[]byte(`["PRODUCTION","EDGE"]`), now, now)
	mock.ExpectQuery("SELECT.*FROM applications.*WHERE id").
		WillReturnRows(rows)

	app, err := repo.GetByID(context.Background(), "app-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Environments[1] != models.EnvironmentUnknown {
		t.Errorf("Environments[1] = %s, want UNKNOWN fallback", app.Environments[1])
	}
}

func TestListApplicationsByOrganization_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("SELECT.*FROM applications.*WHERE organization_id").
		WithArgs("org-1").
		WillReturnRows(sampleApplicationRow())

	apps, err := repo.ListByOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("len(apps) = %d, want 1", len(apps))
	}
}

func TestUpdateApplication_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	app := &models.Application{
		ID:           "app-1",
		Name:         "checkout",
		Status:       models.ApplicationStatusActive,
		Environments: []models.Environment{models.EnvironmentProduction},
	}
	if err := repo.Update(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteApplication_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectExec("DELETE FROM applications").
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "app-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
