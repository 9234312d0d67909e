package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/oneredboot/orb-integration-hub/internal/config"
)

var auditSQLCols = []string{
	"id", "user_id", "organization_id", "action", "resource_type", "resource_id", "metadata", "ip_address", "created_at",
}

func sampleAuditRow() *sqlmock.Rows {
	return sqlmock.NewRows(auditSQLCols).
		AddRow("log-1", "user-1", "org-1", "api_key.rotated", "api_key", "key-1",
			[]byte(`{"status_code":200}`), "203.0.113.9", time.Now())
}

func newAuditRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewAuditHandlers(&config.Config{}, db)

	r := gin.New()
	r.GET("/audit-logs", h.ListAuditLogsHandler())
	r.GET("/audit-logs/:id", h.GetAuditLogHandler())
	return mock, r
}

func TestListAuditLogs_Success(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT.*FROM audit_logs.*ORDER BY created_at DESC").
		WillReturnRows(sampleAuditRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["audit_logs"] == nil {
		t.Error("response missing 'audit_logs' key")
	}
	if resp["pagination"] == nil {
		t.Error("response missing 'pagination' key")
	}
}

func TestListAuditLogs_WithFilters(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs.*AND action").
		WithArgs("api_key.rotated", "api_key").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT.*FROM audit_logs.*AND action").
		WillReturnRows(sampleAuditRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs?action=api_key.rotated&resource_type=api_key", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestListAuditLogs_BadStartDate(t *testing.T) {
	_, r := newAuditRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs?start_date=yesterday", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: body=%s", w.Code, w.Body.String())
	}
}

func TestListAuditLogs_DBError(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs").
		WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetAuditLog_Success(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT.*FROM audit_logs.*WHERE id").
		WillReturnRows(sampleAuditRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs/log-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["audit_log"] == nil {
		t.Error("response missing 'audit_log' key")
	}
}

func TestGetAuditLog_NotFound(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT.*FROM audit_logs.*WHERE id").
		WillReturnRows(sqlmock.NewRows(auditSQLCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit-logs/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
