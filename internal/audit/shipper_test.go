package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// rotateEntry is the shape the audit middleware produces for a key rotation
// on the admin surface.
func rotateEntry() *LogEntry {
	return &LogEntry{
		Timestamp:      time.Date(2026, 5, 11, 9, 30, 0, 0, time.UTC),
		Action:         "api_key.rotate",
		UserID:         "user-7",
		OrganizationID: "org-acme",
		ResourceType:   "api_key",
		ResourceID:     "key-42",
		IPAddress:      "203.0.113.9",
		AuthMethod:     "jwt",
		StatusCode:     200,
		Metadata:       map[string]interface{}{"environment": "PRODUCTION"},
	}
}

// ingestAuthEntry is the shape produced for a rejected ingest request.
func ingestAuthEntry() *LogEntry {
	return &LogEntry{
		Timestamp:  time.Date(2026, 5, 11, 9, 31, 0, 0, time.UTC),
		Action:     "ingest.auth_failure",
		AuthMethod: "api_key",
		IPAddress:  "198.51.100.20",
		StatusCode: 401,
		Metadata:   map[string]interface{}{"reason": "revoked"},
	}
}

// ---------------------------------------------------------------------------
// FileShipper
// ---------------------------------------------------------------------------

func newTestFileShipper(t *testing.T, cfg *FileConfig) *FileShipper {
	t.Helper()
	fs, err := NewFileShipper(cfg)
	if err != nil {
		t.Fatalf("NewFileShipper: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestFileShipper_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fs := newTestFileShipper(t, &FileConfig{Path: path})

	if err := fs.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if err := fs.Ship(context.Background(), ingestAuthEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Action != "api_key.rotate" || entries[0].ResourceID != "key-42" {
		t.Errorf("first entry = %+v, want the rotation record", entries[0])
	}
	if env := entries[0].Metadata["environment"]; env != "PRODUCTION" {
		t.Errorf("metadata environment = %v, want PRODUCTION", env)
	}
	if entries[1].Action != "ingest.auth_failure" || entries[1].StatusCode != 401 {
		t.Errorf("second entry = %+v, want the ingest rejection", entries[1])
	}
}

func TestFileShipper_RestrictivePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fs := newTestFileShipper(t, &FileConfig{Path: path})

	if err := fs.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit file mode = %o, want 0600", perm)
	}
}

func TestFileShipper_RotatesAtSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fs := newTestFileShipper(t, &FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2})

	// Grow the live file past 1 MB so the next Ship triggers rotation.
	filler := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		if _, err := fs.file.WriteString(filler + "\n"); err != nil {
			t.Fatalf("fill audit file: %v", err)
		}
	}

	if err := fs.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship after fill: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated backup %s.1: %v", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat live file: %v", err)
	}
	if info.Size() > 4096 {
		t.Errorf("live file size = %d after rotation, want a fresh file", info.Size())
	}
}

// ---------------------------------------------------------------------------
// WebhookShipper
// ---------------------------------------------------------------------------

func TestWebhookShipper_PostsEntry(t *testing.T) {
	var (
		mu       sync.Mutex
		received LogEntry
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ws, err := NewWebhookShipper(&WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer siem-token"},
	})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}
	defer ws.Close()

	if err := ws.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Action != "api_key.rotate" {
		t.Errorf("collector received action %q, want api_key.rotate", received.Action)
	}
	if auth != "Bearer siem-token" {
		t.Errorf("Authorization = %q, want the configured header", auth)
	}
}

func TestWebhookShipper_ErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collector down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ws, err := NewWebhookShipper(&WebhookConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}
	defer ws.Close()

	if err := ws.Ship(context.Background(), ingestAuthEntry()); err == nil {
		t.Error("expected error when the collector returns 503")
	}
}

func TestWebhookShipper_BatchFlushedOnClose(t *testing.T) {
	var (
		mu    sync.Mutex
		batch []LogEntry
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&batch)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ws, err := NewWebhookShipper(&WebhookConfig{
		URL:           srv.URL,
		Timeout:       2 * time.Second,
		BatchSize:     10,
		FlushInterval: time.Hour, // only the close should flush
	})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}

	if err := ws.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if err := ws.Ship(context.Background(), ingestAuthEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(batch)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector received %d entries after close, want 2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ---------------------------------------------------------------------------
// MultiShipper
// ---------------------------------------------------------------------------

func TestNewMultiShipper_SkipsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	ms, err := NewMultiShipper([]ShipperConfig{
		{Enabled: false, Type: "file", File: &FileConfig{Path: filepath.Join(t.TempDir(), "ignored.log")}},
		{Enabled: true, Type: "file", File: &FileConfig{Path: path}},
	})
	if err != nil {
		t.Fatalf("NewMultiShipper: %v", err)
	}
	defer ms.Close()

	if len(ms.shippers) != 1 {
		t.Errorf("got %d shippers, want 1 (disabled entries skipped)", len(ms.shippers))
	}
}

func TestNewMultiShipper_UnknownType(t *testing.T) {
	_, err := NewMultiShipper([]ShipperConfig{{Enabled: true, Type: "kafka"}})
	if err == nil {
		t.Error("expected error for unknown shipper type")
	}
}

func TestNewMultiShipper_MissingDestinationConfig(t *testing.T) {
	for _, typ := range []string{"webhook", "file", "syslog"} {
		if _, err := NewMultiShipper([]ShipperConfig{{Enabled: true, Type: typ}}); err == nil {
			t.Errorf("expected error for %s shipper without its config", typ)
		}
	}
}

func TestMultiShipper_FansOutToAllDestinations(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.log")
	pathB := filepath.Join(dir, "b.log")

	ms, err := NewMultiShipper([]ShipperConfig{
		{Enabled: true, Type: "file", File: &FileConfig{Path: pathA}},
		{Enabled: true, Type: "file", File: &FileConfig{Path: pathB}},
	})
	if err != nil {
		t.Fatalf("NewMultiShipper: %v", err)
	}
	defer ms.Close()

	if err := ms.Ship(context.Background(), rotateEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	for _, p := range []string{pathA, pathB} {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !strings.Contains(string(data), "api_key.rotate") {
			t.Errorf("%s does not contain the shipped entry", p)
		}
	}
}
