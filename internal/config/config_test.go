package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Name != "orb_integration_hub" {
		t.Errorf("Database.Name = %q, want orb_integration_hub", cfg.Database.Name)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
	if !cfg.Security.RateLimiting.Enabled {
		t.Error("Security.RateLimiting.Enabled = false, want true")
	}
	if cfg.Security.RateLimiting.RedisAddr != "" {
		t.Errorf("Security.RateLimiting.RedisAddr = %q, want empty", cfg.Security.RateLimiting.RedisAddr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Telemetry.Metrics.PrometheusPort != 9090 {
		t.Errorf("Telemetry.Metrics.PrometheusPort = %d, want 9090", cfg.Telemetry.Metrics.PrometheusPort)
	}
	if cfg.Keys.RotationGraceDays != 7 {
		t.Errorf("Keys.RotationGraceDays = %d, want 7", cfg.Keys.RotationGraceDays)
	}
	if cfg.Notifications.KeyExpiryWarningDays != 3 {
		t.Errorf("Notifications.KeyExpiryWarningDays = %d, want 3", cfg.Notifications.KeyExpiryWarningDays)
	}
	if cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = true, want false by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ORB_SERVER_PORT", "9999")
	t.Setenv("ORB_DATABASE_HOST", "db.internal")
	t.Setenv("ORB_SECURITY_RATE_LIMITING_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("ORB_KEYS_ROTATION_GRACE_DAYS", "14")
	t.Setenv("ORB_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Security.RateLimiting.RedisAddr != "redis.internal:6379" {
		t.Errorf("RedisAddr = %q, want redis.internal:6379", cfg.Security.RateLimiting.RedisAddr)
	}
	if cfg.Keys.RotationGraceDays != 14 {
		t.Errorf("Keys.RotationGraceDays = %d, want 14", cfg.Keys.RotationGraceDays)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8181
database:
  host: pg.local
  name: hub_test
  user: hub
keys:
  rotation_grace_days: 3
notifications:
  enabled: true
  smtp:
    host: mail.local
    from: hub@example.com
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Database.Name != "hub_test" {
		t.Errorf("Database.Name = %q, want hub_test", cfg.Database.Name)
	}
	if cfg.Keys.RotationGraceDays != 3 {
		t.Errorf("Keys.RotationGraceDays = %d, want 3", cfg.Keys.RotationGraceDays)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = false, want true")
	}
	if cfg.Notifications.SMTP.From != "hub@example.com" {
		t.Errorf("SMTP.From = %q, want hub@example.com", cfg.Notifications.SMTP.From)
	}
	// Defaults still apply for keys the file omits.
	if cfg.Database.SSLMode != "require" {
		t.Errorf("Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
}

func TestExpandEnvInPassword(t *testing.T) {
	t.Setenv("TEST_DB_SECRET", "s3cret")
	t.Setenv("ORB_DATABASE_PASSWORD", "${TEST_DB_SECRET}")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Database.Password = %q, want expanded secret", cfg.Database.Password)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, BaseURL: "http://localhost:8080"},
			Database: DatabaseConfig{
				Host: "localhost",
				Name: "orb_integration_hub",
				User: "orb",
			},
			Logging: LoggingConfig{Level: "info"},
			Keys:    KeysConfig{RotationGraceDays: 7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"missing base url", func(c *Config) { c.Server.BaseURL = "" }, true},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing db user", func(c *Config) { c.Database.User = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"negative grace days", func(c *Config) { c.Keys.RotationGraceDays = -1 }, true},
		{"tls without cert", func(c *Config) { c.Security.TLS.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRotationGracePeriod(t *testing.T) {
	k := KeysConfig{RotationGraceDays: 7}
	if got := k.RotationGracePeriod(); got != 7*24*time.Hour {
		t.Errorf("RotationGracePeriod() = %v, want 168h", got)
	}
	k.RotationGraceDays = 0
	if got := k.RotationGracePeriod(); got != 7*24*time.Hour {
		t.Errorf("RotationGracePeriod() with zero = %v, want default 168h", got)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "orb",
		Password: "pw", Name: "orb_integration_hub", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=orb password=pw dbname=orb_integration_hub sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
