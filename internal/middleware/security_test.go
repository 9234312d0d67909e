package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	return w
}

func TestSecurityHeaders_APIProfile(t *testing.T) {
	w := applySecurityHeaders(APISecurityHeadersConfig())

	want := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":           "no-referrer",
	}
	for name, value := range want {
		if got := w.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}

	// JSON responses don't need the legacy XSS filter or a permissions grant.
	for _, absent := range []string{"X-XSS-Protection", "Permissions-Policy"} {
		if got := w.Header().Get(absent); got != "" {
			t.Errorf("%s = %q, want unset on the API profile", absent, got)
		}
	}
}

func TestSecurityHeaders_DefaultProfile(t *testing.T) {
	w := applySecurityHeaders(DefaultSecurityHeadersConfig())

	if got := w.Header().Get("X-XSS-Protection"); got != "1; mode=block" {
		t.Errorf("X-XSS-Protection = %q, want enabled on the default profile", got)
	}
	if got := w.Header().Get("Permissions-Policy"); got == "" {
		t.Error("default profile should emit a Permissions-Policy")
	}
}

func TestSecurityHeaders_HSTSVariants(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityHeadersConfig
		want string
	}{
		{
			"disabled",
			SecurityHeadersConfig{EnableHSTS: false},
			"",
		},
		{
			"bare max-age",
			SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 3600},
			"max-age=3600",
		},
		{
			"subdomains and preload",
			SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 60, HSTSIncludeSubdomains: true, HSTSPreload: true},
			"max-age=60; includeSubDomains; preload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := applySecurityHeaders(tt.cfg)
			if got := w.Header().Get("Strict-Transport-Security"); got != tt.want {
				t.Errorf("Strict-Transport-Security = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeaders_UnconditionalHardening(t *testing.T) {
	// Emitted even with an all-zero config.
	w := applySecurityHeaders(SecurityHeadersConfig{})

	want := map[string]string{
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Embedder-Policy":      "require-corp",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for name, value := range want {
		if got := w.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeaders_FrameOptionsSameOrigin(t *testing.T) {
	cfg := SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "SAMEORIGIN"}
	w := applySecurityHeaders(cfg)

	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, want SAMEORIGIN", got)
	}
}
