// security.go attaches protective response headers. The hub serves JSON to
// consoles and integration clients, never HTML, so the API profile locks the
// browser-facing surface down completely (no framing, no scripts, no
// sniffing) rather than carving out allowances.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig selects which protective headers are emitted and
// with what values.
type SecurityHeadersConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	EnableFrameOptions bool
	FrameOptionsValue  string // DENY or SAMEORIGIN

	EnableContentTypeOptions bool
	EnableXSSProtection      bool

	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// DefaultSecurityHeadersConfig is the browser-compatible profile: a CSP that
// permits same-origin assets, for anything that might one day serve a page.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000, // 1 year
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      true,
		ContentSecurityPolicy:    "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'",
		ReferrerPolicy:           "strict-origin-when-cross-origin",
		PermissionsPolicy:        "geolocation=(), microphone=(), camera=()",
	}
}

// APISecurityHeadersConfig is the profile the router installs on the admin
// and ingest surfaces: everything browser-renderable is denied outright.
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000,
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      false, // legacy header, irrelevant for JSON responses
		ContentSecurityPolicy:    "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:           "no-referrer",
		PermissionsPolicy:        "",
	}
}

// headerPairs flattens the config into the header name/value list to emit.
// The config is fixed for the life of the middleware, so this runs once.
func (c SecurityHeadersConfig) headerPairs() [][2]string {
	var h [][2]string

	if c.EnableHSTS {
		v := "max-age=" + strconv.Itoa(c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		if c.HSTSPreload {
			v += "; preload"
		}
		h = append(h, [2]string{"Strict-Transport-Security", v})
	}
	if c.EnableFrameOptions && c.FrameOptionsValue != "" {
		h = append(h, [2]string{"X-Frame-Options", c.FrameOptionsValue})
	}
	if c.EnableContentTypeOptions {
		h = append(h, [2]string{"X-Content-Type-Options", "nosniff"})
	}
	if c.EnableXSSProtection {
		h = append(h, [2]string{"X-XSS-Protection", "1; mode=block"})
	}
	if c.ContentSecurityPolicy != "" {
		h = append(h, [2]string{"Content-Security-Policy", c.ContentSecurityPolicy})
	}
	if c.ReferrerPolicy != "" {
		h = append(h, [2]string{"Referrer-Policy", c.ReferrerPolicy})
	}
	if c.PermissionsPolicy != "" {
		h = append(h, [2]string{"Permissions-Policy", c.PermissionsPolicy})
	}

	// Unconditional hardening: cross-origin isolation and no Flash/PDF
	// policy files, regardless of profile.
	h = append(h,
		[2]string{"X-Permitted-Cross-Domain-Policies", "none"},
		[2]string{"Cross-Origin-Embedder-Policy", "require-corp"},
		[2]string{"Cross-Origin-Opener-Policy", "same-origin"},
		[2]string{"Cross-Origin-Resource-Policy", "same-origin"},
	)
	return h
}

// SecurityHeadersMiddleware emits the configured headers on every response.
func SecurityHeadersMiddleware(config SecurityHeadersConfig) gin.HandlerFunc {
	pairs := config.headerPairs()
	return func(c *gin.Context) {
		for _, p := range pairs {
			c.Header(p[0], p[1])
		}
		c.Next()
	}
}
