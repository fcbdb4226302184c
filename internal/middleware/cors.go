package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// CORSConfig holds configuration for cross-origin handling.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. Production and development supply different lists.
	AllowedOrigins []string

	// AllowCredentials lets the browser send cookies cross-origin. The CSRF
	// cookies require it when the marketing frontend runs on its own origin.
	AllowCredentials bool
}

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}, ", ")

	corsAllowHeaders = strings.Join([]string{
		"Content-Type",
		"Authorization",
		"X-Requested-With",
		"X-Request-ID",
		"x-csrf-token",
	}, ", ")
)

// corsPolicy is the compiled form of CORSConfig.
type corsPolicy struct {
	allowAll         bool
	origins          map[string]bool
	allowCredentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{origins: make(map[string]bool), allowCredentials: cfg.AllowCredentials}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.allowAll = true
		}
		if o != "" {
			p.origins[o] = true
		}
	}

	// Wildcard origin with credentials would let any site make
	// authenticated requests. Refuse to send credentials in that case.
	if p.allowAll && p.allowCredentials {
		slog.Warn("CORS misconfiguration: wildcard origin with credentials; credentials will not be allowed")
		p.allowCredentials = false
	}
	return p
}

// apply writes the per-request CORS headers when origin is allowed.
func (p *corsPolicy) apply(h http.Header, origin string) {
	if origin == "" || !(p.allowAll || p.origins[origin]) {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if p.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// preflight writes the headers answering an OPTIONS request.
func (p *corsPolicy) preflight(h http.Header) {
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Max-Age", "3600")
}
