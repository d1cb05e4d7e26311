package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowedOrigins holds exact origins, "*" for any origin, or
	// "scheme://host:*" for any port on host.
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func (c CORSConfig) allowAny() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c CORSConfig) allows(origin string) bool {
	for _, o := range c.AllowedOrigins {
		switch {
		case o == "*", o == origin:
			return true
		case strings.HasSuffix(o, ":*"):
			prefix := strings.TrimSuffix(o, "*")
			port := strings.TrimPrefix(origin, prefix)
			if port != origin && port != "" && isDigits(port) {
				return true
			}
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WithCORS answers preflight requests and sets the CORS response headers.
// Requests without an Origin header pass through untouched; requests from
// an origin that is not allowed get 403.
func WithCORS(next http.Handler, cfg CORSConfig, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")

		if !cfg.allows(origin) {
			log.Warn(r.Context(), "http.cors_denied", "origin", origin, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, errorResponse{
				StatusCode: http.StatusForbidden,
				ErrorCode:  common.CodeForbidden,
				Message:    "Origin not allowed",
			})
			return
		}

		if cfg.allowAny() && !cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			} else {
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge/time.Second)))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
