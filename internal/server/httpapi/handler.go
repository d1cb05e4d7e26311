// Package httpapi exposes the session core over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

const defaultMaxBodyBytes = 1 << 16

type Sessions interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	RegisterAndLogin(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, token string) (*models.TokenPair, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, accessToken string) (models.JwtPayload, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

type Handler struct {
	sessions     Sessions
	profiles     Profiles
	policy       validation.Policy
	log          logging.Logger
	maxBodyBytes int64
	metrics      http.Handler
	cors         *CORSConfig
}

type HandlerOption func(*Handler)

func WithLogger(log logging.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log.With("module", "http_api")
		}
	}
}

// WithMetrics mounts m at GET /metrics.
func WithMetrics(m http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithCORSConfig enables cross-origin access as described by cfg.
func WithCORSConfig(cfg CORSConfig) HandlerOption {
	return func(h *Handler) {
		h.cors = &cfg
	}
}

func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewHandler(ss Sessions, ps Profiles, policy validation.Policy, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:     ss,
		profiles:     ps,
		policy:       policy,
		log:          logging.Nop{},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /users/me", h.handleMe)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// Routes returns a mux with every route registered, wrapped in the
// recovery, CORS (when configured) and request logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	var next http.Handler = WithRecover(mux, h.log)
	if h.cors != nil {
		next = WithCORS(next, *h.cors, h.log)
	}
	return WithRequestLogging(next, h.log)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	pair, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	pair, err := h.sessions.RegisterAndLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeRefreshToken(w, r)
	if !ok {
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeRefreshToken(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(r.Context(), w, h.log, common.ErrTokenInvalid)
		return
	}

	payload, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	if !payload.Role.Valid() {
		writeError(r.Context(), w, h.log, common.ErrForbidden)
		return
	}

	u, err := h.profiles.GetProfile(r.Context(), payload.Sub)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(u))
}

// ---- helpers ----

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(r.Context(), w, h.log, common.NewValidationFailed("invalid request body"))
		return req, false
	}
	if err := h.policy.Credentials(req.Email, req.Password); err != nil {
		writeError(r.Context(), w, h.log, err)
		return req, false
	}
	return req, true
}

func (h *Handler) decodeRefreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req refreshTokenRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(r.Context(), w, h.log, common.NewValidationFailed("invalid request body"))
		return "", false
	}
	if err := h.policy.RefreshToken(req.RefreshToken); err != nil {
		writeError(r.Context(), w, h.log, err)
		return "", false
	}
	return req.RefreshToken, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
