// ABOUTME: Public HTTP API surface: account auth, stats, leaderboards and public config
// ABOUTME: Owns route registration and the shared JSON response helpers

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/anglerworks/angler-gateway/internal/auth"
	"github.com/anglerworks/angler-gateway/internal/license"
	"github.com/anglerworks/angler-gateway/internal/store"
)

const rankingSize = 5

// Handler serves the public JSON API consumed by the bot client and the
// stats overlay.
type Handler struct {
	store    store.Store
	tokens   *auth.JWTVerifier
	licenses license.Validator
	tokenTTL time.Duration
	logger   *slog.Logger

	authLimiter     *ipLimiter
	recoveryLimiter *ipLimiter
}

// New creates the API handler. tokenTTL is the lifetime of issued tokens.
func New(st store.Store, tokens *auth.JWTVerifier, licenses license.Validator, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    st,
		tokens:   tokens,
		licenses: licenses,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "api"),

		// Same windows the bot client was tuned against: 10 auth
		// attempts per 15 minutes, 3 recovery requests per hour.
		authLimiter:     newIPLimiter(15*time.Minute, 10),
		recoveryLimiter: newIPLimiter(time.Hour, 3),
	}
}

// Routes registers all public endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.authLimiter.wrap(h.handleRegister))
	mux.HandleFunc("POST /auth/login", h.authLimiter.wrap(h.handleLogin))
	mux.HandleFunc("POST /auth/request-reset", h.recoveryLimiter.wrap(h.handleRequestReset))
	mux.HandleFunc("POST /auth/reset-password", h.recoveryLimiter.wrap(h.handleResetPassword))

	mux.HandleFunc("GET /api/stats/{license_key}", h.handleUserStats)
	mux.HandleFunc("GET /api/ranking/monthly", h.handleMonthlyRanking)
	mux.HandleFunc("GET /api/ranking/alltime", h.handleAlltimeRanking)
	mux.HandleFunc("GET /api/config/public", h.handlePublicConfig)

	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("response encode failed", "error", err)
	}
}

// sendFailure writes the conventional {"success": false, "message": ...}
// failure envelope every endpoint shares.
func (h *Handler) sendFailure(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]any{
		"service": "angler-gateway",
		"status":  "online",
		"endpoints": map[string]any{
			"auth": map[string]string{
				"register":      "POST /auth/register",
				"login":         "POST /auth/login",
				"requestReset":  "POST /auth/request-reset",
				"resetPassword": "POST /auth/reset-password",
			},
			"stats": map[string]string{
				"userStats":      "GET /api/stats/{license_key}",
				"monthlyRanking": "GET /api/ranking/monthly",
				"alltimeRanking": "GET /api/ranking/alltime",
			},
			"realtime": "GET /ws",
		},
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
