// ABOUTME: Admin web UI for gateway management
// ABOUTME: Cookie-session login against the configured admin password, CSRF on mutating forms

package webadmin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/anglerworks/angler-gateway/internal/license"
	"github.com/anglerworks/angler-gateway/internal/session"
	"github.com/anglerworks/angler-gateway/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "angler_admin_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "angler_admin_csrf"

	// SessionDuration is how long admin sessions last
	SessionDuration = 7 * 24 * time.Hour

	// adminUpdateHWID is the hardware id sent to the license service when an
	// admin rotates a key; the real one rebinds on the user's next login.
	adminUpdateHWID = "admin-update"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds admin UI configuration
type Config struct {
	// PasswordHash is the bcrypt hash of the admin password
	PasswordHash string
	// BaseURL is the external URL of the panel, shown on the dashboard
	BaseURL string
}

// Admin handles the management UI routes and their authentication.
type Admin struct {
	store    store.Store
	registry *session.Registry
	licenses license.Validator
	config   Config
	logger   *slog.Logger
	sessions *sessionStore
}

// New creates a new Admin handler
func New(st store.Store, registry *session.Registry, licenses license.Validator, cfg Config) *Admin {
	return &Admin{
		store:    st,
		registry: registry,
		licenses: licenses,
		config:   cfg,
		logger:   slog.Default().With("component", "admin"),
		sessions: newSessionStore(),
	}
}

// RegisterRoutes registers all admin routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/login", a.handleLoginPage)
	mux.HandleFunc("POST /admin/login", a.handleLogin)

	mux.HandleFunc("GET /admin", a.requireAuth(a.handleDashboard))
	mux.HandleFunc("GET /admin/", a.requireAuth(a.handleDashboard))
	mux.HandleFunc("POST /admin/logout", a.requireAuth(a.handleLogout))

	mux.HandleFunc("GET /admin/users", a.requireAuth(a.handleUsersPage))
	mux.HandleFunc("POST /admin/users/{id}/reset-password", a.requireAuth(a.handleUserResetPassword))
	mux.HandleFunc("POST /admin/users/{id}/toggle-active", a.requireAuth(a.handleUserToggleActive))
	mux.HandleFunc("POST /admin/users/{id}/update-license", a.requireAuth(a.handleUserUpdateLicense))
	mux.HandleFunc("POST /admin/users/{id}/delete", a.requireAuth(a.handleUserDelete))

	mux.HandleFunc("GET /admin/settings", a.requireAuth(a.handleSettingsPage))
	mux.HandleFunc("POST /admin/settings", a.requireAuth(a.handleSettingsSave))

	mux.HandleFunc("POST /admin/broadcast", a.requireAuth(a.handleBroadcast))

	a.logger.Info("admin routes registered")
}

// requireAuth wraps a handler to require a live admin session
func (a *Admin) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || !a.sessions.valid(cookie.Value) {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from the form against the cookie
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	formToken := r.FormValue("csrf_token")
	return formToken != "" && formToken == cookie.Value
}

// handleLoginPage renders the login page
func (a *Admin) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && a.sessions.valid(cookie.Value) {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	_, csrfToken := a.ensureCSRFToken(w, r)
	a.renderLoginPage(w, "", csrfToken)
}

// handleLogin checks the admin password and opens a session
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}

	if !a.validateCSRF(r) {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Password required", csrfToken)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.config.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("admin login failed", "remote", r.RemoteAddr)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid password", csrfToken)
		return
	}

	token, err := a.sessions.create(SessionDuration)
	if err != nil {
		a.logger.Error("failed to create session", "error", err)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/admin",
		Expires:  time.Now().Add(SessionDuration),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	a.logger.Info("admin login successful", "remote", r.RemoteAddr)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// handleLogout drops the session and clears both cookies
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if !a.validateCSRF(r) {
			a.logger.Warn("logout request with invalid CSRF token")
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		a.sessions.revoke(cookie.Value)
	}

	for _, name := range []string{SessionCookieName, CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/admin",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}

	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// handleDashboard shows the headline numbers: accounts, live connections,
// catches today.
func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := a.ensureCSRFToken(w, r)
	ctx := r.Context()

	userCount, err := a.store.CountUsers(ctx)
	if err != nil {
		a.logger.Error("failed to count users", "error", err)
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	catchesToday, err := a.store.CountCatchesSince(ctx, midnight)
	if err != nil {
		a.logger.Error("failed to count catches", "error", err)
	}

	a.renderDashboard(w, dashboardData{
		Title:        "Dashboard",
		UserCount:    userCount,
		OnlineCount:  a.registry.Count(),
		CatchesToday: catchesToday,
		BaseURL:      a.config.BaseURL,
		CSRFToken:    csrfToken,
	})
}

// handleUsersPage lists every account with its catch aggregates
func (a *Admin) handleUsersPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := a.ensureCSRFToken(w, r)

	rows, err := a.store.ListUsers(r.Context())
	if err != nil {
		a.logger.Error("failed to list users", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}

	items := make([]userItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, userItem{
			ID:           row.ID,
			Username:     row.Username,
			Email:        row.Email,
			LicenseKey:   row.LicenseKey,
			HWID:         truncateHWID(row.HWID),
			PCName:       row.PCName,
			TotalCatches: row.TotalCatches,
			MonthCatches: row.MonthCatches,
			IsActive:     row.IsActive,
			Online:       a.registry.IsOnline(row.ID),
			LastLogin:    formatLastLogin(row.LastLogin),
			ResetCode:    a.activeResetCode(r.Context(), row.ID),
		})
	}

	a.renderUsersPage(w, usersPageData{
		Title:     "Users",
		Users:     items,
		CSRFToken: csrfToken,
	})
}

// activeResetCode returns the user's latest recovery code if it is still
// usable, so support can read it back to a player who never got theirs.
func (a *Admin) activeResetCode(ctx context.Context, userID int64) string {
	reset, err := a.store.LatestPasswordReset(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("failed to load latest reset code", "user_id", userID, "error", err)
		}
		return ""
	}
	if reset.Used || time.Now().After(reset.ExpiresAt) {
		return ""
	}
	return reset.ResetCode
}

// handleUserResetPassword sets a new password on an account
func (a *Admin) handleUserResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mutatingUserRequest(w, r)
	if !ok {
		return
	}

	newPassword := r.FormValue("new_password")
	if len(newPassword) < 6 {
		http.Error(w, "password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := a.store.SetPasswordHash(r.Context(), userID, string(hash)); err != nil {
		a.userActionError(w, "reset password", userID, err)
		return
	}

	a.logger.Info("admin reset user password", "user_id", userID)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// handleUserToggleActive flips the active flag on an account
func (a *Admin) handleUserToggleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mutatingUserRequest(w, r)
	if !ok {
		return
	}

	user, err := a.store.GetUserByID(r.Context(), userID)
	if err != nil {
		a.userActionError(w, "load user", userID, err)
		return
	}

	if err := a.store.SetActive(r.Context(), userID, !user.IsActive); err != nil {
		a.userActionError(w, "toggle active", userID, err)
		return
	}

	a.logger.Info("admin toggled user", "user_id", userID, "active", !user.IsActive)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// handleUserUpdateLicense rebinds an account to a new license key, for key
// expiry or purchase transfers. The new key is revalidated against the
// license service first; the hardware id rebinds on the user's next login.
func (a *Admin) handleUserUpdateLicense(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mutatingUserRequest(w, r)
	if !ok {
		return
	}

	newKey := strings.TrimSpace(r.FormValue("license_key"))
	if newKey == "" {
		http.Error(w, "license key is required", http.StatusBadRequest)
		return
	}

	user, err := a.store.GetUserByID(r.Context(), userID)
	if err != nil {
		a.userActionError(w, "load user", userID, err)
		return
	}
	if user.LicenseKey == newKey {
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	if owner, err := a.store.GetUserByLicenseKey(r.Context(), newKey); err == nil {
		http.Error(w, "license key already bound to "+owner.Username, http.StatusConflict)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		a.userActionError(w, "check license key", userID, err)
		return
	}

	if err := a.licenses.Validate(r.Context(), newKey, adminUpdateHWID); err != nil {
		if errors.Is(err, license.ErrServiceUnavailable) {
			http.Error(w, "license service unavailable", http.StatusBadGateway)
			return
		}
		http.Error(w, "license key invalid or expired", http.StatusForbidden)
		return
	}

	if err := a.store.UpdateLicenseKey(r.Context(), userID, newKey); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "license key already in use", http.StatusConflict)
			return
		}
		a.userActionError(w, "update license key", userID, err)
		return
	}

	a.logger.Info("admin rotated license key",
		"user_id", userID,
		"username", user.Username,
		"old_key", user.LicenseKey,
		"new_key", newKey,
	)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// handleUserDelete removes an account and, via FK cascade, its catches
func (a *Admin) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mutatingUserRequest(w, r)
	if !ok {
		return
	}

	if err := a.store.DeleteUser(r.Context(), userID); err != nil {
		a.userActionError(w, "delete user", userID, err)
		return
	}

	a.logger.Info("admin deleted user", "user_id", userID)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// handleSettingsPage shows the settings editor
func (a *Admin) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := a.ensureCSRFToken(w, r)

	settings, err := a.store.ListSettings(r.Context())
	if err != nil {
		a.logger.Error("failed to list settings", "error", err)
		http.Error(w, "failed to list settings", http.StatusInternalServerError)
		return
	}

	a.renderSettingsPage(w, settingsPageData{
		Title:     "Settings",
		Settings:  settings,
		CSRFToken: csrfToken,
	})
}

// handleSettingsSave updates one settings key
func (a *Admin) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	if !a.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	key := r.FormValue("key")
	value := r.FormValue("value")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	if err := a.store.SetSetting(r.Context(), key, value); err != nil {
		a.logger.Error("failed to save setting", "key", key, "error", err)
		http.Error(w, "failed to save setting", http.StatusInternalServerError)
		return
	}

	a.logger.Info("setting updated", "key", key)
	http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
}

// handleBroadcast pushes an announcement to every live connection
func (a *Admin) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	if !a.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	message := r.FormValue("message")
	if message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	delivered := a.registry.Broadcast(map[string]any{
		"event":   "announcement",
		"message": message,
	})

	a.logger.Info("announcement broadcast", "delivered", delivered)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// mutatingUserRequest does the shared form parsing, CSRF check and id
// extraction for the per-user POST actions.
func (a *Admin) mutatingUserRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return 0, false
	}
	if !a.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return 0, false
	}

	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return userID, true
}

func (a *Admin) userActionError(w http.ResponseWriter, op string, userID int64, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	a.logger.Error("admin user action failed", "op", op, "user_id", userID, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// truncateHWID shortens hardware ids for display; full ids stay in the DB
func truncateHWID(hwid string) string {
	if len(hwid) <= 12 {
		return hwid
	}
	return hwid[:12] + "…"
}

func formatLastLogin(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
