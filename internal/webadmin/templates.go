// ABOUTME: Template rendering functions for the admin UI
// ABOUTME: Loads templates from the embedded filesystem and renders them

package webadmin

import (
	"html/template"
	"net/http"

	"github.com/anglerworks/angler-gateway/internal/store"
)

// Template data types
type loginData struct {
	Title     string
	Error     string
	CSRFToken string
}

type dashboardData struct {
	Title        string
	UserCount    int64
	OnlineCount  int
	CatchesToday int64
	BaseURL      string
	CSRFToken    string
}

type userItem struct {
	ID           int64
	Username     string
	Email        string
	LicenseKey   string
	HWID         string
	PCName       string
	TotalCatches int64
	MonthCatches int64
	IsActive     bool
	Online       bool
	LastLogin    string
	ResetCode    string
}

type usersPageData struct {
	Title     string
	Users     []userItem
	CSRFToken string
}

type settingsPageData struct {
	Title     string
	Settings  []*store.Setting
	CSRFToken string
}

// renderLoginPage renders the login page
func (a *Admin) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/login.html"))

	data := loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render login page", "error", err)
	}
}

// renderDashboard renders the main dashboard
func (a *Admin) renderDashboard(w http.ResponseWriter, data dashboardData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render dashboard", "error", err)
	}
}

// renderUsersPage renders the user management table
func (a *Admin) renderUsersPage(w http.ResponseWriter, data usersPageData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/users.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render users page", "error", err)
	}
}

// renderSettingsPage renders the settings editor
func (a *Admin) renderSettingsPage(w http.ResponseWriter, data settingsPageData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/settings.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render settings page", "error", err)
	}
}
