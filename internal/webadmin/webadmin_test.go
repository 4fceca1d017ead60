// ABOUTME: Tests for the admin panel: login flow, CSRF enforcement, user actions
// ABOUTME: Drives the handlers through a cookie-carrying test client

package webadmin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anglerworks/angler-gateway/internal/license"
	"github.com/anglerworks/angler-gateway/internal/session"
	"github.com/anglerworks/angler-gateway/internal/store"
)

const testAdminPassword = "correct-horse"

type fakeValidator struct {
	err  error
	keys []string
}

func (v *fakeValidator) Validate(_ context.Context, licenseKey, _ string) error {
	v.keys = append(v.keys, licenseKey)
	return v.err
}

type adminFixture struct {
	admin     *Admin
	store     *store.SQLiteStore
	registry  *session.Registry
	validator *fakeValidator
	mux       *http.ServeMux

	// cookies collected across requests, like a browser would
	cookies map[string]string
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	registry := session.NewRegistry(nil)
	validator := &fakeValidator{}
	admin := New(st, registry, validator, Config{PasswordHash: string(hash)})

	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)

	return &adminFixture{
		admin:     admin,
		store:     st,
		registry:  registry,
		validator: validator,
		mux:       mux,
		cookies:   make(map[string]string),
	}
}

func (f *adminFixture) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for name, value := range f.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(f.cookies, c.Name)
			continue
		}
		f.cookies[c.Name] = c.Value
	}
	return rec
}

// login performs the full login dance: fetch the CSRF cookie, then post
// the password.
func (f *adminFixture) login(t *testing.T) {
	t.Helper()

	rec := f.do(t, http.MethodGet, "/admin/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, f.cookies[CSRFCookieName])

	rec = f.do(t, http.MethodPost, "/admin/login", url.Values{
		"csrf_token": {f.cookies[CSRFCookieName]},
		"password":   {testAdminPassword},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin/", rec.Header().Get("Location"))
	require.NotEmpty(t, f.cookies[SessionCookieName])
}

func (f *adminFixture) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	form.Set("csrf_token", f.cookies[CSRFCookieName])
	return f.do(t, http.MethodPost, path, form)
}

func (f *adminFixture) createUser(t *testing.T, username string) *store.User {
	t.Helper()
	user := &store.User{
		Username:     username,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		LicenseKey:   "KEY-" + username,
		HWID:         "hwid-" + username + "-0123456789abcdef",
		PCName:       "DESKTOP-TEST",
		IsActive:     true,
	}
	id, err := f.store.CreateUser(context.Background(), user)
	require.NoError(t, err)
	user.ID = id
	return user
}

func TestAdmin_RequiresLogin(t *testing.T) {
	f := newAdminFixture(t)

	for _, path := range []string{"/admin/", "/admin/users", "/admin/settings"} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/admin/login", rec.Header().Get("Location"), path)
	}
}

func TestAdmin_LoginFlow(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/admin/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dashboard")
}

func TestAdmin_LoginWrongPassword(t *testing.T) {
	f := newAdminFixture(t)
	f.do(t, http.MethodGet, "/admin/login", nil)

	rec := f.do(t, http.MethodPost, "/admin/login", url.Values{
		"csrf_token": {f.cookies[CSRFCookieName]},
		"password":   {"wrong"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")
	assert.Empty(t, f.cookies[SessionCookieName])
}

func TestAdmin_LoginRequiresCSRF(t *testing.T) {
	f := newAdminFixture(t)
	f.do(t, http.MethodGet, "/admin/login", nil)

	rec := f.do(t, http.MethodPost, "/admin/login", url.Values{
		"password": {testAdminPassword},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.cookies[SessionCookieName])
}

func TestAdmin_Logout(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)

	rec := f.postForm(t, "/admin/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "session is gone after logout")
}

func TestAdmin_UsersPage(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	f.createUser(t, "alice")

	rec := f.do(t, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "KEY-alice")
	// Hardware ids are truncated for display.
	assert.NotContains(t, body, "hwid-alice-0123456789abcdef")
}

func TestAdmin_ResetUserPassword(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "bob")

	rec := f.postForm(t, "/admin/users/"+strconv.FormatInt(user.ID, 10)+"/reset-password", url.Values{
		"new_password": {"fresh-password"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	updated, err := f.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("fresh-password")))
}

func TestAdmin_ToggleActive(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "carol")

	path := "/admin/users/" + strconv.FormatInt(user.ID, 10) + "/toggle-active"
	require.Equal(t, http.StatusSeeOther, f.postForm(t, path, url.Values{}).Code)

	updated, err := f.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.Equal(t, http.StatusSeeOther, f.postForm(t, path, url.Values{}).Code)
	updated, err = f.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
}

func TestAdmin_UpdateLicense(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "frank")

	path := "/admin/users/" + strconv.FormatInt(user.ID, 10) + "/update-license"
	rec := f.postForm(t, path, url.Values{"license_key": {"KEY-transferred"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	updated, err := f.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "KEY-transferred", updated.LicenseKey)
	assert.Equal(t, []string{"KEY-transferred"}, f.validator.keys, "new key is revalidated")
}

func TestAdmin_UpdateLicense_KeyInUse(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "grace")
	f.createUser(t, "heidi")

	path := "/admin/users/" + strconv.FormatInt(user.ID, 10) + "/update-license"
	rec := f.postForm(t, path, url.Values{"license_key": {"KEY-heidi"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.validator.keys, "an in-use key never reaches the license service")

	updated, err := f.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "KEY-grace", updated.LicenseKey)
}

func TestAdmin_UpdateLicense_ValidationFails(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rejected key", license.ErrInvalidLicense, http.StatusForbidden},
		{"service unavailable", license.ErrServiceUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			f.login(t)
			user := f.createUser(t, "ivan")
			f.validator.err = tt.err

			path := "/admin/users/" + strconv.FormatInt(user.ID, 10) + "/update-license"
			rec := f.postForm(t, path, url.Values{"license_key": {"KEY-other"}})
			assert.Equal(t, tt.wantStatus, rec.Code)

			updated, err := f.store.GetUserByID(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, "KEY-ivan", updated.LicenseKey, "key unchanged")
		})
	}
}

func TestAdmin_UsersPage_ShowsActiveRecoveryCode(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "judy")
	other := f.createUser(t, "karl")

	ctx := context.Background()
	require.NoError(t, f.store.CreatePasswordReset(ctx, &store.PasswordReset{
		ID:        "reset-judy",
		UserID:    user.ID,
		ResetCode: "314159",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, f.store.CreatePasswordReset(ctx, &store.PasswordReset{
		ID:        "reset-karl",
		UserID:    other.ID,
		ResetCode: "271828",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	rec := f.do(t, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "314159", "live recovery code is shown for support")
	assert.NotContains(t, body, "271828", "expired codes are not shown")
}

func TestAdmin_DeleteUser(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "dave")

	rec := f.postForm(t, "/admin/users/"+strconv.FormatInt(user.ID, 10)+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err := f.store.GetUserByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdmin_MutationsRequireCSRF(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	user := f.createUser(t, "eve")

	// Valid session but a missing CSRF token must be rejected.
	rec := f.do(t, http.MethodPost, "/admin/users/"+strconv.FormatInt(user.ID, 10)+"/delete",
		url.Values{"csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := f.store.GetUserByID(context.Background(), user.ID)
	assert.NoError(t, err, "user untouched")
}

func TestAdmin_SettingsEditor(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/admin/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "discord_link")

	rec = f.postForm(t, "/admin/settings", url.Values{
		"key":   {"announcement"},
		"value": {"patch 5.1 is live"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	setting, err := f.store.GetSetting(context.Background(), "announcement")
	require.NoError(t, err)
	assert.Equal(t, "patch 5.1 is live", setting.Value)
}

type broadcastHandle struct {
	received []any
}

func (h *broadcastHandle) Send(msg any) error {
	h.received = append(h.received, msg)
	return nil
}

func TestAdmin_Broadcast(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)

	handle := &broadcastHandle{}
	f.registry.Register(1, "alice", handle, nil)

	rec := f.postForm(t, "/admin/broadcast", url.Values{
		"message": {"server restart in 5 minutes"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	require.Len(t, handle.received, 1)
	msg := handle.received[0].(map[string]any)
	assert.Equal(t, "announcement", msg["event"])
	assert.Equal(t, "server restart in 5 minutes", msg["message"])
}

func TestSessionStore_Expiry(t *testing.T) {
	s := newSessionStore()

	token, err := s.create(10 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, s.valid(token))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.valid(token))
	assert.False(t, s.valid(token), "expired token stays invalid")
}
