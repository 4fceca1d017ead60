// ABOUTME: Account endpoints: register, login, password recovery
// ABOUTME: Registration is the first activation of a license key; login rebinds HWID state

package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/anglerworks/angler-gateway/internal/auth"
	"github.com/anglerworks/angler-gateway/internal/license"
	"github.com/anglerworks/angler-gateway/internal/store"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

const resetCodeTTL = time.Hour

// credentialsRequest is the shared body of /auth/register and /auth/login.
type credentialsRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
	LicenseKey string `json:"license_key"`
	HWID       string `json:"hwid"`
	PCName     string `json:"pc_name,omitempty"`
}

// userPayload is the user object embedded in auth responses.
type userPayload struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	LicenseKey string `json:"license_key"`
}

type authResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    userPayload `json:"user"`
}

func decodeBody(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// handleRegister activates a license key for the first time: it validates
// the key against the license service, creates the account and returns a
// token the bot can use immediately.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username == "" || req.Password == "" || req.LicenseKey == "" || req.HWID == "" {
		h.sendFailure(w, http.StatusBadRequest, "required fields: username, password, license_key, hwid")
		return
	}
	if req.Email != "" && !emailPattern.MatchString(req.Email) {
		h.sendFailure(w, http.StatusBadRequest, "invalid email")
		return
	}

	ctx := r.Context()

	// Uniqueness pre-checks give precise conflict messages; the unique
	// indexes still back them up against races.
	if _, err := h.store.GetUserByUsername(ctx, req.Username); err == nil {
		h.sendFailure(w, http.StatusConflict, "username already registered")
		return
	}
	if req.Email != "" {
		if _, err := h.store.GetUserByEmail(ctx, req.Email); err == nil {
			h.sendFailure(w, http.StatusConflict, "email already registered")
			return
		}
	}
	if _, err := h.store.GetUserByLicenseKey(ctx, req.LicenseKey); err == nil {
		h.sendFailure(w, http.StatusConflict, "this license key is already bound to another account")
		return
	}

	if !h.validateLicense(ctx, w, req.LicenseKey, req.HWID) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			h.sendFailure(w, http.StatusBadRequest, "password must be at least 6 characters")
			return
		}
		h.serverError(w, "hash password", err)
		return
	}

	pcName := req.PCName
	if pcName == "" {
		pcName = "Unknown"
	}
	user := &store.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		LicenseKey:   req.LicenseKey,
		HWID:         req.HWID,
		PCName:       pcName,
		IsActive:     true,
	}
	id, err := h.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.sendFailure(w, http.StatusConflict, "account already exists")
			return
		}
		h.serverError(w, "create user", err)
		return
	}

	token, err := h.tokens.Generate(id, req.Username, req.LicenseKey, h.tokenTTL)
	if err != nil {
		h.serverError(w, "issue token", err)
		return
	}

	h.logger.Info("user registered", "user_id", id, "username", req.Username)

	h.sendJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "registration successful",
		Token:   token,
		User: userPayload{
			ID:         id,
			Username:   req.Username,
			Email:      req.Email,
			LicenseKey: req.LicenseKey,
		},
	})
}

// handleLogin authenticates an existing account. The HWID binding is the
// anti-sharing check: once an account has a hardware id, only that machine
// may log in.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username == "" || req.Password == "" || req.LicenseKey == "" || req.HWID == "" {
		h.sendFailure(w, http.StatusBadRequest, "required fields: username, password, license_key, hwid")
		return
	}

	ctx := r.Context()

	user, err := h.store.GetUserByLogin(ctx, req.Username, req.LicenseKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendFailure(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.serverError(w, "lookup user", err)
		return
	}

	if !user.IsActive {
		h.sendFailure(w, http.StatusForbidden, "account disabled, contact support")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.sendFailure(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.HWID != "" && user.HWID != req.HWID {
		h.sendFailure(w, http.StatusForbidden, "this account is bound to another computer, contact support for a transfer")
		return
	}

	if !h.validateLicense(ctx, w, req.LicenseKey, req.HWID) {
		return
	}

	if err := h.store.UpdateLoginInfo(ctx, user.ID, req.HWID, req.PCName); err != nil {
		h.serverError(w, "update login info", err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Username, user.LicenseKey, h.tokenTTL)
	if err != nil {
		h.serverError(w, "issue token", err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	h.sendJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "login successful",
		Token:   token,
		User: userPayload{
			ID:         user.ID,
			Username:   user.Username,
			Email:      user.Email,
			LicenseKey: user.LicenseKey,
		},
	})
}

// handleRequestReset issues a 6-digit recovery code. The response is the
// same whether or not the identifier matches an account.
func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeBody(r.Body, &req); err != nil {
		h.sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Identifier == "" {
		h.sendFailure(w, http.StatusBadRequest, "enter your email or license key")
		return
	}

	const neutral = "if the email or license key exists, you will receive a recovery code"

	ctx := r.Context()
	user, err := h.store.GetUserByIdentifier(ctx, req.Identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("reset lookup failed", "error", err)
		}
		h.sendJSON(w, http.StatusOK, map[string]any{"success": true, "message": neutral})
		return
	}

	code, err := generateResetCode()
	if err != nil {
		h.serverError(w, "generate reset code", err)
		return
	}
	reset := &store.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ResetCode: code,
		ExpiresAt: time.Now().Add(resetCodeTTL),
	}
	if err := h.store.CreatePasswordReset(ctx, reset); err != nil {
		h.serverError(w, "store reset code", err)
		return
	}

	// Delivery is out of band (support channel); the code is only logged
	// server-side, never returned to the caller.
	h.logger.Info("recovery code issued",
		"user_id", user.ID,
		"username", user.Username,
		"expires_at", reset.ExpiresAt.Format(time.RFC3339),
	)

	h.sendJSON(w, http.StatusOK, map[string]any{"success": true, "message": neutral})
}

// handleResetPassword consumes a recovery code and sets the new password.
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r.Body, &req); err != nil {
		h.sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" || req.NewPassword == "" {
		h.sendFailure(w, http.StatusBadRequest, "code and new password are required")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			h.sendFailure(w, http.StatusBadRequest, "new password must be at least 6 characters")
			return
		}
		h.serverError(w, "hash password", err)
		return
	}

	ctx := r.Context()
	reset, err := h.store.ConsumePasswordReset(ctx, req.Code)
	if err != nil {
		if errors.Is(err, store.ErrResetCodeInvalid) {
			h.sendFailure(w, http.StatusBadRequest, "invalid or expired code")
			return
		}
		h.serverError(w, "consume reset code", err)
		return
	}

	if err := h.store.SetPasswordHash(ctx, reset.UserID, hash); err != nil {
		h.serverError(w, "set password", err)
		return
	}

	h.logger.Info("password reset", "user_id", reset.UserID)

	h.sendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password reset, log in again",
	})
}

// validateLicense checks the key with the external service and writes the
// failure response itself. Returns true when the caller may proceed.
func (h *Handler) validateLicense(ctx context.Context, w http.ResponseWriter, key, hwid string) bool {
	err := h.licenses.Validate(ctx, key, hwid)
	if err == nil {
		return true
	}
	if errors.Is(err, license.ErrServiceUnavailable) {
		h.sendFailure(w, http.StatusServiceUnavailable, "license service unavailable, try again later")
		return false
	}
	h.sendFailure(w, http.StatusForbidden, "license key invalid or expired")
	return false
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("internal error", "op", op, "error", err)
	h.sendFailure(w, http.StatusInternalServerError, "internal server error")
}

// generateResetCode returns a uniformly random 6-digit code.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
