// ABOUTME: Client for the external keymaster license-validation service
// ABOUTME: Validates activation keys bound to a hardware id before account access

package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrInvalidLicense indicates the service answered and rejected the key.
var ErrInvalidLicense = errors.New("license key invalid or expired")

// ErrServiceUnavailable indicates the validation service could not be reached.
var ErrServiceUnavailable = errors.New("license service unavailable")

// Validator checks a license key against the issuing service.
type Validator interface {
	Validate(ctx context.Context, licenseKey, hardwareID string) error
}

// Client validates license keys against a keymaster server.
type Client struct {
	baseURL   string
	projectID string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a keymaster client for the given project.
func NewClient(baseURL, projectID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		projectID: projectID,
		http:      &http.Client{Timeout: timeout},
		logger:    slog.Default().With("component", "license"),
	}
}

type validateRequest struct {
	ActivationKey string `json:"activation_key"`
	HardwareID    string `json:"hardware_id"`
	ProjectID     string `json:"project_id"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Validate posts the key and hardware id to the keymaster /validate endpoint.
// Returns nil on success, ErrInvalidLicense when the service rejects the key,
// and an error wrapping ErrServiceUnavailable when the call itself fails.
func (c *Client) Validate(ctx context.Context, licenseKey, hardwareID string) error {
	body, err := json.Marshal(validateRequest{
		ActivationKey: licenseKey,
		HardwareID:    hardwareID,
		ProjectID:     c.projectID,
	})
	if err != nil {
		return fmt.Errorf("encoding validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("license validation call failed", "error", err)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var result validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrServiceUnavailable, err)
	}

	if !result.Valid {
		c.logger.Info("license rejected",
			"license_prefix", prefix(licenseKey, 10),
			"message", result.Message,
		)
		if result.Message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidLicense, result.Message)
		}
		return ErrInvalidLicense
	}

	c.logger.Debug("license validated", "license_prefix", prefix(licenseKey, 10))
	return nil
}

// prefix truncates s for logging so full keys never reach the logs.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
