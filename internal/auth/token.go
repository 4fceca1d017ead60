// ABOUTME: JWT token issuing and verification for client sessions
// ABOUTME: Uses HS256 signing with configurable secret

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims is the decoded payload of a client token. It proves the holder
// is the named user for the lifetime of a connection; it is never persisted.
type Claims struct {
	UserID     int64
	Username   string
	LicenseKey string
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &JWTVerifier{secret: secret}, nil
}

// Verify validates the token and extracts the user claims.
// Tokens with a wrong signature, wrong algorithm, or past expiry are rejected.
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["userId"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: userId", ErrMissingClaim)
	}

	username, ok := mapClaims["username"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: username", ErrMissingClaim)
	}

	// license_key is present on all issued tokens but tolerated absent so
	// verification does not break tokens minted before the claim existed.
	licenseKey, _ := mapClaims["license_key"].(string)

	return &Claims{
		UserID:     int64(userID),
		Username:   username,
		LicenseKey: licenseKey,
	}, nil
}

// Generate creates a new signed token for the given user with expiration
func (v *JWTVerifier) Generate(userID int64, username, licenseKey string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId":      userID,
		"username":    username,
		"license_key": licenseKey,
		"iat":         now.Unix(),
		"exp":         now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
