// Package auth provides token and password primitives for angler-gateway.
//
// # Tokens
//
// Client sessions are authenticated with HS256-signed JWTs carrying the
// user id, username, and license key. Tokens are minted at login/register
// and presented as the credential on the realtime channel:
//
//	verifier, _ := auth.NewJWTVerifier([]byte(secret))
//	token, _ := verifier.Generate(42, "harper", "KEY-123", 30*24*time.Hour)
//	claims, err := verifier.Verify(token)
//
// Verification failures distinguish expiry (ErrExpiredToken) from
// malformed or forged tokens (ErrInvalidToken).
//
// # Passwords
//
// Account and admin passwords are stored as bcrypt hashes. HashPassword
// enforces the minimum-length policy; CheckPassword is constant-time via
// bcrypt's own comparison.
package auth
