// ABOUTME: In-memory admin session store with expiry
// ABOUTME: Single-operator panel, so sessions do not survive a restart

package webadmin

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time // token → expiry
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]time.Time)}
}

// create opens a new session and returns its token
func (s *sessionStore) create(ttl time.Duration) (string, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = time.Now().Add(ttl)
	return token, nil
}

// valid reports whether the token names a live session. Expired entries
// are pruned as they are seen.
func (s *sessionStore) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *sessionStore) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// generateSecureToken returns n random bytes hex-encoded
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
