// ABOUTME: In-memory registry of authenticated realtime connections
// ABOUTME: Tracks per-user presence, client config, and message delivery

package session

import (
	"log/slog"
	"sync"
	"time"
)

// Handle pushes messages to one live connection. Implementations return an
// error once the underlying transport has closed; the registry treats that
// as a failed delivery, never as a reason to mutate its own state.
type Handle interface {
	Send(msg any) error
}

// Entry is the presence record for one authenticated connection.
type Entry struct {
	UserID      int64
	Username    string
	Config      map[string]any
	ConnectedAt time.Time

	handle Handle
}

// Registry maps authenticated user ids to their active connection.
// At most one entry exists per user; a newer connection replaces the old
// entry's handle outright. All operations are total: none return errors.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[int64]*Entry),
		logger:  logger.With("component", "session"),
	}
}

// Register inserts or replaces the entry for userID. A prior entry's handle
// is abandoned, not closed: tearing down the old connection is its own state
// machine's job.
func (r *Registry) Register(userID int64, username string, handle Handle, initialConfig map[string]any) {
	if initialConfig == nil {
		initialConfig = make(map[string]any)
	}

	r.mu.Lock()
	replaced := r.entries[userID] != nil
	r.entries[userID] = &Entry{
		UserID:      userID,
		Username:    username,
		Config:      initialConfig,
		ConnectedAt: time.Now(),
		handle:      handle,
	}
	total := len(r.entries)
	r.mu.Unlock()

	r.logger.Info("client connected",
		"user_id", userID,
		"username", username,
		"replaced", replaced,
		"total_online", total,
	)
}

// Unregister removes the entry for userID if present; no-op otherwise.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if ok {
		delete(r.entries, userID)
	}
	total := len(r.entries)
	r.mu.Unlock()

	if ok {
		r.logger.Info("client disconnected",
			"user_id", userID,
			"username", entry.Username,
			"total_online", total,
		)
	}
}

// UnregisterHandle removes the entry for userID only if it is still bound
// to the given handle. A connection that was replaced by a newer one calls
// this on teardown so it cannot evict its successor's entry. Returns
// whether an entry was removed.
func (r *Registry) UnregisterHandle(userID int64, handle Handle) bool {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok || entry.handle != handle {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, userID)
	total := len(r.entries)
	r.mu.Unlock()

	r.logger.Info("client disconnected",
		"user_id", userID,
		"username", entry.Username,
		"total_online", total,
	)
	return true
}

// UpdateConfig replaces (not merges) the entry's config if present; no-op otherwise.
func (r *Registry) UpdateConfig(userID int64, config map[string]any) {
	if config == nil {
		config = make(map[string]any)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[userID]; ok {
		entry.Config = config
	}
}

// Count returns the number of currently registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IsOnline reports whether the user has a registered connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[userID]
	return ok
}

// Get returns a copy of the user's presence entry, or nil if offline.
// The copy's config is the live map; callers must not mutate it.
func (r *Registry) Get(userID int64) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userID]
	if !ok {
		return nil
	}
	copied := *entry
	return &copied
}

// List returns a snapshot of all presence entries.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	return entries
}

// SendTo delivers a message to the user's live connection, best-effort and
// synchronous. Returns whether a delivery was attempted and accepted; there
// is no queueing for offline users.
func (r *Registry) SendTo(userID int64, msg any) bool {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	if err := entry.handle.Send(msg); err != nil {
		r.logger.Debug("send to client failed", "user_id", userID, "error", err)
		return false
	}
	return true
}

// Broadcast delivers a message to every currently registered connection and
// returns the number of successful sends. It iterates a snapshot so a
// concurrent register/unregister cannot corrupt the walk or double-send.
func (r *Registry) Broadcast(msg any) int {
	r.mu.RLock()
	snapshot := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry)
	}
	r.mu.RUnlock()

	sent := 0
	for _, entry := range snapshot {
		if err := entry.handle.Send(msg); err != nil {
			r.logger.Debug("broadcast to client failed", "user_id", entry.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent
}
