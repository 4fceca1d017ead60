// Package session tracks which users currently hold a live realtime
// connection.
//
// # Overview
//
// The Registry maps authenticated user ids to presence entries. Each entry
// owns a Handle for pushing messages to that user's connection plus the
// client-supplied configuration blob. The registry is purely in-memory:
// a process restart loses all presence, by design.
//
// # Invariants
//
// At most one entry exists per user id. A second authentication from the
// same user replaces the previous entry's handle; the superseded
// connection is left for its own lifecycle to close.
//
// # Thread Safety
//
// All operations are safe for concurrent use; the entry map is guarded by
// a sync.RWMutex. Broadcast iterates over a snapshot taken under the read
// lock, so registry mutation during a broadcast cannot corrupt the
// iteration or deliver twice.
package session
