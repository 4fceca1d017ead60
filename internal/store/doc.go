// Package store provides persistence for angler-gateway.
//
// # Overview
//
// The store persists user accounts, append-only catch records, password
// recovery codes, and dynamic settings in SQLite (modernc.org/sqlite,
// cgo-free). The schema is created automatically on first open; WAL mode
// and foreign keys are enabled.
//
// # Tables
//
//   - users: accounts keyed by username/email/license key
//   - catches: append-only catch records with AUTOINCREMENT ids
//   - password_resets: single-use recovery codes
//   - settings: key/value configuration, seeded with defaults
//
// # Catch Records
//
// Catch rows are immutable facts. AppendCatch is the only write path and
// the AUTOINCREMENT primary key guarantees monotonically increasing record
// ids. Statistics and leaderboards are derived by aggregate queries over
// the same table rather than maintained counters.
//
// # Errors
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicate: username/email/license key already taken
//   - ErrResetCodeInvalid: recovery code unknown, used, or expired
package store
