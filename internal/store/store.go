// ABOUTME: Store interface and data types for angler-gateway persistence
// ABOUTME: Defines User, Catch, PasswordReset, Setting structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint would be violated
var ErrDuplicate = errors.New("already exists")

// User represents a registered account
type User struct {
	ID           int64
	Username     string
	Email        string // optional, empty when the user registered without one
	PasswordHash string
	LicenseKey   string
	HWID         string
	PCName       string
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
	IsAdmin      bool
}

// Catch is an append-only record of one reported fish capture.
// Rows are immutable once written; no update or delete path exists.
type Catch struct {
	ID         int64
	UserID     int64
	FishType   string
	FishRarity string
	ExpGained  int64
	CaughtAt   time.Time
}

// PasswordReset is a single-use recovery code for an account
type PasswordReset struct {
	ID        string
	UserID    int64
	ResetCode string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Setting is a dynamic key/value configuration entry
type Setting struct {
	Key         string
	Value       string
	Description string
	UpdatedAt   time.Time
}

// UserStats aggregates a user's catch statistics and leaderboard positions
type UserStats struct {
	Username     string
	Email        string
	TotalCatches int64
	MonthCatches int64
	RankMonthly  int64
	RankAlltime  int64
	MemberSince  time.Time
}

// RankingEntry is one row of a leaderboard
type RankingEntry struct {
	Rank     int64
	Username string
	Catches  int64
}

// AdminUserRow is a user plus catch aggregates for the admin panel listing
type AdminUserRow struct {
	User
	TotalCatches int64
	MonthCatches int64
}

// Store defines the interface for angler-gateway persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail, licenseKey string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByLicenseKey(ctx context.Context, licenseKey string) (*User, error)
	GetUserByIdentifier(ctx context.Context, emailOrLicenseKey string) (*User, error)
	UpdateLoginInfo(ctx context.Context, id int64, hwid, pcName string) error
	UpdateLicenseKey(ctx context.Context, id int64, licenseKey string) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*AdminUserRow, error)
	CountUsers(ctx context.Context) (int64, error)

	// Catches (append-only)
	AppendCatch(ctx context.Context, catch *Catch) (int64, error)
	CountCatchesSince(ctx context.Context, since time.Time) (int64, error)

	// Stats and leaderboards
	GetUserStats(ctx context.Context, licenseKey string) (*UserStats, error)
	MonthlyRanking(ctx context.Context, limit int) ([]RankingEntry, error)
	AlltimeRanking(ctx context.Context, limit int) ([]RankingEntry, error)

	// Password resets
	CreatePasswordReset(ctx context.Context, reset *PasswordReset) error
	ConsumePasswordReset(ctx context.Context, code string) (*PasswordReset, error)
	LatestPasswordReset(ctx context.Context, userID int64) (*PasswordReset, error)

	// Settings
	GetSetting(ctx context.Context, key string) (*Setting, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]*Setting, error)
	GetPublicSettings(ctx context.Context) (map[string]string, error)

	// Close releases any resources held by the store
	Close() error
}
