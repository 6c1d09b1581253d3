// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access for admin accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Update persists the mutable login/session fields of u. Only account
	// reactivation uses it; login and session paths use the narrow writes below.
	Update(ctx context.Context, u *model.User) error
	// RecordFailure atomically counts one failed login at at and disables the
	// account once the count reaches model.MaxFailedLogins. It returns the new
	// count and whether the account is still active.
	RecordFailure(ctx context.Context, id uuid.UUID, at time.Time) (attempts int, active bool, err error)
	// RecordLogin resets the failure counter and starts a session, but only
	// while the account is active. It reports false for a disabled account.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// TouchActivity stamps lastActiveAt.
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	// SetLoggedIn sets the informational logged-in flag.
	SetLoggedIn(ctx context.Context, id uuid.UUID, loggedIn bool) error
	// SetIPAddress stores the last known address of the user.
	SetIPAddress(ctx context.Context, id uuid.UUID, ip string) error
	// Delete removes a user.
	Delete(ctx context.Context, id uuid.UUID) error
}
