// Package limiter implements login throttling: a per-account failure counter
// kept on the user record and an optional per-client fixed request window.
package limiter

import (
	"context"
	"time"

	"github.com/and161185/maru-site/internal/model"
)

// Window is a fixed-window request counter keyed by client.
type Window interface {
	// Allow counts one hit for key and reports whether it is within the limit.
	// Backend errors return true together with the error so callers fail open.
	Allow(ctx context.Context, key string) (bool, error)
}

// Remaining returns the failed attempts left before the account is disabled.
// The counter itself is incremented by the user store in a single write.
func Remaining(attempts int) int {
	if attempts >= model.MaxFailedLogins {
		return 0
	}
	return model.MaxFailedLogins - attempts
}

// Success applies a started session to a loaded copy of u.
func Success(u *model.User, now time.Time) {
	u.FailedLoginAttempts = 0
	u.LastLoginAttempt = &now
	active := now
	u.LastActiveAt = &active
	u.IsLoggedIn = true
}

// Reactivate re-enables a disabled account and clears its counter.
func Reactivate(u *model.User) {
	u.IsActive = true
	u.FailedLoginAttempts = 0
}
