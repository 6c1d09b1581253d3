package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/maru-site/internal/model"
)

func TestRemaining(t *testing.T) {
	t.Parallel()

	for attempts, want := range map[int]int{0: 5, 1: 4, 4: 1, 5: 0, 9: 0} {
		require.Equal(t, want, Remaining(attempts), "attempts=%d", attempts)
	}
}

func TestSuccess_ResetsCounter(t *testing.T) {
	t.Parallel()

	u := &model.User{IsActive: true, FailedLoginAttempts: 4}
	now := time.Now()
	Success(u, now)
	require.Zero(t, u.FailedLoginAttempts)
	require.True(t, u.IsLoggedIn)
	require.Equal(t, now, *u.LastActiveAt)
	require.Equal(t, now, *u.LastLoginAttempt)
}

func TestReactivate(t *testing.T) {
	t.Parallel()

	u := &model.User{IsActive: false, FailedLoginAttempts: 5}
	Reactivate(u)
	require.True(t, u.IsActive)
	require.Zero(t, u.FailedLoginAttempts)
}
