package invites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEffectivelyExpired_PendingPastExpiry(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: StatusPending, ExpiresAt: now.Add(-time.Minute)}

	require.True(t, EffectivelyExpired(inv, now))
}

func TestEffectivelyExpired_PendingAtExactExpiry(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: StatusPending, ExpiresAt: now}

	require.True(t, EffectivelyExpired(inv, now))
}

func TestEffectivelyExpired_PendingStillValid(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}

	require.False(t, EffectivelyExpired(inv, now))
}

func TestEffectivelyExpired_StoredExpiredStatus(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: StatusExpired, ExpiresAt: now.Add(time.Hour)}

	require.True(t, EffectivelyExpired(inv, now))
}

func TestEffectivelyExpired_TerminalStatesAreNotExpired(t *testing.T) {
	now := time.Now()

	accepted := &Invitation{Status: StatusAccepted, ExpiresAt: now.Add(-time.Hour)}
	require.False(t, EffectivelyExpired(accepted, now))

	revoked := &Invitation{Status: StatusRevoked, ExpiresAt: now.Add(-time.Hour)}
	require.False(t, EffectivelyExpired(revoked, now))
}
