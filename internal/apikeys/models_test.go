package apikeys

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApiKey_IsActive(t *testing.T) {
	key := &ApiKey{}
	require.True(t, key.IsActive())

	revoked := &ApiKey{RevokedAt: sql.NullTime{Time: time.Now(), Valid: true}}
	require.False(t, revoked.IsActive())

	expired := &ApiKey{ExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}}
	require.False(t, expired.IsActive())

	future := &ApiKey{ExpiresAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}}
	require.True(t, future.IsActive())
}

func TestApiKey_HasScope(t *testing.T) {
	key := &ApiKey{Scopes: []string{string(ScopeWidgetRead)}}

	require.True(t, key.HasScope(ScopeWidgetRead))
	require.False(t, key.HasScope(ScopeDocumentsRead))
}

func TestIsValidScope(t *testing.T) {
	require.True(t, IsValidScope(ScopeWidgetRead))
	require.True(t, IsValidScope(ScopeDocumentsRead))
	require.False(t, IsValidScope(Scope("admin:everything")))
}
