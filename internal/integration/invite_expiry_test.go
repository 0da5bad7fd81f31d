package integration

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/invites"
	"github.com/stretchr/testify/require"
)

func TestInviteAccept_PastExpiry(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	svc := invites.NewService(pool, gate)

	ownerID := createUser(t, pool, "owner@acme.test")
	inviteeID := createUser(t, pool, "invitee@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")

	invite, token, err := svc.Create(ctx, tenantID, ownerID, "invitee@acme.test", access.RoleMember)
	require.NoError(t, err)
	require.Equal(t, invites.StatusPending, invite.Status)

	_, err = pool.Exec(ctx, `
		UPDATE invitations SET expires_at = NOW() - INTERVAL '1 hour' WHERE id = $1
	`, invite.ID)
	require.NoError(t, err)

	_, _, _, err = svc.Accept(ctx, token, inviteeID)
	require.ErrorIs(t, err, invites.ErrInviteExpired)

	// The failed accept reconciles the stored status.
	var status invites.Status
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status FROM invitations WHERE id = $1`, invite.ID,
	).Scan(&status))
	require.Equal(t, invites.StatusExpired, status)

	// Retrying changes nothing, and no membership was created.
	_, _, _, err = svc.Accept(ctx, token, inviteeID)
	require.ErrorIs(t, err, invites.ErrInviteExpired)

	_, err = gate.RequireMember(ctx, inviteeID, tenantID)
	require.ErrorIs(t, err, access.ErrNotMember)

	pending, err := svc.ListPending(ctx, tenantID, ownerID)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestInviteAccept_ValidToken(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	svc := invites.NewService(pool, gate)

	ownerID := createUser(t, pool, "owner@acme.test")
	inviteeID := createUser(t, pool, "invitee@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")

	invite, token, err := svc.Create(ctx, tenantID, ownerID, "invitee@acme.test", access.RoleMember)
	require.NoError(t, err)

	gotInviteID, gotTenantID, role, err := svc.Accept(ctx, token, inviteeID)
	require.NoError(t, err)
	require.Equal(t, invite.ID, gotInviteID)
	require.Equal(t, tenantID, gotTenantID)
	require.Equal(t, access.RoleMember, role)

	m, err := gate.RequireMember(ctx, inviteeID, tenantID)
	require.NoError(t, err)
	require.Equal(t, access.RoleMember, m.Role)

	// The token is one-shot.
	_, _, _, err = svc.Accept(ctx, token, inviteeID)
	require.ErrorIs(t, err, invites.ErrInviteNotPending)
}
