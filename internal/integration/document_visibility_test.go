package integration

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/documents"
	"github.com/docgate/docgate/internal/tags"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDocumentVisibility_TagGrants(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	docSvc := documents.NewService(pool, gate, newMemBlobStore())
	tagSvc := tags.NewService(pool, gate)

	ownerID := createUser(t, pool, "owner@acme.test")
	memberID := createUser(t, pool, "member@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")
	addMember(t, pool, tenantID, memberID, access.RoleMember)

	tagged := uploadDocument(t, docSvc, tenantID, ownerID, "payroll")
	untagged := uploadDocument(t, docSvc, tenantID, ownerID, "handbook")

	finance, err := tagSvc.Create(ctx, tenantID, ownerID, "finance")
	require.NoError(t, err)
	require.NoError(t, docSvc.SetTags(ctx, tenantID, tagged.ID, ownerID, []uuid.UUID{finance.ID}))

	// Without a grant the member sees only the untagged document.
	listed, err := docSvc.List(ctx, tenantID, memberID, documents.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, untagged.ID, listed[0].ID)

	_, err = docSvc.GetByID(ctx, tenantID, tagged.ID, memberID)
	require.ErrorIs(t, err, documents.ErrDocumentNotFound)

	// Admins are never restricted by tags.
	adminListed, err := docSvc.List(ctx, tenantID, ownerID, documents.Filter{})
	require.NoError(t, err)
	require.Len(t, adminListed, 2)

	// Granting the tag opens the document up.
	require.NoError(t, tagSvc.GrantUser(ctx, tenantID, finance.ID, memberID, ownerID))

	listed, err = docSvc.List(ctx, tenantID, memberID, documents.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	got, err := docSvc.GetByID(ctx, tenantID, tagged.ID, memberID)
	require.NoError(t, err)
	require.Equal(t, tagged.ID, got.ID)
}

func TestDocumentVisibility_SubmitterSeesOwnTaggedDocument(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	docSvc := documents.NewService(pool, gate, newMemBlobStore())
	tagSvc := tags.NewService(pool, gate)

	ownerID := createUser(t, pool, "owner@acme.test")
	memberID := createUser(t, pool, "member@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")
	addMember(t, pool, tenantID, memberID, access.RoleMember)

	own := uploadDocument(t, docSvc, tenantID, memberID, "expenses")

	restricted, err := tagSvc.Create(ctx, tenantID, ownerID, "restricted")
	require.NoError(t, err)
	require.NoError(t, docSvc.SetTags(ctx, tenantID, own.ID, ownerID, []uuid.UUID{restricted.ID}))

	// The submitter keeps direct access even without a grant.
	got, err := docSvc.GetByID(ctx, tenantID, own.ID, memberID)
	require.NoError(t, err)
	require.Equal(t, own.ID, got.ID)
}
