package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/documents"
	"github.com/stretchr/testify/require"
)

func TestDocumentApprove_SecondAttemptConflicts(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	svc := documents.NewService(pool, gate, newMemBlobStore())

	ownerID := createUser(t, pool, "owner@acme.test")
	memberID := createUser(t, pool, "member@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")
	addMember(t, pool, tenantID, memberID, access.RoleMember)

	doc := uploadDocument(t, svc, tenantID, memberID, "report")

	approved, err := svc.Approve(ctx, tenantID, doc.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedByUserID)
	require.Equal(t, ownerID, *approved.ApprovedByUserID)
	require.NotNil(t, approved.ApprovedAt)

	_, err = svc.Approve(ctx, tenantID, doc.ID, ownerID)
	require.ErrorIs(t, err, documents.ErrAlreadyProcessed)

	_, err = svc.Reject(ctx, tenantID, doc.ID, ownerID, "too late")
	require.ErrorIs(t, err, documents.ErrAlreadyProcessed)

	// The losing attempts must not have disturbed the approval.
	final, err := svc.GetByID(ctx, tenantID, doc.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusApproved, final.Status)
	require.Nil(t, final.RejectedByUserID)
	require.Nil(t, final.RejectionReason)
}

func TestDocumentApprove_ConcurrentAtMostOnce(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	svc := documents.NewService(pool, gate, newMemBlobStore())

	ownerID := createUser(t, pool, "owner@acme.test")
	memberID := createUser(t, pool, "member@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")
	addMember(t, pool, tenantID, memberID, access.RoleMember)

	doc := uploadDocument(t, svc, tenantID, memberID, "contract")

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, tenantID, doc.ID, ownerID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, documents.ErrAlreadyProcessed)
	}
	require.Equal(t, 1, succeeded, "exactly one concurrent approval may win")

	final, err := svc.GetByID(ctx, tenantID, doc.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusApproved, final.Status)
}

func TestDocumentReject_RoleCheckedBeforeReason(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	gate := access.NewGate(pool)
	svc := documents.NewService(pool, gate, newMemBlobStore())

	ownerID := createUser(t, pool, "owner@acme.test")
	memberID := createUser(t, pool, "member@acme.test")
	tenantID := createTenant(t, pool, ownerID, "Acme", "acme")
	addMember(t, pool, tenantID, memberID, access.RoleMember)

	doc := uploadDocument(t, svc, tenantID, memberID, "invoice")

	// A non-admin is told forbidden, even with an invalid payload.
	_, err := svc.Reject(ctx, tenantID, doc.ID, memberID, "")
	require.ErrorIs(t, err, access.ErrForbidden)

	_, err = svc.Reject(ctx, tenantID, doc.ID, ownerID, "   ")
	require.ErrorIs(t, err, documents.ErrReasonRequired)

	// Neither attempt may have moved the document.
	final, err := svc.GetByID(ctx, tenantID, doc.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusPending, final.Status)
}
