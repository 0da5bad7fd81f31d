package documents

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStorageKey_TenantPrefixed(t *testing.T) {
	tenantID := uuid.New()
	docID := uuid.New()

	key := storageKey(tenantID, docID, "report.pdf")
	require.Equal(t, fmt.Sprintf("tenants/%s/documents/%s/report.pdf", tenantID, docID), key)
}

func TestStorageKey_StripsPathComponents(t *testing.T) {
	tenantID := uuid.New()
	docID := uuid.New()

	key := storageKey(tenantID, docID, "../../etc/passwd")
	require.Equal(t, fmt.Sprintf("tenants/%s/documents/%s/passwd", tenantID, docID), key)

	key = storageKey(tenantID, docID, `C:\files\report.pdf`)
	require.Equal(t, fmt.Sprintf("tenants/%s/documents/%s/report.pdf", tenantID, docID), key)
}

func TestStorageKey_EmptyFileName(t *testing.T) {
	tenantID := uuid.New()
	docID := uuid.New()

	key := storageKey(tenantID, docID, "")
	require.Equal(t, fmt.Sprintf("tenants/%s/documents/%s/upload", tenantID, docID), key)
}

func TestStatusIsValid(t *testing.T) {
	require.True(t, StatusPending.IsValid())
	require.True(t, StatusApproved.IsValid())
	require.True(t, StatusRejected.IsValid())
	require.False(t, Status("ARCHIVED").IsValid())
	require.False(t, Status("").IsValid())
}

func TestUniqueIDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	require.Equal(t, []uuid.UUID{a, b}, uniqueIDs([]uuid.UUID{a, b, a, b, a}))
	require.Empty(t, uniqueIDs(nil))
}
