package access

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVisibilityCondition_AdminSeesEverything(t *testing.T) {
	m := Membership{Role: RoleAdmin, TenantID: uuid.New(), UserID: uuid.New()}

	cond, args := VisibilityCondition(m, "d", 3)
	require.Equal(t, "TRUE", cond)
	require.Nil(t, args)
}

func TestVisibilityCondition_OwnerSeesEverything(t *testing.T) {
	m := Membership{Role: RoleViewer, IsOwner: true}

	cond, args := VisibilityCondition(m, "d", 1)
	require.Equal(t, "TRUE", cond)
	require.Nil(t, args)
}

func TestVisibilityCondition_MemberGetsUntaggedOrGrantedPredicate(t *testing.T) {
	m := Membership{
		Role:     RoleMember,
		TenantID: uuid.New(),
		UserID:   uuid.New(),
	}

	cond, args := VisibilityCondition(m, "d", 4)

	require.Contains(t, cond, "NOT EXISTS")
	require.Contains(t, cond, "user_tag_grants")
	require.Contains(t, cond, "dt.document_id = d.id")
	require.Contains(t, cond, "$4")
	require.Contains(t, cond, "$5")
	require.Equal(t, []any{m.TenantID, m.UserID}, args)
}

func TestVisibilityCondition_RespectsDocAlias(t *testing.T) {
	m := Membership{Role: RoleViewer}

	cond, _ := VisibilityCondition(m, "docs", 1)
	require.Contains(t, cond, "docs.id")
	require.False(t, strings.Contains(cond, " d.id"))
}
