package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCan_AdminAllowsEverything(t *testing.T) {
	m := Membership{Role: RoleAdmin}

	require.True(t, m.Can(ActionViewDocuments))
	require.True(t, m.Can(ActionUploadDocument))
	require.True(t, m.Can(ActionApproveDocument))
	require.True(t, m.Can(ActionRejectDocument))
	require.True(t, m.Can(ActionManageTags))
	require.True(t, m.Can(ActionManageInvites))
	require.True(t, m.Can(ActionViewAuditLog))
}

func TestCan_OwnerOverridesStoredRole(t *testing.T) {
	m := Membership{Role: RoleViewer, IsOwner: true}

	require.True(t, m.IsAdmin())
	require.True(t, m.Can(ActionApproveDocument))
	require.True(t, m.Can(ActionManageMembers))
}

func TestCan_MemberCanUploadButNotApprove(t *testing.T) {
	m := Membership{Role: RoleMember}

	require.True(t, m.Can(ActionViewDocuments))
	require.True(t, m.Can(ActionUploadDocument))
	require.False(t, m.Can(ActionApproveDocument))
	require.False(t, m.Can(ActionRejectDocument))
	require.False(t, m.Can(ActionManageTags))
	require.False(t, m.Can(ActionManageInvites))
	require.False(t, m.Can(ActionListMembers))
}

func TestCan_ViewerCanOnlyView(t *testing.T) {
	m := Membership{Role: RoleViewer}

	require.True(t, m.Can(ActionViewDocuments))
	require.False(t, m.Can(ActionUploadDocument))
	require.False(t, m.Can(ActionDeleteDocument))
	require.False(t, m.Can(ActionViewAuditLog))
}

func TestCan_UnknownRoleDeniesEverything(t *testing.T) {
	m := Membership{Role: Role("INTRUDER")}

	require.False(t, m.Can(ActionViewDocuments))
	require.False(t, m.Can(ActionUploadDocument))
}

func TestRoleIsValid(t *testing.T) {
	require.True(t, RoleAdmin.IsValid())
	require.True(t, RoleMember.IsValid())
	require.True(t, RoleViewer.IsValid())
	require.False(t, Role("OWNER").IsValid())
	require.False(t, Role("").IsValid())
}
