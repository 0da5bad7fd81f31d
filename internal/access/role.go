package access

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role within a tenant
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// IsValid returns true for a recognized role value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// roleLevel defines the role hierarchy (higher number = more permissions)
func roleLevel(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Membership represents a user's membership in a tenant
type Membership struct {
	TenantID  uuid.UUID `db:"tenant_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      Role      `db:"role"`
	IsOwner   bool      `db:"is_owner"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin returns true if the membership carries admin-level rights.
// Tenant owners always have admin rights regardless of their stored role.
func (m Membership) IsAdmin() bool {
	return m.IsOwner || m.Role == RoleAdmin
}

// Action enumerates the guarded operations of the system.
type Action string

const (
	ActionViewDocuments   Action = "documents.view"
	ActionUploadDocument  Action = "documents.upload"
	ActionApproveDocument Action = "documents.approve"
	ActionRejectDocument  Action = "documents.reject"
	ActionDeleteDocument  Action = "documents.delete"
	ActionManageTags      Action = "tags.manage"
	ActionManageGrants    Action = "tags.grant"
	ActionListMembers     Action = "members.list"
	ActionManageMembers   Action = "members.manage"
	ActionManageInvites   Action = "invites.manage"
	ActionManageAPIKeys   Action = "apikeys.manage"
	ActionManageWidget    Action = "widget.manage"
	ActionViewAuditLog    Action = "audit.view"
)

// minimumRole maps each action to the least role allowed to perform it.
// Actions absent from the map are admin-only.
var minimumRole = map[Action]Role{
	ActionViewDocuments:  RoleViewer,
	ActionUploadDocument: RoleMember,
}

// Can decides whether the membership permits the action.
// Ownership of a specific resource is judged separately by the callers
// (e.g. a submitter may always view their own document).
func (m Membership) Can(action Action) bool {
	if m.IsAdmin() {
		return true
	}
	min, ok := minimumRole[action]
	if !ok {
		return false
	}
	return roleLevel(m.Role) >= roleLevel(min)
}
