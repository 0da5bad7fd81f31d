package tenancy

import (
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
)

// Tenant represents an isolated organizational unit. The subdomain is
// immutable after creation; no update path exists.
type Tenant struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Subdomain       string    `db:"subdomain"`
	CreatedByUserID uuid.UUID `db:"created_by_user_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// TenantWithRole combines tenant information with the user's membership
type TenantWithRole struct {
	Tenant
	Role    access.Role `db:"role"`
	IsOwner bool        `db:"is_owner"`
}

// MemberInfo represents a member of a tenant with their user details
type MemberInfo struct {
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Email     string      `db:"email" json:"email"`
	Name      string      `db:"name" json:"name"`
	Role      access.Role `db:"role" json:"role"`
	IsOwner   bool        `db:"is_owner" json:"is_owner"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
