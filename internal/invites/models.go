package invites

import (
	"errors"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
)

var (
	ErrInviteNotFound      = errors.New("invitation not found")
	ErrInviteExpired       = errors.New("invitation expired")
	ErrInviteNotPending    = errors.New("invitation already used or revoked")
	ErrInviteEmailMismatch = errors.New("invitation email does not match user")
	ErrDuplicatePending    = errors.New("a pending invitation already exists for this email")
	ErrInvalidEmail        = errors.New("invalid email address")
)

// Status is the lifecycle state of an invitation. PENDING is initial; the
// other states are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusExpired  Status = "EXPIRED"
	StatusRevoked  Status = "REVOKED"
)

// Invitation represents an invitation to join a tenant.
type Invitation struct {
	ID              uuid.UUID   `db:"id"`
	TenantID        uuid.UUID   `db:"tenant_id"`
	Email           string      `db:"email"`
	Role            access.Role `db:"role"`
	Status          Status      `db:"status"`
	ExpiresAt       time.Time   `db:"expires_at"`
	CreatedByUserID uuid.UUID   `db:"created_by_user_id"`
	CreatedAt       time.Time   `db:"created_at"`
}

// EffectivelyExpired reports whether the invitation must be treated as
// expired at the given instant. The stored status is only a lazily
// reconciled cache: a PENDING invitation past its expiry is expired for
// every consumer even before the write-back lands.
func EffectivelyExpired(inv *Invitation, now time.Time) bool {
	if inv.Status == StatusExpired {
		return true
	}
	return inv.Status == StatusPending && !inv.ExpiresAt.After(now)
}

// ListItem is the JSON shape of a pending invitation.
type ListItem struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	Email          string      `db:"email" json:"email"`
	Role           access.Role `db:"role" json:"role"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time   `db:"expires_at" json:"expires_at"`
	CreatedByEmail string      `db:"created_by_email" json:"created_by_email"`
}
