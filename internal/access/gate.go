package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotMember is returned when a user has no membership in the tenant
	ErrNotMember = errors.New("user is not a member of this tenant")

	// ErrForbidden is returned when a member's role does not permit the action
	ErrForbidden = errors.New("insufficient permissions")
)

// Gate is the single authorization decision point consulted by every
// tenant-scoped handler before it touches a resource.
type Gate struct {
	pool *pgxpool.Pool
}

func NewGate(pool *pgxpool.Pool) *Gate {
	return &Gate{pool: pool}
}

// RequireMember loads the caller's membership for the tenant.
// Absence of a membership row is a hard deny with ErrNotMember.
func (g *Gate) RequireMember(ctx context.Context, userID, tenantID uuid.UUID) (Membership, error) {
	var m Membership

	query := `
		SELECT tenant_id, user_id, role, is_owner, created_at, updated_at
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`

	err := g.pool.QueryRow(ctx, query, tenantID, userID).Scan(
		&m.TenantID,
		&m.UserID,
		&m.Role,
		&m.IsOwner,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug().
				Str("user_id", userID.String()).
				Str("tenant_id", tenantID.String()).
				Msg("Access gate: user is not a member of tenant")
			return Membership{}, ErrNotMember
		}
		return Membership{}, fmt.Errorf("failed to check tenant membership: %w", err)
	}

	return m, nil
}

// Require loads the membership and checks the role minimum for the action.
func (g *Gate) Require(ctx context.Context, userID, tenantID uuid.UUID, action Action) (Membership, error) {
	m, err := g.RequireMember(ctx, userID, tenantID)
	if err != nil {
		return Membership{}, err
	}

	if !m.Can(action) {
		log.Warn().
			Str("user_id", userID.String()).
			Str("tenant_id", tenantID.String()).
			Str("role", string(m.Role)).
			Str("action", string(action)).
			Msg("Access gate: insufficient permissions")
		return m, ErrForbidden
	}

	return m, nil
}

// VisibilityCondition returns a parameterized SQL predicate restricting which
// documents the membership may see, for conjunction with other WHERE clauses.
// Admins and owners see everything. Other members see a document only if it
// has no access tags, or if one of its tags has been granted to them.
//
// docAlias is the documents table alias in the surrounding query; argIndex is
// the 1-based placeholder number the fragment should start at. Returns the
// fragment and the arguments it consumes.
func VisibilityCondition(m Membership, docAlias string, argIndex int) (string, []any) {
	if m.IsAdmin() {
		return "TRUE", nil
	}

	cond := fmt.Sprintf(`(
		NOT EXISTS (
			SELECT 1 FROM document_tags dt
			WHERE dt.document_id = %[1]s.id
		)
		OR EXISTS (
			SELECT 1
			FROM document_tags dt
			INNER JOIN user_tag_grants g
			   ON g.tag_id = dt.tag_id
			  AND g.tenant_id = $%[2]d
			  AND g.user_id = $%[3]d
			WHERE dt.document_id = %[1]s.id
		)
	)`, docAlias, argIndex, argIndex+1)

	return cond, []any{m.TenantID, m.UserID}
}
