package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrMemberNotFound is returned when the target user has no membership
	ErrMemberNotFound = errors.New("member not found")

	// ErrCannotModifyOwner is returned when attempting to demote or remove
	// the tenant owner
	ErrCannotModifyOwner = errors.New("tenant owner cannot be demoted or removed")
)

// UpdateMemberRole changes a member's role. The actor must hold admin rights;
// the owner's membership is immutable to prevent lockout.
func (s *Service) UpdateMemberRole(ctx context.Context, tenantID, actorUserID, targetUserID uuid.UUID, newRole access.Role) (previousRole access.Role, err error) {
	if !newRole.IsValid() {
		return "", fmt.Errorf("invalid role: %s", newRole)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var actor access.Membership
	if err := tx.QueryRow(ctx, `
		SELECT role, is_owner
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, actorUserID).Scan(&actor.Role, &actor.IsOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", access.ErrNotMember
		}
		return "", fmt.Errorf("failed to load actor membership: %w", err)
	}
	if !actor.IsAdmin() {
		return "", access.ErrForbidden
	}

	var currentRole access.Role
	var targetIsOwner bool
	if err := tx.QueryRow(ctx, `
		SELECT role, is_owner
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
		FOR UPDATE
	`, tenantID, targetUserID).Scan(&currentRole, &targetIsOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}
		return "", fmt.Errorf("failed to load member role: %w", err)
	}

	if targetIsOwner {
		return "", ErrCannotModifyOwner
	}

	if _, err := tx.Exec(ctx, `
		UPDATE memberships
		SET role = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, targetUserID, newRole); err != nil {
		return "", fmt.Errorf("failed to update member role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return currentRole, nil
}

// RemoveMember deletes a member's membership. The actor must hold admin
// rights; the owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, tenantID, actorUserID, targetUserID uuid.UUID) (removedRole access.Role, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var actor access.Membership
	if err := tx.QueryRow(ctx, `
		SELECT role, is_owner
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, actorUserID).Scan(&actor.Role, &actor.IsOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", access.ErrNotMember
		}
		return "", fmt.Errorf("failed to load actor membership: %w", err)
	}
	if !actor.IsAdmin() && actorUserID != targetUserID {
		return "", access.ErrForbidden
	}

	var targetRole access.Role
	var targetIsOwner bool
	if err := tx.QueryRow(ctx, `
		SELECT role, is_owner
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
		FOR UPDATE
	`, tenantID, targetUserID).Scan(&targetRole, &targetIsOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}
		return "", fmt.Errorf("failed to load member role: %w", err)
	}

	if targetIsOwner {
		return "", ErrCannotModifyOwner
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, targetUserID)
	if err != nil {
		return "", fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrMemberNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return targetRole, nil
}
