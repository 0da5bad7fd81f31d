package invites

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inviteTTL = 7 * 24 * time.Hour

// Service provides invitation operations
type Service struct {
	pool *pgxpool.Pool
	gate *access.Gate
}

func NewService(pool *pgxpool.Pool, gate *access.Gate) *Service {
	return &Service{pool: pool, gate: gate}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if len(email) > 320 {
		return "", fmt.Errorf("%w: email is too long", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Create issues a new invitation. At most one PENDING invitation may exist
// per (tenant, email); the partial unique index enforces this against
// concurrent creates, so no prior read-check is needed.
func (s *Service) Create(ctx context.Context, tenantID, actorUserID uuid.UUID, email string, role access.Role) (*Invitation, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	if !role.IsValid() {
		return nil, "", fmt.Errorf("invalid role: %s", role)
	}

	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageInvites); err != nil {
		return nil, "", err
	}

	var invite Invitation
	for attempt := 0; attempt < 3; attempt++ {
		token, tokenHash, err := GenerateToken()
		if err != nil {
			return nil, "", err
		}

		expiresAt := time.Now().UTC().Add(inviteTTL)

		err = s.pool.QueryRow(ctx, `
			INSERT INTO invitations (
			  tenant_id, email, role, token_hash, created_by_user_id, expires_at
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, tenant_id, email, role, status, expires_at, created_by_user_id, created_at
		`, tenantID, email, role, tokenHash, actorUserID, expiresAt).Scan(
			&invite.ID,
			&invite.TenantID,
			&invite.Email,
			&invite.Role,
			&invite.Status,
			&invite.ExpiresAt,
			&invite.CreatedByUserID,
			&invite.CreatedAt,
		)
		if err == nil {
			return &invite, token, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "invitations_pending_email_key" {
				return nil, "", ErrDuplicatePending
			}
			// Token hash collision (extremely unlikely); retry.
			continue
		}
		return nil, "", fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil, "", fmt.Errorf("failed to create invitation: token collision retry exhausted")
}

// ListPending returns open invitations for a tenant. Expiry is applied
// lazily in the query; rows whose stored status has not yet been reconciled
// are still excluded.
func (s *Service) ListPending(ctx context.Context, tenantID, actorUserID uuid.UUID) ([]ListItem, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageInvites); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
		  i.id,
		  i.email,
		  i.role,
		  i.created_at,
		  i.expires_at,
		  u.email AS created_by_email
		FROM invitations i
		INNER JOIN users u ON u.id = i.created_by_user_id
		WHERE i.tenant_id = $1
		  AND i.status = 'PENDING'
		  AND i.expires_at > NOW()
		ORDER BY i.created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var items []ListItem
	for rows.Next() {
		var item ListItem
		if err := rows.Scan(&item.ID, &item.Email, &item.Role, &item.CreatedAt, &item.ExpiresAt, &item.CreatedByEmail); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return items, nil
}

// Revoke marks a pending invitation REVOKED. The transition is a single
// conditional update; a row that already left PENDING reports conflict.
func (s *Service) Revoke(ctx context.Context, tenantID, inviteID, actorUserID uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageInvites); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE invitations
		SET status = 'REVOKED', revoked_at = NOW(), revoked_by_user_id = $3
		WHERE id = $1
		  AND tenant_id = $2
		  AND status = 'PENDING'
	`, inviteID, tenantID, actorUserID)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1 AND tenant_id = $2)
		`, inviteID, tenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invitation: %w", err)
		}
		if !exists {
			return ErrInviteNotFound
		}
		return ErrInviteNotPending
	}

	return nil
}

// Accept redeems an invitation token for the authenticated user, creating
// the membership. Expiry is evaluated against the clock, not the stored
// status; a stale PENDING row past its expiry is written back to EXPIRED.
func (s *Service) Accept(ctx context.Context, token string, userID uuid.UUID) (inviteID, tenantID uuid.UUID, role access.Role, err error) {
	if !ValidateTokenFormat(token) {
		return uuid.Nil, uuid.Nil, "", ErrInviteNotFound
	}
	tokenHash := HashToken(token)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var invite Invitation
	err = tx.QueryRow(ctx, `
		SELECT id, tenant_id, email, role, status, expires_at, created_by_user_id, created_at
		FROM invitations
		WHERE token_hash = $1
		FOR UPDATE
	`, tokenHash).Scan(
		&invite.ID,
		&invite.TenantID,
		&invite.Email,
		&invite.Role,
		&invite.Status,
		&invite.ExpiresAt,
		&invite.CreatedByUserID,
		&invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, "", ErrInviteNotFound
		}
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to load invitation: %w", err)
	}

	if EffectivelyExpired(&invite, time.Now().UTC()) {
		// Lazy write-back: reconcile the stored status while we hold the lock.
		if invite.Status == StatusPending {
			if _, err := tx.Exec(ctx, `
				UPDATE invitations SET status = 'EXPIRED'
				WHERE id = $1 AND status = 'PENDING'
			`, invite.ID); err != nil {
				return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to mark invitation expired: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
		return uuid.Nil, uuid.Nil, "", ErrInviteExpired
	}

	if invite.Status != StatusPending {
		return uuid.Nil, uuid.Nil, "", ErrInviteNotPending
	}

	var userEmail string
	err = tx.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&userEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, "", fmt.Errorf("user not found")
		}
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if !strings.EqualFold(userEmail, invite.Email) {
		return uuid.Nil, uuid.Nil, "", ErrInviteEmailMismatch
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (tenant_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, user_id) DO NOTHING
	`, invite.TenantID, userID, invite.Role)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to create membership: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invitations
		SET status = 'ACCEPTED', accepted_at = NOW(), accepted_by_user_id = $2
		WHERE id = $1
		  AND status = 'PENDING'
	`, invite.ID, userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, uuid.Nil, "", ErrInviteNotPending
	}

	var finalRole access.Role
	if err := tx.QueryRow(ctx, `
		SELECT role
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`, invite.TenantID, userID).Scan(&finalRole); err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to load membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return invite.ID, invite.TenantID, finalRole, nil
}
