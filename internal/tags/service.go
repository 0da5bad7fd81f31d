package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrNameConflict    = errors.New("a tag with this name already exists")
	ErrInvalidName     = errors.New("invalid tag name")
	ErrGrantNotFound   = errors.New("grant not found")
	ErrGranteeNotFound = errors.New("user is not a member of this tenant")
)

// Tag is an access label. A document carrying tags is visible to admins and
// to members holding a grant for at least one of them.
type Tag struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ListItem is a tag with usage counts for listings.
type ListItem struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	DocumentCount int       `db:"document_count" json:"document_count"`
	GrantCount    int       `db:"grant_count" json:"grant_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Grant records that a member may see documents carrying a tag.
type Grant struct {
	TagID     uuid.UUID `db:"tag_id" json:"tag_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Service provides tag and grant operations
type Service struct {
	pool *pgxpool.Pool
	gate *access.Gate
}

func NewService(pool *pgxpool.Pool, gate *access.Gate) *Service {
	return &Service{pool: pool, gate: gate}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create adds a tag. Name uniqueness is case-insensitive per tenant and
// enforced by the database, so concurrent creates cannot both succeed.
func (s *Service) Create(ctx context.Context, tenantID, actorUserID uuid.UUID, name string) (*Tag, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageTags); err != nil {
		return nil, err
	}

	var tag Tag
	query := `
		INSERT INTO tags (tenant_id, name)
		VALUES ($1, $2)
		RETURNING id, tenant_id, name, created_at
	`
	err = s.pool.QueryRow(ctx, query, tenantID, name).Scan(
		&tag.ID, &tag.TenantID, &tag.Name, &tag.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return &tag, nil
}

// List returns the tenant's tags with document and grant counts. Any member
// may list tags; the names alone reveal nothing about restricted documents.
func (s *Service) List(ctx context.Context, tenantID, actorUserID uuid.UUID) ([]ListItem, error) {
	if _, err := s.gate.RequireMember(ctx, actorUserID, tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.name,
		       (SELECT COUNT(*) FROM document_tags dt WHERE dt.tag_id = t.id) AS document_count,
		       (SELECT COUNT(*) FROM user_tag_grants g WHERE g.tag_id = t.id) AS grant_count,
		       t.created_at
		FROM tags t
		WHERE t.tenant_id = $1
		ORDER BY LOWER(t.name)
	`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var it ListItem
		if err := rows.Scan(&it.ID, &it.Name, &it.DocumentCount, &it.GrantCount, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Delete removes a tag. Attachments and grants go with it via cascade, which
// widens visibility for affected documents rather than hiding them.
func (s *Service) Delete(ctx context.Context, tenantID, tagID, actorUserID uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageTags); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tags WHERE id = $1 AND tenant_id = $2`,
		tagID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

// GrantUser lets a member see documents carrying the tag. Granting an
// existing grant is a no-op.
func (s *Service) GrantUser(ctx context.Context, tenantID, tagID, userID, actorUserID uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageGrants); err != nil {
		return err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1 AND tenant_id = $2)`,
		tagID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check tag: %w", err)
	}
	if !exists {
		return ErrTagNotFound
	}

	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM memberships WHERE tenant_id = $1 AND user_id = $2)`,
		tenantID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !exists {
		return ErrGranteeNotFound
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_tag_grants (tenant_id, user_id, tag_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		tenantID, userID, tagID,
	)
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}
	return nil
}

// RevokeUser removes a member's grant for the tag.
func (s *Service) RevokeUser(ctx context.Context, tenantID, tagID, userID, actorUserID uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageGrants); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_tag_grants WHERE tenant_id = $1 AND user_id = $2 AND tag_id = $3`,
		tenantID, userID, tagID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// ListGrants returns the members holding a grant for the tag.
func (s *Service) ListGrants(ctx context.Context, tenantID, tagID, actorUserID uuid.UUID) ([]Grant, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageGrants); err != nil {
		return nil, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1 AND tenant_id = $2)`,
		tagID, tenantID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check tag: %w", err)
	}
	if !exists {
		return nil, ErrTagNotFound
	}

	query := `
		SELECT g.tag_id, g.user_id, u.email, g.created_at
		FROM user_tag_grants g
		INNER JOIN users u ON u.id = g.user_id
		WHERE g.tenant_id = $1 AND g.tag_id = $2
		ORDER BY u.email
	`
	rows, err := s.pool.Query(ctx, query, tenantID, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	grants := []Grant{}
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.TagID, &g.UserID, &g.UserEmail, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
