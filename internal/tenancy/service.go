package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrTenantNotFound is returned when a tenant is not found
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrNameConflict is returned when a tenant name is already taken
	// (names are unique case-insensitively)
	ErrNameConflict = errors.New("tenant name already exists")

	// ErrSubdomainConflict is returned when a tenant subdomain already exists
	ErrSubdomainConflict = errors.New("tenant subdomain already exists")

	// ErrAlreadyOwner is returned when the user already owns a tenant;
	// a user may own at most one tenant system-wide
	ErrAlreadyOwner = errors.New("user already owns a tenant")
)

// Service provides tenant-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new tenant service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// GetByID retrieves a tenant by ID
func (s *Service) GetByID(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	return s.getOne(ctx, `WHERE id = $1`, tenantID)
}

// GetBySubdomain retrieves a tenant by its subdomain label
func (s *Service) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return s.getOne(ctx, `WHERE subdomain = $1`, subdomain)
}

func (s *Service) getOne(ctx context.Context, where string, arg any) (*Tenant, error) {
	var t Tenant

	query := `
		SELECT id, name, subdomain, created_by_user_id, created_at, updated_at
		FROM tenants
	` + where

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.CreatedByUserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

// ListUserTenants retrieves all tenants a user belongs to with their roles
func (s *Service) ListUserTenants(ctx context.Context, userID uuid.UUID) ([]TenantWithRole, error) {
	query := `
		SELECT t.id, t.name, t.subdomain, t.created_by_user_id, t.created_at, t.updated_at,
		       m.role, m.is_owner
		FROM tenants t
		INNER JOIN memberships m ON t.id = m.tenant_id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tenants: %w", err)
	}
	defer rows.Close()

	var tenants []TenantWithRole
	for rows.Next() {
		var t TenantWithRole
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Subdomain,
			&t.CreatedByUserID,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.Role,
			&t.IsOwner,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant rows: %w", err)
	}

	return tenants, nil
}

// CreateWithOwner creates a new tenant and an ADMIN owner membership for the
// user in a single transaction. The partial unique index on owner memberships
// rejects a second owned tenant for the same user.
func (s *Service) CreateWithOwner(ctx context.Context, name, subdomain string, userID uuid.UUID) (*Tenant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var t Tenant
	query := `
		INSERT INTO tenants (name, subdomain, created_by_user_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, subdomain, created_by_user_id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query, name, subdomain, userID).Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.CreatedByUserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			if pgErr.ConstraintName == "tenants_subdomain_key" {
				return nil, ErrSubdomainConflict
			}
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	memberQuery := `
		INSERT INTO memberships (tenant_id, user_id, role, is_owner)
		VALUES ($1, $2, $3, TRUE)
	`

	_, err = tx.Exec(ctx, memberQuery, t.ID, userID, access.RoleAdmin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyOwner
		}
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &t, nil
}

// ListMembers retrieves all members of a tenant
func (s *Service) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]MemberInfo, error) {
	query := `
		SELECT m.user_id, u.email, u.name, m.role, m.is_owner, m.created_at
		FROM memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.tenant_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []MemberInfo
	for rows.Next() {
		var member MemberInfo
		err := rows.Scan(
			&member.UserID,
			&member.Email,
			&member.Name,
			&member.Role,
			&member.IsOwner,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}
