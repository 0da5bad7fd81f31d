package apikeys

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAPIKeyNotFound is returned when an API key is not found
	ErrAPIKeyNotFound = errors.New("API key not found")

	// ErrNameConflict is returned when an active key with the same name exists
	ErrNameConflict = errors.New("API key name already exists in tenant")

	// ErrAPIKeyRevoked is returned when attempting an operation on a revoked key.
	ErrAPIKeyRevoked = errors.New("API key is revoked")

	// ErrInvalidScope is returned for an unrecognized scope value
	ErrInvalidScope = errors.New("invalid API key scope")
)

// Service provides API key-related operations
type Service struct {
	pool *pgxpool.Pool
	gate *access.Gate
}

func NewService(pool *pgxpool.Pool, gate *access.Gate) *Service {
	return &Service{pool: pool, gate: gate}
}

const keyColumns = `id, tenant_id, name, token_hash, scopes, expires_at, revoked_at, last_used_at,
		created_by_user_id, created_at, updated_at`

func scanKey(row pgx.Row) (*ApiKey, error) {
	var key ApiKey
	err := row.Scan(
		&key.ID,
		&key.TenantID,
		&key.Name,
		&key.TokenHash,
		&key.Scopes,
		&key.ExpiresAt,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedByUserID,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// Create creates a new API key and returns it with the plaintext token.
// The token is shown exactly once; only its hash is stored.
func (s *Service) Create(ctx context.Context, tenantID, actorUserID uuid.UUID, name string, scopes []Scope, expiresAt *time.Time) (*ApiKey, string, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageAPIKeys); err != nil {
		return nil, "", err
	}

	if len(scopes) == 0 {
		scopes = []Scope{ScopeWidgetRead}
	}
	scopeStrs := make([]string, len(scopes))
	for i, scope := range scopes {
		if !IsValidScope(scope) {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidScope, scope)
		}
		scopeStrs[i] = string(scope)
	}

	token, tokenHash, err := GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	query := `
		INSERT INTO api_keys (tenant_id, name, token_hash, scopes, created_by_user_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + keyColumns

	key, err := scanKey(s.pool.QueryRow(ctx, query, tenantID, name, tokenHash, scopeStrs, actorUserID, expiresAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrNameConflict
		}
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}

	return key, token, nil
}

// ListByTenant retrieves all API keys for a tenant, newest first
func (s *Service) ListByTenant(ctx context.Context, tenantID, actorUserID uuid.UUID) ([]ApiKey, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageAPIKeys); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + keyColumns + `
		FROM api_keys
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	var keys []ApiKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, *key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API key rows: %w", err)
	}

	return keys, nil
}

// Revoke marks an API key as revoked. Revocation is idempotent from the
// caller's view of state but a second call reports the key as already gone.
func (s *Service) Revoke(ctx context.Context, tenantID, apiKeyID, actorUserID uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageAPIKeys); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE api_keys
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND revoked_at IS NULL
	`, apiKeyID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM api_keys WHERE id = $1 AND tenant_id = $2)`,
			apiKeyID, tenantID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check API key: %w", err)
		}
		if exists {
			return ErrAPIKeyRevoked
		}
		return ErrAPIKeyNotFound
	}
	return nil
}

// GetByTokenHash looks up a key by its stored hash. Used by the API key
// authentication middleware; no membership gate applies.
func (s *Service) GetByTokenHash(ctx context.Context, tokenHash []byte) (*ApiKey, error) {
	query := `
		SELECT ` + keyColumns + `
		FROM api_keys
		WHERE token_hash = $1
	`
	key, err := scanKey(s.pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	return key, nil
}

// TouchLastUsed records key usage. Best-effort; a failed touch never blocks
// the authenticated request.
func (s *Service) TouchLastUsed(ctx context.Context, apiKeyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`,
		apiKeyID,
	)
	return err
}
