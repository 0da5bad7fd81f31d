package apikey

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/apikeys"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrMissingAPIKey is returned when no API key is provided
	ErrMissingAPIKey = errors.New("missing API key in Authorization header")

	// ErrInvalidAPIKey is returned when the API key is invalid
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrRevokedAPIKey is returned when the API key has been revoked
	ErrRevokedAPIKey = errors.New("API key has been revoked")

	// ErrExpiredAPIKey is returned when the API key has expired
	ErrExpiredAPIKey = errors.New("API key has expired")

	// ErrInsufficientScope is returned when the API key doesn't have required scope
	ErrInsufficientScope = errors.New("API key does not have required scope")
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	contextKeyAPIKey   contextKey = "apikey"
	contextKeyTenantID contextKey = "apikey_tenant_id"
)

// ExtractAPIKey extracts the API key token from the Authorization header
// Expected format: "Authorization: Bearer <token>". A "key" query parameter
// is accepted as a fallback for embed script loads that cannot set headers.
func ExtractAPIKey(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if key := r.URL.Query().Get("key"); key != "" {
			return key, nil
		}
		return "", ErrMissingAPIKey
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format, expected 'Bearer <token>'")
	}

	token := parts[1]
	if token == "" {
		return "", ErrMissingAPIKey
	}

	return token, nil
}

// HashToken hashes an API key token using SHA-256
func HashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

// ValidateAPIKey validates an API key token and returns the API key
func ValidateAPIKey(ctx context.Context, pool *pgxpool.Pool, token string) (*apikeys.ApiKey, error) {
	if !apikeys.ValidateTokenFormat(token) {
		return nil, ErrInvalidAPIKey
	}

	tokenHash := HashToken(token)

	service := apikeys.NewService(pool, nil)
	key, err := service.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apikeys.ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to validate API key: %w", err)
	}

	if key.RevokedAt.Valid {
		return nil, ErrRevokedAPIKey
	}

	if key.ExpiresAt.Valid && !key.ExpiresAt.Time.After(time.Now()) {
		return nil, ErrExpiredAPIKey
	}

	return key, nil
}

// ValidateScope checks if the API key has the required scope
func ValidateScope(key *apikeys.ApiKey, requiredScope apikeys.Scope) error {
	if key.HasScope(requiredScope) {
		return nil
	}
	return ErrInsufficientScope
}

// UpdateLastUsed updates the last_used_at timestamp for an API key
func UpdateLastUsed(ctx context.Context, pool *pgxpool.Pool, apiKeyID uuid.UUID) error {
	service := apikeys.NewService(pool, nil)
	return service.TouchLastUsed(ctx, apiKeyID)
}

// WithAPIKey adds the API key to the request context
func WithAPIKey(ctx context.Context, key *apikeys.ApiKey) context.Context {
	return context.WithValue(ctx, contextKeyAPIKey, key)
}

// GetAPIKey retrieves the API key from the request context
func GetAPIKey(ctx context.Context) *apikeys.ApiKey {
	key, ok := ctx.Value(contextKeyAPIKey).(*apikeys.ApiKey)
	if !ok {
		return nil
	}
	return key
}

// WithTenantID adds the key's tenant ID to the request context
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKeyTenantID, tenantID)
}

// GetTenantID retrieves the key's tenant ID from the request context
func GetTenantID(ctx context.Context) uuid.UUID {
	tenantID, ok := ctx.Value(contextKeyTenantID).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return tenantID
}
