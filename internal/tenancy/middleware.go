package tenancy

import (
	"context"
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/apperrors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const tenantContextKey contextKey = "tenant"

// Middleware resolves the tenant for every inbound request from its host and
// stores it in the request context. Requests on the root domain (or any host
// that resolves to no subdomain) continue without tenant context; handlers
// behind RequireTenant reject them.
func Middleware(pool *pgxpool.Pool, resolver Resolver) func(http.Handler) http.Handler {
	service := NewService(pool)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subdomain := resolver.Resolve(r.URL.String(), r.Host)
			if subdomain == "" {
				next.ServeHTTP(w, r)
				return
			}

			tenant, err := service.GetBySubdomain(r.Context(), subdomain)
			if err != nil {
				if errors.Is(err, ErrTenantNotFound) {
					log.Debug().Str("subdomain", subdomain).Msg("No tenant for subdomain")
					next.ServeHTTP(w, r)
					return
				}
				log.Error().Err(err).Str("subdomain", subdomain).Msg("Failed to load tenant")
				apperrors.WriteInternalError(w, r, "Failed to resolve tenant")
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests whose host did not resolve to a tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetTenant(r.Context()) == nil {
			apperrors.WriteNotFound(w, r, "Tenant not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetTenant retrieves the resolved tenant from the request context.
// Returns nil if the request is not tenant-scoped.
func GetTenant(ctx context.Context) *Tenant {
	tenant, ok := ctx.Value(tenantContextKey).(*Tenant)
	if !ok {
		return nil
	}
	return tenant
}
