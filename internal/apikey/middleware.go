package apikey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/apikeys"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RequireAPIKey is middleware that validates API key authentication
// It checks for a valid API key in the Authorization header and validates the required scope
func RequireAPIKey(pool *pgxpool.Pool, requiredScope apikeys.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := ExtractAPIKey(r)
			if err != nil {
				if errors.Is(err, ErrMissingAPIKey) {
					apperrors.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
					return
				}
				apperrors.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header")
				return
			}

			key, err := ValidateAPIKey(ctx, pool, token)
			if err != nil {
				switch {
				case errors.Is(err, ErrInvalidAPIKey), errors.Is(err, ErrRevokedAPIKey):
					apperrors.WriteError(w, r, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
				case errors.Is(err, ErrExpiredAPIKey):
					apperrors.WriteError(w, r, http.StatusUnauthorized, "invalid_api_key", "API key has expired")
				default:
					log.Error().Err(err).Msg("Failed to validate API key")
					apperrors.WriteInternalError(w, r, "Authentication failed")
				}
				return
			}

			if err := ValidateScope(key, requiredScope); err != nil {
				apperrors.WriteError(w, r, http.StatusForbidden, "forbidden", fmt.Sprintf("API key missing required scope: %s", requiredScope))
				return
			}

			// Fire and forget; a failed touch never blocks the request.
			go func() {
				touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := UpdateLastUsed(touchCtx, pool, key.ID); err != nil {
					log.Error().Err(err).Str("api_key_id", key.ID.String()).Msg("Failed to update last_used_at")
				}
			}()

			ctx = WithAPIKey(ctx, key)
			ctx = WithTenantID(ctx, key.TenantID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitByAPIKey creates a rate limiter that limits requests per API key
// The limit is specified in requests per minute
func RateLimitByAPIKey(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			key := GetAPIKey(r.Context())
			if key == nil {
				return httprate.KeyByIP(r)
			}
			return fmt.Sprintf("apikey:%s", key.ID.String()), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r.Context())
			if key != nil {
				log.Warn().
					Str("api_key_id", key.ID.String()).
					Str("api_key_name", key.Name).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")
			}

			w.Header().Set("Retry-After", "60")
			apperrors.WriteError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please retry after 60 seconds.")
		}),
	)
}
