package apikeys

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/docgate/docgate/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	Name          string   `json:"name"`
	Scopes        []string `json:"scopes"`
	ExpiresInDays *int     `json:"expires_in_days"`
}

// HandleCreate handles POST /api/v1/tenant/apikeys
func HandleCreate(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateResourceName(req.Name, 100); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		scopes := make([]Scope, len(req.Scopes))
		for i, s := range req.Scopes {
			scopes[i] = Scope(s)
		}

		var expiresAt *time.Time
		if req.ExpiresInDays != nil {
			if *req.ExpiresInDays <= 0 || *req.ExpiresInDays > 365 {
				apperrors.WriteBadRequest(w, r, "expires_in_days must be between 1 and 365")
				return
			}
			t := time.Now().AddDate(0, 0, *req.ExpiresInDays)
			expiresAt = &t
		}

		service := NewService(pool, gate)
		key, token, err := service.Create(ctx, tenant.ID, userID, req.Name, scopes, expiresAt)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage API keys")
			case errors.Is(err, ErrInvalidScope):
				apperrors.WriteBadRequest(w, r, "Invalid API key scope")
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "An active API key with this name already exists")
			default:
				log.Error().Err(err).Msg("Failed to create API key")
				apperrors.WriteInternalError(w, r, "Failed to create API key")
			}
			return
		}

		if err := auditor.LogAPIKeyCreated(ctx, tenant.ID, userID, key.ID, key.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"api_key": key.ToCreatedResponse(token),
		})
	}
}

// HandleList handles GET /api/v1/tenant/apikeys
func HandleList(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		service := NewService(pool, gate)
		keys, err := service.ListByTenant(ctx, tenant.ID, userID)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage API keys")
			default:
				log.Error().Err(err).Msg("Failed to list API keys")
				apperrors.WriteInternalError(w, r, "Failed to list API keys")
			}
			return
		}

		items := make([]ListItemResponse, len(keys))
		for i := range keys {
			items[i] = keys[i].ToListItemResponse()
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"api_keys": items,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/tenant/apikeys/{key_id}
func HandleRevoke(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		keyID, err := uuid.Parse(chi.URLParam(r, "key_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid API key ID")
			return
		}

		service := NewService(pool, gate)
		if err := service.Revoke(ctx, tenant.ID, keyID, userID); err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage API keys")
			case errors.Is(err, ErrAPIKeyNotFound):
				apperrors.WriteNotFound(w, r, "API key not found")
			case errors.Is(err, ErrAPIKeyRevoked):
				apperrors.WriteConflict(w, r, "API key is already revoked")
			default:
				log.Error().Err(err).Msg("Failed to revoke API key")
				apperrors.WriteInternalError(w, r, "Failed to revoke API key")
			}
			return
		}

		if err := auditor.LogAPIKeyRevoked(ctx, tenant.ID, userID, keyID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}
