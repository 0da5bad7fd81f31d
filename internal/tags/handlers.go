package tags

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	Name string `json:"name"`
}

// HandleCreate handles POST /api/v1/tenant/tags
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

		service := NewService(pool, gate)
		tag, err := service.Create(ctx, tenant.ID, userID, req.Name)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidName):
				apperrors.WriteBadRequest(w, r, "Tag name must be between 1 and 100 characters")
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage tags")
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "A tag with this name already exists")
			default:
				log.Error().Err(err).Msg("Failed to create tag")
				apperrors.WriteInternalError(w, r, "Failed to create tag")
			}
			return
		}

		if err := auditor.LogTagCreated(ctx, tenant.ID, userID, tag.ID, tag.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"tag": tag,
		})
	}
}

// HandleList handles GET /api/v1/tenant/tags
func HandleList(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		service := NewService(pool, gate)
		items, err := service.List(ctx, tenant.ID, userID)
		if err != nil {
			if errors.Is(err, access.ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Tenant not found")
				return
			}
			log.Error().Err(err).Msg("Failed to list tags")
			apperrors.WriteInternalError(w, r, "Failed to list tags")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tags": items,
		})
	}
}

// HandleDelete handles DELETE /api/v1/tenant/tags/{tag_id}
func HandleDelete(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		tagID, err := uuid.Parse(chi.URLParam(r, "tag_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid tag ID")
			return
		}

		service := NewService(pool, gate)
		if err := service.Delete(ctx, tenant.ID, tagID, userID); err != nil {
			writeTagError(w, r, err, "Failed to delete tag")
			return
		}

		if err := auditor.LogTagDeleted(ctx, tenant.ID, userID, tagID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// HandleGrant handles POST /api/v1/tenant/tags/{tag_id}/grants/{user_id}
func HandleGrant(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		tagID, err := uuid.Parse(chi.URLParam(r, "tag_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid tag ID")
			return
		}
		granteeID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		service := NewService(pool, gate)
		if err := service.GrantUser(ctx, tenant.ID, tagID, granteeID, actorID); err != nil {
			if errors.Is(err, ErrGranteeNotFound) {
				apperrors.WriteNotFound(w, r, "User is not a member of this tenant")
				return
			}
			writeTagError(w, r, err, "Failed to create grant")
			return
		}

		if err := auditor.LogTagGranted(ctx, tenant.ID, actorID, tagID, granteeID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"granted": true,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/tenant/tags/{tag_id}/grants/{user_id}
func HandleRevoke(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		tagID, err := uuid.Parse(chi.URLParam(r, "tag_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid tag ID")
			return
		}
		granteeID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		service := NewService(pool, gate)
		if err := service.RevokeUser(ctx, tenant.ID, tagID, granteeID, actorID); err != nil {
			if errors.Is(err, ErrGrantNotFound) {
				apperrors.WriteNotFound(w, r, "Grant not found")
				return
			}
			writeTagError(w, r, err, "Failed to revoke grant")
			return
		}

		if err := auditor.LogTagRevoked(ctx, tenant.ID, actorID, tagID, granteeID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleListGrants handles GET /api/v1/tenant/tags/{tag_id}/grants
func HandleListGrants(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		tagID, err := uuid.Parse(chi.URLParam(r, "tag_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid tag ID")
			return
		}

		service := NewService(pool, gate)
		grants, err := service.ListGrants(ctx, tenant.ID, tagID, userID)
		if err != nil {
			writeTagError(w, r, err, "Failed to list grants")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"grants": grants,
		})
	}
}

func writeTagError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, access.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Tenant not found")
	case errors.Is(err, access.ErrForbidden):
		apperrors.WriteForbidden(w, r, "Only administrators can manage tags")
	case errors.Is(err, ErrTagNotFound):
		apperrors.WriteNotFound(w, r, "Tag not found")
	default:
		log.Error().Err(err).Msg(fallback)
		apperrors.WriteInternalError(w, r, fallback)
	}
}
