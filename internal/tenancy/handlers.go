package tenancy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TenantCreateRequest is the payload for creating a tenant
type TenantCreateRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// TenantResponse is the JSON shape for a tenant
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
}

func toTenantResponse(t *Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Subdomain: t.Subdomain,
		CreatedAt: t.CreatedAt,
	}
}

// HandleCreate handles POST /api/v1/tenants
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req TenantCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if err := validation.ValidateResourceName(req.Name, 200); err != nil {
			apperrors.WriteBadRequest(w, r, "Tenant name is required and must be at most 200 characters")
			return
		}

		req.Subdomain = validation.NormalizeSubdomain(req.Subdomain)
		if err := validation.ValidateSubdomain(req.Subdomain); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		tenant, err := service.CreateWithOwner(ctx, req.Name, req.Subdomain, userID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "Tenant name already exists")
			case errors.Is(err, ErrSubdomainConflict):
				apperrors.WriteConflict(w, r, "Subdomain already exists")
			case errors.Is(err, ErrAlreadyOwner):
				apperrors.WriteConflict(w, r, "You already own a tenant")
			default:
				log.Error().Err(err).Msg("Failed to create tenant")
				apperrors.WriteInternalError(w, r, "Failed to create tenant")
			}
			return
		}

		if err := auditor.LogTenantCreated(ctx, tenant.ID, userID, tenant.Name, tenant.Subdomain); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"tenant": toTenantResponse(tenant),
		})
	}
}

// HandleListMine handles GET /api/v1/tenants
func HandleListMine(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		service := NewService(pool)
		tenants, err := service.ListUserTenants(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list tenants")
			apperrors.WriteInternalError(w, r, "Failed to list tenants")
			return
		}

		type item struct {
			TenantResponse
			Role    access.Role `json:"role"`
			IsOwner bool        `json:"is_owner"`
		}
		items := make([]item, 0, len(tenants))
		for i := range tenants {
			items = append(items, item{
				TenantResponse: toTenantResponse(&tenants[i].Tenant),
				Role:           tenants[i].Role,
				IsOwner:        tenants[i].IsOwner,
			})
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tenants": items,
		})
	}
}

// HandleCurrent handles GET /api/v1/tenant, returning the tenant resolved
// from the request host along with the caller's membership.
func HandleCurrent(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := GetTenant(ctx)

		membership, err := gate.RequireMember(ctx, userID, tenant.ID)
		if err != nil {
			if errors.Is(err, access.ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Tenant not found")
				return
			}
			log.Error().Err(err).Msg("Failed to check membership")
			apperrors.WriteInternalError(w, r, "Failed to load tenant")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tenant":   toTenantResponse(tenant),
			"role":     membership.Role,
			"is_owner": membership.IsOwner,
		})
	}
}

// HandleListMembers handles GET /api/v1/tenant/members
func HandleListMembers(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := GetTenant(ctx)

		if _, err := gate.Require(ctx, userID, tenant.ID, access.ActionListMembers); err != nil {
			writeGateError(w, r, err)
			return
		}

		service := NewService(pool)
		members, err := service.ListMembers(ctx, tenant.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"members": members,
		})
	}
}

// MemberRoleUpdateRequest is the payload for changing a member's role
type MemberRoleUpdateRequest struct {
	Role access.Role `json:"role"`
}

// HandleUpdateMemberRole handles PUT /api/v1/tenant/members/{user_id}/role
func HandleUpdateMemberRole(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := auth.GetUserID(ctx)
		tenant := GetTenant(ctx)

		targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		var req MemberRoleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if !req.Role.IsValid() {
			apperrors.WriteBadRequest(w, r, "Invalid role")
			return
		}

		service := NewService(pool)
		previousRole, err := service.UpdateMemberRole(ctx, tenant.ID, actorID, targetID, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage members")
			case errors.Is(err, ErrMemberNotFound):
				apperrors.WriteNotFound(w, r, "Member not found")
			case errors.Is(err, ErrCannotModifyOwner):
				apperrors.WriteConflict(w, r, "Tenant owner cannot be demoted")
			default:
				log.Error().Err(err).Msg("Failed to update member role")
				apperrors.WriteInternalError(w, r, "Failed to update member role")
			}
			return
		}

		if err := auditor.LogMemberRoleUpdated(ctx, tenant.ID, actorID, targetID, string(previousRole), string(req.Role)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user_id":       targetID,
			"previous_role": previousRole,
			"role":          req.Role,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/tenant/members/{user_id}
func HandleRemoveMember(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := auth.GetUserID(ctx)
		tenant := GetTenant(ctx)

		targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		service := NewService(pool)
		removedRole, err := service.RemoveMember(ctx, tenant.ID, actorID, targetID)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage members")
			case errors.Is(err, ErrMemberNotFound):
				apperrors.WriteNotFound(w, r, "Member not found")
			case errors.Is(err, ErrCannotModifyOwner):
				apperrors.WriteConflict(w, r, "Tenant owner cannot be removed")
			default:
				log.Error().Err(err).Msg("Failed to remove member")
				apperrors.WriteInternalError(w, r, "Failed to remove member")
			}
			return
		}

		if err := auditor.LogMemberRemoved(ctx, tenant.ID, actorID, targetID, string(removedRole)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"removed": true,
		})
	}
}

// writeGateError maps access gate errors onto the HTTP envelope. Missing
// membership is reported as 404 to avoid confirming tenant existence.
func writeGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Tenant not found")
	case errors.Is(err, access.ErrForbidden):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	default:
		log.Error().Err(err).Msg("Access gate check failed")
		apperrors.WriteInternalError(w, r, "Authorization check failed")
	}
}
