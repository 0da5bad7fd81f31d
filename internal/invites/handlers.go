package invites

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/email"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	Email string      `json:"email"`
	Role  access.Role `json:"role"`
}

type CreateResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Role      access.Role `json:"role"`
	ExpiresAt string      `json:"expires_at"`
	Token     string      `json:"token"`
	AcceptURL string      `json:"accept_url"`
	EmailSent bool        `json:"email_sent"`
}

type AcceptRequest struct {
	Token string `json:"token"`
}

// HandleCreate handles POST /api/v1/tenant/invites. The invitation row is
// the primary mutation; the email notice is best-effort and reported via
// email_sent without affecting the committed row.
func HandleCreate(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer, mailer email.Mailer, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if req.Role == "" {
			req.Role = access.RoleMember
		}
		if !req.Role.IsValid() {
			apperrors.WriteBadRequest(w, r, "Invalid role")
			return
		}

		service := NewService(pool, gate)
		invite, token, err := service.Create(ctx, tenant.ID, userID, req.Email, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage invitations")
			case errors.Is(err, ErrDuplicatePending):
				apperrors.WriteConflict(w, r, "A pending invitation already exists for this email")
			case errors.Is(err, ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, "Invalid email address")
			default:
				log.Error().Err(err).Msg("Failed to create invitation")
				apperrors.WriteInternalError(w, r, "Failed to create invitation")
			}
			return
		}

		if err := auditor.LogInviteCreated(ctx, tenant.ID, userID, invite.ID, invite.Email, string(invite.Role)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		acceptURL := baseURL + "/invites/accept?token=" + url.QueryEscape(token)

		emailSent := mailer.SendInvite(ctx, email.InviteMessage{
			To:         invite.Email,
			TenantName: tenant.Name,
			Role:       string(invite.Role),
			AcceptURL:  acceptURL,
			ExpiresAt:  invite.ExpiresAt,
		})

		resp := CreateResponse{
			ID:        invite.ID,
			Email:     invite.Email,
			Role:      invite.Role,
			ExpiresAt: invite.ExpiresAt.Format(time.RFC3339),
			Token:     token,
			AcceptURL: acceptURL,
			EmailSent: emailSent,
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invite": resp,
		})
	}
}

// HandleList handles GET /api/v1/tenant/invites
func HandleList(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		service := NewService(pool, gate)
		items, err := service.ListPending(ctx, tenant.ID, userID)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage invitations")
			default:
				log.Error().Err(err).Msg("Failed to list invitations")
				apperrors.WriteInternalError(w, r, "Failed to list invitations")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invites": items,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/tenant/invites/{invite_id}
func HandleRevoke(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		inviteID, err := uuid.Parse(chi.URLParam(r, "invite_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		service := NewService(pool, gate)
		if err := service.Revoke(ctx, tenant.ID, inviteID, userID); err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage invitations")
			case errors.Is(err, ErrInviteNotFound):
				apperrors.WriteNotFound(w, r, "Invitation not found")
			case errors.Is(err, ErrInviteNotPending):
				apperrors.WriteConflict(w, r, "Invitation already used or revoked")
			default:
				log.Error().Err(err).Msg("Failed to revoke invitation")
				apperrors.WriteInternalError(w, r, "Failed to revoke invitation")
			}
			return
		}

		if err := auditor.LogInviteRevoked(ctx, tenant.ID, userID, inviteID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleAccept handles POST /api/v1/invites/accept. Not tenant-scoped: the
// token alone identifies the invitation.
func HandleAccept(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req AcceptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Token = strings.TrimSpace(req.Token)
		if req.Token == "" {
			apperrors.WriteBadRequest(w, r, "Invitation token is required")
			return
		}

		service := NewService(pool, gate)
		inviteID, tenantID, role, err := service.Accept(ctx, req.Token, userID)
		if err != nil {
			switch {
			case errors.Is(err, ErrInviteNotFound):
				apperrors.WriteNotFound(w, r, "Invitation not found")
			case errors.Is(err, ErrInviteNotPending):
				apperrors.WriteConflict(w, r, "Invitation already used or revoked")
			case errors.Is(err, ErrInviteExpired):
				apperrors.WriteGone(w, r, "Invitation expired")
			case errors.Is(err, ErrInviteEmailMismatch):
				apperrors.WriteForbidden(w, r, "Invitation email does not match your account")
			default:
				log.Error().Err(err).Msg("Failed to accept invitation")
				apperrors.WriteInternalError(w, r, "Failed to accept invitation")
			}
			return
		}

		if err := auditor.LogInviteAccepted(ctx, tenantID, userID, inviteID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"accepted":  true,
			"invite_id": inviteID,
			"tenant_id": tenantID,
			"role":      role,
		})
	}
}
