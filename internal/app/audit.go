package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const defaultAuditLimit = 50

// handleAuditList handles GET /api/v1/tenant/audit?limit=
// Lives here rather than in the audit package because it needs the resolved
// tenant from the tenancy middleware, which itself writes audit events.
func handleAuditList(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	reader := audit.NewReader(pool)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		if _, err := gate.Require(ctx, userID, tenant.ID, access.ActionViewAuditLog); err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can view the audit log")
			default:
				log.Error().Err(err).Msg("Failed to check audit access")
				apperrors.WriteInternalError(w, r, "Failed to list audit events")
			}
			return
		}

		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				apperrors.WriteBadRequest(w, r, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		events, err := reader.ListByTenant(ctx, tenant.ID, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit events")
			apperrors.WriteInternalError(w, r, "Failed to list audit events")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}
