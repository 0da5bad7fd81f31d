package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apikey"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// HandleGetSettings handles GET /api/v1/tenant/widget
func HandleGetSettings(pool *pgxpool.Pool, gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		service := NewService(pool, gate)
		settings, err := service.GetForAdmin(ctx, tenant.ID, userID)
		if err != nil {
			writeWidgetError(w, r, err, "Failed to get widget settings")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"widget": settings,
		})
	}
}

// HandleUpdateSettings handles PUT /api/v1/tenant/widget
func HandleUpdateSettings(pool *pgxpool.Pool, gate *access.Gate, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		var params UpdateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool, gate)
		settings, err := service.Update(ctx, tenant.ID, userID, params)
		if err != nil {
			if errors.Is(err, ErrInvalidSettings) {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			writeWidgetError(w, r, err, "Failed to update widget settings")
			return
		}

		if err := auditor.LogWidgetConfigured(ctx, tenant.ID, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"widget": settings,
		})
	}
}

// HandleBoot handles GET /api/v1/widget/boot. Authenticated by API key; the
// key's tenant decides whose settings are returned.
func HandleBoot(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenantID := apikey.GetTenantID(ctx)

		service := NewService(pool, nil)
		settings, err := service.Get(ctx, tenantID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load widget settings")
			apperrors.WriteInternalError(w, r, "Failed to load widget")
			return
		}

		if !settings.Enabled {
			apperrors.WriteNotFound(w, r, "Widget is disabled")
			return
		}

		var tenantName string
		err = pool.QueryRow(ctx, `SELECT name FROM tenants WHERE id = $1`, tenantID).Scan(&tenantName)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load tenant for widget boot")
			apperrors.WriteInternalError(w, r, "Failed to load widget")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tenant_name": tenantName,
			"widget":      settings,
		})
	}
}

// widgetScript is the embeddable loader. It fetches the boot payload with
// the embed key and renders a launcher that links to the tenant portal.
const widgetScript = `(function () {
  var script = document.currentScript;
  var key = (script && script.getAttribute('data-key')) || %q;
  var base = %q;
  if (!key) return;
  fetch(base + '/api/v1/widget/boot', {
    headers: { 'Authorization': 'Bearer ' + key }
  })
    .then(function (res) { return res.ok ? res.json() : null; })
    .then(function (body) {
      if (!body || !body.data || !body.data.widget) return;
      var cfg = body.data.widget;
      var btn = document.createElement('a');
      btn.href = base;
      btn.textContent = cfg.title;
      btn.title = cfg.greeting;
      btn.style.cssText = 'position:fixed;bottom:20px;right:20px;padding:10px 16px;' +
        'border-radius:20px;color:#fff;text-decoration:none;font-family:sans-serif;' +
        'background:' + cfg.accent_color + ';z-index:9999;';
      document.body.appendChild(btn);
    })
    .catch(function () {});
})();
`

// HandleScript handles GET /embed/widget.js. Public; the key arrives via the
// "key" query parameter or a data-key attribute on the script tag.
func HandleScript(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")

		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		fmt.Fprintf(w, widgetScript, key, baseURL)
	}
}

func writeWidgetError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, access.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Tenant not found")
	case errors.Is(err, access.ErrForbidden):
		apperrors.WriteForbidden(w, r, "Only administrators can manage widget settings")
	default:
		log.Error().Err(err).Msg(fallback)
		apperrors.WriteInternalError(w, r, fallback)
	}
}
