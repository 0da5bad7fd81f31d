package app

import (
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apikey"
	"github.com/docgate/docgate/internal/apikeys"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/documents"
	"github.com/docgate/docgate/internal/email"
	"github.com/docgate/docgate/internal/invites"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/tags"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/docgate/docgate/internal/widget"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config, store storage.BlobStore, mailer email.Mailer) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	gate := access.NewGate(pool)
	auditor := audit.NewWriter(pool)
	resolver := tenancy.Resolver{
		RootDomain:    cfg.RootDomain,
		PreviewSuffix: cfg.PreviewSuffix,
	}
	signedURLTTL := time.Duration(cfg.SignedURLTTLMin) * time.Minute

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret, isProduction))

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// Public embed script; the key is validated by the widget boot call it makes
	r.Get("/embed/widget.js", widget.HandleScript(cfg.BaseURL))

	// Widget boot (API key auth, per-key rate limit)
	r.Route("/api/v1/widget", func(r chi.Router) {
		r.With(
			apikey.RequireAPIKey(pool, apikeys.ScopeWidgetRead),
			apikey.RateLimitByAPIKey(cfg.RateLimitRPM),
		).Get("/boot", widget.HandleBoot(pool))
	})

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware(isProduction))

		r.Post("/signup", auth.HandleSignup(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
		r.With(auth.RequireAuth).Post("/logout", auth.HandleLogout(isProduction))
	})

	r.With(ContentTypeJSON, auth.RequireAuth).Get("/api/v1/me", auth.HandleMe(pool))

	// API routes - Tenant directory (not scoped to the request's subdomain)
	r.Route("/api/v1/tenants", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware(isProduction))
		r.Use(auth.RequireAuth)

		r.Post("/", tenancy.HandleCreate(pool, auditor))
		r.Get("/", tenancy.HandleListMine(pool))
	})

	// Invitation acceptance is token-addressed, not subdomain-scoped
	r.With(ContentTypeJSON, CSRFMiddleware(isProduction), auth.RequireAuth).
		Post("/api/v1/invites/accept", invites.HandleAccept(pool, gate, auditor))

	// API routes - current tenant, resolved from the request host
	r.Route("/api/v1/tenant", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware(isProduction))
		r.Use(auth.RequireAuth)
		r.Use(tenancy.Middleware(pool, resolver))
		r.Use(tenancy.RequireTenant)

		r.Get("/", tenancy.HandleCurrent(gate))

		// Members
		r.Get("/members", tenancy.HandleListMembers(pool, gate))
		r.Put("/members/{user_id}/role", tenancy.HandleUpdateMemberRole(pool, gate, auditor))
		r.Delete("/members/{user_id}", tenancy.HandleRemoveMember(pool, gate, auditor))

		// Invitations
		r.Post("/invites", invites.HandleCreate(pool, gate, auditor, mailer, cfg.BaseURL))
		r.Get("/invites", invites.HandleList(pool, gate))
		r.Delete("/invites/{invite_id}", invites.HandleRevoke(pool, gate, auditor))

		// Documents
		r.Post("/documents", documents.HandleUpload(pool, gate, store, auditor, cfg.MaxUploadBytes))
		r.Get("/documents", documents.HandleList(pool, gate, store))
		r.Get("/documents/{document_id}", documents.HandleGet(pool, gate, store))
		r.Get("/documents/{document_id}/download", documents.HandleDownload(pool, gate, store, signedURLTTL))
		r.Post("/documents/{document_id}/approve", documents.HandleApprove(pool, gate, store, auditor))
		r.Post("/documents/{document_id}/reject", documents.HandleReject(pool, gate, store, auditor))
		r.Delete("/documents/{document_id}", documents.HandleDelete(pool, gate, store, auditor))
		r.Put("/documents/{document_id}/tags", documents.HandleSetTags(pool, gate, store))

		// Tags and grants
		r.Post("/tags", tags.HandleCreate(pool, gate, auditor))
		r.Get("/tags", tags.HandleList(pool, gate))
		r.Delete("/tags/{tag_id}", tags.HandleDelete(pool, gate, auditor))
		r.Get("/tags/{tag_id}/grants", tags.HandleListGrants(pool, gate))
		r.Post("/tags/{tag_id}/grants/{user_id}", tags.HandleGrant(pool, gate, auditor))
		r.Delete("/tags/{tag_id}/grants/{user_id}", tags.HandleRevoke(pool, gate, auditor))

		// API keys
		r.Post("/apikeys", apikeys.HandleCreate(pool, gate, auditor))
		r.Get("/apikeys", apikeys.HandleList(pool, gate))
		r.Delete("/apikeys/{key_id}", apikeys.HandleRevoke(pool, gate, auditor))

		// Widget settings
		r.Get("/widget", widget.HandleGetSettings(pool, gate))
		r.Put("/widget", widget.HandleUpdateSettings(pool, gate, auditor))

		// Audit log
		r.Get("/audit", handleAuditList(pool, gate))
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
