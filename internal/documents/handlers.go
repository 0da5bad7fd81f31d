package documents

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/apperrors"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type RejectRequest struct {
	Reason string `json:"reason"`
}

type SetTagsRequest struct {
	TagIDs []uuid.UUID `json:"tag_ids"`
}

// HandleUpload handles POST /api/v1/tenant/documents (multipart).
// Fields: file (required), title (optional, defaults to the file name).
func HandleUpload(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore, auditor *audit.Writer, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				apperrors.WritePayloadTooLarge(w, r, "Uploaded file is too large")
				return
			}
			apperrors.WriteBadRequest(w, r, "A file field is required")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		title := r.FormValue("title")

		service := NewService(pool, gate, store)
		doc, err := service.Upload(ctx, tenant.ID, userID, title, header.Filename, contentType, header.Size, file)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Viewers cannot upload documents")
			case errors.Is(err, ErrStorageFailure):
				log.Error().Err(err).Msg("Blob storage upload failed")
				apperrors.WriteUpstreamError(w, r, "Document storage is unavailable")
			default:
				log.Error().Err(err).Msg("Failed to upload document")
				apperrors.WriteInternalError(w, r, "Failed to upload document")
			}
			return
		}

		if err := auditor.LogDocumentUploaded(ctx, tenant.ID, userID, doc.ID, doc.Title); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"document": doc,
		})
	}
}

// HandleList handles GET /api/v1/tenant/documents?q=&status=
func HandleList(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		filter := Filter{Query: r.URL.Query().Get("q")}
		if s := r.URL.Query().Get("status"); s != "" {
			filter.Status = Status(s)
			if !filter.Status.IsValid() {
				apperrors.WriteBadRequest(w, r, "Invalid status filter")
				return
			}
		}

		service := NewService(pool, gate, store)
		items, err := service.List(ctx, tenant.ID, userID, filter)
		if err != nil {
			writeDocError(w, r, err, "Failed to list documents")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"documents": items,
		})
	}
}

// HandleGet handles GET /api/v1/tenant/documents/{document_id}
func HandleGet(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		service := NewService(pool, gate, store)
		doc, err := service.GetByID(ctx, tenant.ID, docID, userID)
		if err != nil {
			writeDocError(w, r, err, "Failed to get document")
			return
		}

		tags, err := service.Tags(ctx, doc.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load document tags")
			apperrors.WriteInternalError(w, r, "Failed to get document")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"document": doc,
			"tags":     tags,
		})
	}
}

// HandleDownload handles GET /api/v1/tenant/documents/{document_id}/download.
// Redirects to a signed URL; the document bytes never pass through this
// process.
func HandleDownload(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore, signedURLTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		service := NewService(pool, gate, store)
		signed, err := service.DownloadURL(ctx, tenant.ID, docID, userID, signedURLTTL)
		if err != nil {
			if errors.Is(err, ErrStorageFailure) {
				log.Error().Err(err).Msg("Failed to sign download URL")
				apperrors.WriteUpstreamError(w, r, "Document storage is unavailable")
				return
			}
			writeDocError(w, r, err, "Failed to get document")
			return
		}

		http.Redirect(w, r, signed.String(), http.StatusFound)
	}
}

// HandleApprove handles POST /api/v1/tenant/documents/{document_id}/approve
func HandleApprove(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		service := NewService(pool, gate, store)
		doc, err := service.Approve(ctx, tenant.ID, docID, userID)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can approve documents")
			case errors.Is(err, ErrDocumentNotFound):
				apperrors.WriteNotFound(w, r, "Document not found")
			case errors.Is(err, ErrAlreadyProcessed):
				apperrors.WriteConflict(w, r, "Document already processed")
			default:
				log.Error().Err(err).Msg("Failed to approve document")
				apperrors.WriteInternalError(w, r, "Failed to approve document")
			}
			return
		}

		if err := auditor.LogDocumentApproved(ctx, tenant.ID, userID, doc.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"document": doc,
		})
	}
}

// HandleReject handles POST /api/v1/tenant/documents/{document_id}/reject
func HandleReject(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		var req RejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool, gate, store)
		doc, err := service.Reject(ctx, tenant.ID, docID, userID, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, ErrReasonRequired):
				apperrors.WriteBadRequest(w, r, "Rejection reason is required")
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can reject documents")
			case errors.Is(err, ErrDocumentNotFound):
				apperrors.WriteNotFound(w, r, "Document not found")
			case errors.Is(err, ErrAlreadyProcessed):
				apperrors.WriteConflict(w, r, "Document already processed")
			default:
				log.Error().Err(err).Msg("Failed to reject document")
				apperrors.WriteInternalError(w, r, "Failed to reject document")
			}
			return
		}

		if err := auditor.LogDocumentRejected(ctx, tenant.ID, userID, doc.ID, req.Reason); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"document": doc,
		})
	}
}

// HandleDelete handles DELETE /api/v1/tenant/documents/{document_id}
func HandleDelete(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		service := NewService(pool, gate, store)
		if err := service.Delete(ctx, tenant.ID, docID, userID); err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, ErrDocumentNotFound):
				apperrors.WriteNotFound(w, r, "Document not found")
			case errors.Is(err, ErrAlreadyProcessed):
				apperrors.WriteConflict(w, r, "Processed documents can only be deleted by an administrator")
			case errors.Is(err, ErrNotDeletable):
				apperrors.WriteForbidden(w, r, "You cannot delete this document")
			default:
				log.Error().Err(err).Msg("Failed to delete document")
				apperrors.WriteInternalError(w, r, "Failed to delete document")
			}
			return
		}

		if err := auditor.LogDocumentDeleted(ctx, tenant.ID, userID, docID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// HandleSetTags handles PUT /api/v1/tenant/documents/{document_id}/tags
func HandleSetTags(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		tenant := tenancy.GetTenant(ctx)

		docID, err := uuid.Parse(chi.URLParam(r, "document_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid document ID")
			return
		}

		var req SetTagsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool, gate, store)
		if err := service.SetTags(ctx, tenant.ID, docID, userID, req.TagIDs); err != nil {
			switch {
			case errors.Is(err, access.ErrNotMember):
				apperrors.WriteNotFound(w, r, "Tenant not found")
			case errors.Is(err, access.ErrForbidden):
				apperrors.WriteForbidden(w, r, "Only administrators can manage tags")
			case errors.Is(err, ErrDocumentNotFound):
				apperrors.WriteNotFound(w, r, "Document not found")
			case errors.Is(err, ErrTagNotInTenant):
				apperrors.WriteBadRequest(w, r, "One or more tags do not belong to this tenant")
			default:
				log.Error().Err(err).Msg("Failed to update document tags")
				apperrors.WriteInternalError(w, r, "Failed to update document tags")
			}
			return
		}

		tags, err := service.Tags(ctx, docID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load document tags")
			apperrors.WriteInternalError(w, r, "Failed to update document tags")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tags": tags,
		})
	}
}

func writeDocError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, access.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Tenant not found")
	case errors.Is(err, access.ErrForbidden):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	case errors.Is(err, ErrDocumentNotFound):
		apperrors.WriteNotFound(w, r, "Document not found")
	default:
		log.Error().Err(err).Msg(fallback)
		apperrors.WriteInternalError(w, r, fallback)
	}
}
