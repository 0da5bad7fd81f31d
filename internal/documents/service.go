package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Service provides document operations
type Service struct {
	pool  *pgxpool.Pool
	gate  *access.Gate
	store storage.BlobStore
}

func NewService(pool *pgxpool.Pool, gate *access.Gate, store storage.BlobStore) *Service {
	return &Service{pool: pool, gate: gate, store: store}
}

// storageKey derives the blob key for a document. Keys are prefixed by
// tenant so a tenant wipe can remove its objects by prefix.
func storageKey(tenantID, docID uuid.UUID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("tenants/%s/documents/%s/%s", tenantID, docID, name)
}

// Upload streams the file to the blob store and records the document row.
// The blob is written first; if the row insert fails the blob is removed
// best-effort so the store does not accumulate orphans.
func (s *Service) Upload(ctx context.Context, tenantID, userID uuid.UUID, title, fileName, contentType string, size int64, r io.Reader) (*Document, error) {
	if _, err := s.gate.Require(ctx, userID, tenantID, access.ActionUploadDocument); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = fileName
	}
	if len(title) > 300 {
		title = title[:300]
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	docID := uuid.New()
	key := storageKey(tenantID, docID, fileName)

	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	var doc Document
	query := `
		INSERT INTO documents (id, tenant_id, title, file_name, content_type, size_bytes, storage_key, submitted_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, tenant_id, title, file_name, content_type, size_bytes, storage_key,
		          status, submitted_by_user_id, created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		docID, tenantID, title, fileName, contentType, size, key, userID,
	).Scan(
		&doc.ID, &doc.TenantID, &doc.Title, &doc.FileName, &doc.ContentType,
		&doc.SizeBytes, &doc.StorageKey, &doc.Status, &doc.SubmittedByUserID,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Error().Err(delErr).Str("storage_key", key).Msg("Failed to clean up blob after insert failure")
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &doc, nil
}

// List returns the documents the caller may see, most recent first.
// Visibility, free-text search, and status filtering are all pushed into the
// query so the database never returns a row the caller cannot view.
func (s *Service) List(ctx context.Context, tenantID, userID uuid.UUID, filter Filter) ([]ListItem, error) {
	m, err := s.gate.Require(ctx, userID, tenantID, access.ActionViewDocuments)
	if err != nil {
		return nil, err
	}

	args := []any{tenantID}
	conditions := []string{"d.tenant_id = $1"}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(d.title ILIKE $%d OR d.file_name ILIKE $%d)", n, n))
	}

	visCond, visArgs := access.VisibilityCondition(m, "d", len(args)+1)
	if visCond != "TRUE" {
		args = append(args, visArgs...)
		conditions = append(conditions, visCond)
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.title, d.file_name, d.content_type, d.size_bytes, d.status,
		       u.email AS submitted_by_email, d.created_at
		FROM documents d
		INNER JOIN users u ON u.id = d.submitted_by_user_id
		WHERE %s
		ORDER BY d.created_at DESC
		LIMIT 200
	`, strings.Join(conditions, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var it ListItem
		if err := rows.Scan(&it.ID, &it.Title, &it.FileName, &it.ContentType,
			&it.SizeBytes, &it.Status, &it.SubmittedByEmail, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetByID returns a single document the caller may view. A submitter always
// sees their own document; everyone else is subject to the same tag
// visibility rule as listings.
func (s *Service) GetByID(ctx context.Context, tenantID, docID, userID uuid.UUID) (*Document, error) {
	m, err := s.gate.Require(ctx, userID, tenantID, access.ActionViewDocuments)
	if err != nil {
		return nil, err
	}

	args := []any{docID, tenantID, userID}
	visCond, visArgs := access.VisibilityCondition(m, "d", len(args)+1)
	args = append(args, visArgs...)

	query := fmt.Sprintf(`
		SELECT d.id, d.tenant_id, d.title, d.file_name, d.content_type, d.size_bytes,
		       d.storage_key, d.status, d.submitted_by_user_id,
		       d.approved_by_user_id, d.approved_at,
		       d.rejected_by_user_id, d.rejected_at, d.rejection_reason,
		       d.created_at, d.updated_at
		FROM documents d
		WHERE d.id = $1 AND d.tenant_id = $2
		  AND (d.submitted_by_user_id = $3 OR %s)
	`, visCond)

	var doc Document
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&doc.ID, &doc.TenantID, &doc.Title, &doc.FileName, &doc.ContentType,
		&doc.SizeBytes, &doc.StorageKey, &doc.Status, &doc.SubmittedByUserID,
		&doc.ApprovedByUserID, &doc.ApprovedAt,
		&doc.RejectedByUserID, &doc.RejectedAt, &doc.RejectionReason,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// Tags returns the tags attached to a document.
func (s *Service) Tags(ctx context.Context, docID uuid.UUID) ([]TagInfo, error) {
	query := `
		SELECT t.id, t.name
		FROM document_tags dt
		INNER JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id = $1
		ORDER BY LOWER(t.name)
	`
	rows, err := s.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document tags: %w", err)
	}
	defer rows.Close()

	tags := []TagInfo{}
	for rows.Next() {
		var t TagInfo
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DownloadURL returns a time-limited signed URL for the document bytes.
// Visibility is checked the same way as GetByID.
func (s *Service) DownloadURL(ctx context.Context, tenantID, docID, userID uuid.UUID, ttl time.Duration) (*url.URL, error) {
	doc, err := s.GetByID(ctx, tenantID, docID, userID)
	if err != nil {
		return nil, err
	}

	signed, err := s.store.SignedURL(ctx, doc.StorageKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return signed, nil
}

// Approve moves a PENDING document to APPROVED. The transition is a single
// conditional update: with two concurrent approvals exactly one sees an
// affected row, the other reports ErrAlreadyProcessed.
func (s *Service) Approve(ctx context.Context, tenantID, docID, actorUserID uuid.UUID) (*Document, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionApproveDocument); err != nil {
		return nil, err
	}

	query := `
		UPDATE documents
		SET status = 'APPROVED',
		    approved_by_user_id = $3,
		    approved_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'
	`
	tag, err := s.pool.Exec(ctx, query, docID, tenantID, actorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to approve document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, s.transitionFailure(ctx, tenantID, docID)
	}

	return s.fetch(ctx, tenantID, docID)
}

// Reject moves a PENDING document to REJECTED with a mandatory reason.
func (s *Service) Reject(ctx context.Context, tenantID, docID, actorUserID uuid.UUID, reason string) (*Document, error) {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionRejectDocument); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	query := `
		UPDATE documents
		SET status = 'REJECTED',
		    rejected_by_user_id = $3,
		    rejected_at = NOW(),
		    rejection_reason = $4,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'
	`
	tag, err := s.pool.Exec(ctx, query, docID, tenantID, actorUserID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to reject document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, s.transitionFailure(ctx, tenantID, docID)
	}

	return s.fetch(ctx, tenantID, docID)
}

// transitionFailure distinguishes a missing document from one already out of
// PENDING after a zero-row conditional update.
func (s *Service) transitionFailure(ctx context.Context, tenantID, docID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1 AND tenant_id = $2)`,
		docID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if !exists {
		return ErrDocumentNotFound
	}
	return ErrAlreadyProcessed
}

// Delete removes a document. Admins may delete any document; the submitter
// may delete their own only while it is still PENDING. The row delete is the
// authoritative step; blob removal afterwards is best-effort.
func (s *Service) Delete(ctx context.Context, tenantID, docID, actorUserID uuid.UUID) error {
	m, err := s.gate.RequireMember(ctx, actorUserID, tenantID)
	if err != nil {
		return err
	}

	var key string
	if m.IsAdmin() {
		err = s.pool.QueryRow(ctx,
			`DELETE FROM documents WHERE id = $1 AND tenant_id = $2 RETURNING storage_key`,
			docID, tenantID,
		).Scan(&key)
	} else {
		err = s.pool.QueryRow(ctx,
			`DELETE FROM documents
			 WHERE id = $1 AND tenant_id = $2 AND submitted_by_user_id = $3 AND status = 'PENDING'
			 RETURNING storage_key`,
			docID, tenantID, actorUserID,
		).Scan(&key)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.deleteFailure(ctx, tenantID, docID, actorUserID)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if delErr := s.store.Delete(ctx, key); delErr != nil {
		log.Error().Err(delErr).Str("storage_key", key).Msg("Failed to delete document blob")
	}

	return nil
}

func (s *Service) deleteFailure(ctx context.Context, tenantID, docID, actorUserID uuid.UUID) error {
	var submittedBy uuid.UUID
	var status Status
	err := s.pool.QueryRow(ctx,
		`SELECT submitted_by_user_id, status FROM documents WHERE id = $1 AND tenant_id = $2`,
		docID, tenantID,
	).Scan(&submittedBy, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to check document: %w", err)
	}
	if submittedBy == actorUserID && status != StatusPending {
		return ErrAlreadyProcessed
	}
	return ErrNotDeletable
}

// SetTags replaces the document's tag set. All tags must belong to the
// tenant; the replacement is transactional so readers never observe a
// half-updated set.
func (s *Service) SetTags(ctx context.Context, tenantID, docID, actorUserID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := s.gate.Require(ctx, actorUserID, tenantID, access.ActionManageTags); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1 AND tenant_id = $2)`,
		docID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if !exists {
		return ErrDocumentNotFound
	}

	if len(tagIDs) > 0 {
		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM tags WHERE tenant_id = $1 AND id = ANY($2)`,
			tenantID, tagIDs,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check tags: %w", err)
		}
		if count != len(uniqueIDs(tagIDs)) {
			return ErrTagNotInTenant
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_tags WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to clear document tags: %w", err)
	}

	for _, tagID := range uniqueIDs(tagIDs) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)`,
			docID, tagID,
		); err != nil {
			return fmt.Errorf("failed to attach tag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// fetch loads a document without a visibility check, for internal use after
// a guarded mutation has already succeeded.
func (s *Service) fetch(ctx context.Context, tenantID, docID uuid.UUID) (*Document, error) {
	var doc Document
	query := `
		SELECT id, tenant_id, title, file_name, content_type, size_bytes,
		       storage_key, status, submitted_by_user_id,
		       approved_by_user_id, approved_at,
		       rejected_by_user_id, rejected_at, rejection_reason,
		       created_at, updated_at
		FROM documents
		WHERE id = $1 AND tenant_id = $2
	`
	err := s.pool.QueryRow(ctx, query, docID, tenantID).Scan(
		&doc.ID, &doc.TenantID, &doc.Title, &doc.FileName, &doc.ContentType,
		&doc.SizeBytes, &doc.StorageKey, &doc.Status, &doc.SubmittedByUserID,
		&doc.ApprovedByUserID, &doc.ApprovedAt,
		&doc.RejectedByUserID, &doc.RejectedAt, &doc.RejectionReason,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}
