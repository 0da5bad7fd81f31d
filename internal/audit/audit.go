package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup         = "user.signup"
	EventLoginFailed        = "auth.login_failed"
	EventTenantCreated      = "tenant.created"
	EventInviteCreated      = "invite.created"
	EventInviteRevoked      = "invite.revoked"
	EventInviteAccepted     = "invite.accepted"
	EventMemberRoleUpdated  = "member.role_updated"
	EventMemberRemoved      = "member.removed"
	EventDocumentUploaded   = "document.uploaded"
	EventDocumentApproved   = "document.approved"
	EventDocumentRejected   = "document.rejected"
	EventDocumentDeleted    = "document.deleted"
	EventTagCreated         = "tag.created"
	EventTagDeleted         = "tag.deleted"
	EventTagGranted         = "tag.granted"
	EventTagRevoked         = "tag.revoked"
	EventAPIKeyCreated      = "apikey.created"
	EventAPIKeyRevoked      = "apikey.revoked"
	EventWidgetConfigured   = "widget.configured"
)

// Event represents an audit log entry.
type Event struct {
	ID          uuid.UUID              `db:"id"`
	TenantID    uuid.NullUUID          `db:"tenant_id"`
	ActorUserID uuid.NullUUID          `db:"actor_user_id"`
	Action      string                 `db:"action"`
	Meta        map[string]interface{} `db:"meta"`
	CreatedAt   time.Time              `db:"created_at"`
}

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	TenantID    *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO audit_log (tenant_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4)
	`

	tenantID := toNullUUID(params.TenantID)
	actorUserID := toNullUUID(params.ActorUserID)

	_, err := w.pool.Exec(ctx, query, tenantID, actorUserID, params.Action, metaJSON)
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Info().
		Str("action", params.Action).
		Interface("tenant_id", params.TenantID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogTenantCreated(ctx context.Context, tenantID, actorID uuid.UUID, name, subdomain string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventTenantCreated,
		Meta: map[string]interface{}{
			"name":      name,
			"subdomain": subdomain,
		},
	})
}

func (w *Writer) LogInviteCreated(ctx context.Context, tenantID, actorID, inviteID uuid.UUID, email, role string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventInviteCreated,
		Meta: map[string]interface{}{
			"invite_id": inviteID.String(),
			"email":     email,
			"role":      role,
		},
	})
}

func (w *Writer) LogInviteRevoked(ctx context.Context, tenantID, actorID, inviteID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventInviteRevoked,
		Meta: map[string]interface{}{
			"invite_id": inviteID.String(),
		},
	})
}

func (w *Writer) LogInviteAccepted(ctx context.Context, tenantID, actorID, inviteID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventInviteAccepted,
		Meta: map[string]interface{}{
			"invite_id": inviteID.String(),
		},
	})
}

func (w *Writer) LogMemberRoleUpdated(ctx context.Context, tenantID, actorID, targetID uuid.UUID, previousRole, newRole string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventMemberRoleUpdated,
		Meta: map[string]interface{}{
			"target_user_id": targetID.String(),
			"previous_role":  previousRole,
			"new_role":       newRole,
		},
	})
}

func (w *Writer) LogMemberRemoved(ctx context.Context, tenantID, actorID, targetID uuid.UUID, removedRole string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventMemberRemoved,
		Meta: map[string]interface{}{
			"target_user_id": targetID.String(),
			"removed_role":   removedRole,
		},
	})
}

func (w *Writer) LogDocumentUploaded(ctx context.Context, tenantID, actorID, documentID uuid.UUID, title string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventDocumentUploaded,
		Meta: map[string]interface{}{
			"document_id": documentID.String(),
			"title":       title,
		},
	})
}

func (w *Writer) LogDocumentApproved(ctx context.Context, tenantID, actorID, documentID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventDocumentApproved,
		Meta: map[string]interface{}{
			"document_id": documentID.String(),
		},
	})
}

func (w *Writer) LogDocumentRejected(ctx context.Context, tenantID, actorID, documentID uuid.UUID, reason string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventDocumentRejected,
		Meta: map[string]interface{}{
			"document_id": documentID.String(),
			"reason":      reason,
		},
	})
}

func (w *Writer) LogDocumentDeleted(ctx context.Context, tenantID, actorID, documentID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventDocumentDeleted,
		Meta: map[string]interface{}{
			"document_id": documentID.String(),
		},
	})
}

func (w *Writer) LogTagCreated(ctx context.Context, tenantID, actorID, tagID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventTagCreated,
		Meta: map[string]interface{}{
			"tag_id": tagID.String(),
			"name":   name,
		},
	})
}

func (w *Writer) LogTagDeleted(ctx context.Context, tenantID, actorID, tagID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventTagDeleted,
		Meta: map[string]interface{}{
			"tag_id": tagID.String(),
		},
	})
}

func (w *Writer) LogTagGranted(ctx context.Context, tenantID, actorID, tagID, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventTagGranted,
		Meta: map[string]interface{}{
			"tag_id":  tagID.String(),
			"user_id": userID.String(),
		},
	})
}

func (w *Writer) LogTagRevoked(ctx context.Context, tenantID, actorID, tagID, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventTagRevoked,
		Meta: map[string]interface{}{
			"tag_id":  tagID.String(),
			"user_id": userID.String(),
		},
	})
}

func (w *Writer) LogAPIKeyCreated(ctx context.Context, tenantID, actorID, keyID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventAPIKeyCreated,
		Meta: map[string]interface{}{
			"api_key_id": keyID.String(),
			"name":       name,
		},
	})
}

func (w *Writer) LogAPIKeyRevoked(ctx context.Context, tenantID, actorID, keyID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventAPIKeyRevoked,
		Meta: map[string]interface{}{
			"api_key_id": keyID.String(),
		},
	})
}

func (w *Writer) LogWidgetConfigured(ctx context.Context, tenantID, actorID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		TenantID:    &tenantID,
		ActorUserID: &actorID,
		Action:      EventWidgetConfigured,
	})
}
