package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ReconcileExpiredInvitations moves PENDING invitations past their expiry to
// EXPIRED. Readers already treat such rows as expired, so this only settles
// the stored status. Idempotent - safe to run repeatedly.
//
// Returns the number of rows updated.
func ReconcileExpiredInvitations(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	query := `
		UPDATE invitations
		SET status = 'EXPIRED'
		WHERE status = 'PENDING'
		  AND expires_at <= NOW()
	`

	tag, err := pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile expired invitations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// PruneAuditLog deletes audit_log rows older than the specified days.
// The function is idempotent - safe to run repeatedly.
//
// Returns the number of rows deleted.
func PruneAuditLog(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	query := `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`

	tag, err := pool.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RunRetentionJob executes both retention operations and logs the results.
// This is the main entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, auditDays int) error {
	log.Info().
		Int("audit_retention_days", auditDays).
		Msg("Starting retention job")

	startTime := time.Now()

	invitesReconciled, err := ReconcileExpiredInvitations(ctx, pool)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reconcile expired invitations")
		return fmt.Errorf("invitation reconciliation failed: %w", err)
	}

	auditPruned, err := PruneAuditLog(ctx, pool, auditDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune audit log")
		return fmt.Errorf("audit log cleanup failed: %w", err)
	}

	duration := time.Since(startTime)

	log.Info().
		Int64("invitations_reconciled", invitesReconciled).
		Int64("audit_rows_pruned", auditPruned).
		Dur("duration", duration).
		Msg("Retention job completed")

	return nil
}
