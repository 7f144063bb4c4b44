package repository

import (
	"context"
	"encoding/json"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

// InsertAudit inserts a new audit log entry
func (t *pgTx) InsertAudit(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}

	return t.tx.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, category, details, actor, created_at)
		VALUES (NULLIF($1, 0), $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id
	`, log.UserID, log.Action, log.Category, detailsJSON, log.Actor, log.CreatedAt).Scan(&log.ID)
}

// RecentAudit returns the latest audit logs across all users
func (t *pgTx) RecentAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, COALESCE(user_id, 0), action, category, details, COALESCE(actor, ''), created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditLog, error) {
		var (
			log         domain.AuditLog
			detailsJSON []byte
		)
		if err := row.Scan(&log.ID, &log.UserID, &log.Action, &log.Category, &detailsJSON, &log.Actor, &log.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &log.Details)
		}
		return &log, nil
	})
}
