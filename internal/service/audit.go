package service

import (
	"context"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"
)

// Audit records operator actions next to the changes they cause.
type Audit struct {
	store repository.Store
	clock clock.Clock
}

func NewAudit(store repository.Store, clk clock.Clock) *Audit {
	return &Audit{store: store, clock: clk}
}

// LogWithTx writes the entry in the caller's transaction, so the entry exists
// exactly when the action committed.
func (a *Audit) LogWithTx(ctx context.Context, tx repository.Tx, actor string, userID int64, action, category string, details map[string]interface{}) error {
	return tx.InsertAudit(ctx, &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		Actor:     actor,
		CreatedAt: a.clock.Now().UTC(),
	})
}

// Log writes a standalone entry. Failures are logged, not returned.
func (a *Audit) Log(ctx context.Context, actor string, userID int64, action, category string, details map[string]interface{}) {
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return a.LogWithTx(ctx, tx, actor, userID, action, category, details)
	})
	if err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// Recent returns the newest entries first.
func (a *Audit) Recent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.RecentAudit(ctx, limit)
		return err
	})
	return out, err
}
