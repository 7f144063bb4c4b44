package repository

import (
	"context"
	"encoding/json"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

// InsertLedgerEntry journals one balance mutation in the transactions table.
func (t *pgTx) InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil || e.Meta == nil {
		metaJSON = []byte("{}")
	}

	return t.tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, resource, delta, balance_after, reason, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.UserID, e.Resource, e.Delta, e.BalanceAfter, e.Reason, metaJSON, e.CreatedAt,
	).Scan(&e.ID)
}

// LedgerEntries returns the most recent journal rows for a user
func (t *pgTx) LedgerEntries(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := t.tx.Query(ctx,
		`SELECT id, user_id, resource, delta, balance_after, reason, meta, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
		var (
			e        domain.LedgerEntry
			metaJSON []byte
		)
		if err := row.Scan(&e.ID, &e.UserID, &e.Resource, &e.Delta, &e.BalanceAfter, &e.Reason, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Meta)
		}
		return &e, nil
	})
}
