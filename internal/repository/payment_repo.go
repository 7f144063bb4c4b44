package repository

import (
	"context"
	"fmt"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, user_id, kind, currency, amount, method, COALESCE(address, ''), COALESCE(tx_hash, ''),
	status, reserved, COALESCE(admin_notes, ''), created_at, processed_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.Kind, &p.Currency, &p.Amount, &p.Method, &p.Address, &p.TxHash,
		&p.Status, &p.Reserved, &p.AdminNotes, &p.CreatedAt, &p.ProcessedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPayment(row)
	})
}

func (t *pgTx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO payments (user_id, kind, currency, amount, method, address, tx_hash, status, reserved, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
		 RETURNING id`,
		p.UserID, p.Kind, p.Currency, p.Amount, p.Method, p.Address, p.TxHash, p.Status, p.Reserved, p.CreatedAt,
	).Scan(&p.ID)
}

func (t *pgTx) PaymentForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE payments SET status = $2, reserved = $3, admin_notes = NULLIF($4, ''), processed_at = $5 WHERE id = $1`,
		p.ID, p.Status, p.Reserved, p.AdminNotes, p.ProcessedAt,
	)
	return err
}

func (t *pgTx) PendingPayments(ctx context.Context) ([]*domain.Payment, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = 'pending' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (t *pgTx) UserPayments(ctx context.Context, userID int64, limit int) ([]*domain.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}
