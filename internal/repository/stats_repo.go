package repository

import (
	"context"
	"time"

	"sbr_farm/internal/domain"
)

func (t *pgTx) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	var s domain.Stats
	err := t.tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE vip_tier > 0 AND vip_expires_at > $1),
			(SELECT COUNT(*) FROM crops WHERE NOT harvested),
			(SELECT COUNT(*) FROM crops WHERE NOT harvested AND harvest_at <= $1),
			(SELECT COALESCE(SUM(sbr_coins), 0)::BIGINT FROM users),
			(SELECT COALESCE(SUM(usdt_balance), 0) FROM users),
			(SELECT COUNT(*) FROM payments WHERE status = 'pending' AND kind = 'withdrawal'),
			(SELECT COUNT(*) FROM payments WHERE status = 'pending' AND kind = 'deposit')
	`, now).Scan(&s.Users, &s.VIPUsers, &s.ActiveCrops, &s.ReadyCrops,
		&s.SBRInCirculation, &s.USDTInCirculation, &s.PendingWithdrawals, &s.PendingDeposits)
	return s, err
}
