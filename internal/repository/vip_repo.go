package repository

import (
	"context"
	"errors"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (t *pgTx) InsertGrant(ctx context.Context, g *domain.VIPBenefitGrant) (bool, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO vip_benefit_grants (user_id, tier, benefit_type, amount, granted_on)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, benefit_type, granted_on) DO NOTHING
		 RETURNING id`,
		g.UserID, g.Tier, g.BenefitType, g.Amount, g.GrantedOn,
	).Scan(&g.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *pgTx) ListGrants(ctx context.Context, userID int64, limit int) ([]*domain.VIPBenefitGrant, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.Query(ctx,
		`SELECT id, user_id, tier, benefit_type, amount, granted_on
		 FROM vip_benefit_grants
		 WHERE user_id = $1
		 ORDER BY granted_on DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.VIPBenefitGrant, error) {
		var g domain.VIPBenefitGrant
		err := row.Scan(&g.ID, &g.UserID, &g.Tier, &g.BenefitType, &g.Amount, &g.GrantedOn)
		return &g, err
	})
}
