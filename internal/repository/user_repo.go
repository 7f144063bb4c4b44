package repository

import (
	"context"
	"fmt"
	"time"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), referral_code,
	water_drops, heavy_water, boosters, sbr_coins, usdt_balance, ton_balance,
	patches, patch_parts, vip_tier, vip_expires_at, last_daily_claim, last_ad_watch_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.ReferralCode,
		&u.WaterDrops, &u.HeavyWater, &u.Boosters, &u.SBRCoins, &u.USDTBalance, &u.TONBalance,
		&u.Patches, &u.PatchParts, &u.VIPTier, &u.VIPExpiresAt, &u.LastDailyClaim, &u.LastAdWatch, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (t *pgTx) UserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (t *pgTx) UserByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("tg user %d", tgID))
	}
	return u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u *domain.User) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name, referral_code,
			water_drops, heavy_water, boosters, sbr_coins, usdt_balance, ton_balance,
			patches, patch_parts, vip_tier, vip_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		 RETURNING id`,
		u.TgID, u.Username, u.FirstName, u.ReferralCode,
		u.WaterDrops, u.HeavyWater, u.Boosters, u.SBRCoins, u.USDTBalance, u.TONBalance,
		u.Patches, u.PatchParts, u.VIPTier, u.VIPExpiresAt, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user with tg_id %d exists", domain.ErrConflict, u.TgID)
	}
	u.UpdatedAt = u.CreatedAt
	return err
}

func (t *pgTx) UpdateUser(ctx context.Context, u *domain.User) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE users SET
			water_drops = $2, heavy_water = $3, boosters = $4, sbr_coins = $5,
			usdt_balance = $6, ton_balance = $7, patches = $8, patch_parts = $9,
			vip_tier = $10, vip_expires_at = $11, last_daily_claim = $12, last_ad_watch_at = $13,
			updated_at = now()
		 WHERE id = $1`,
		u.ID, u.WaterDrops, u.HeavyWater, u.Boosters, u.SBRCoins,
		u.USDTBalance, u.TONBalance, u.Patches, u.PatchParts,
		u.VIPTier, u.VIPExpiresAt, u.LastDailyClaim, u.LastAdWatch,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", domain.ErrNotFound, u.ID)
	}
	return nil
}

func (t *pgTx) ActiveVIPUserIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id FROM users WHERE vip_tier > 0 AND vip_expires_at > $1 ORDER BY id`, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
