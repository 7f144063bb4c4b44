package repository

import (
	"context"
	"fmt"
	"time"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

const cropColumns = `id, user_id, patch_number, crop_type, planted_at, harvest_at, boosters_used, harvested, harvested_at`

func scanCrop(row pgx.Row) (*domain.Crop, error) {
	var c domain.Crop
	if err := row.Scan(&c.ID, &c.UserID, &c.PatchNumber, &c.CropType, &c.PlantedAt,
		&c.HarvestAt, &c.BoostersUsed, &c.Harvested, &c.HarvestedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) InsertCrop(ctx context.Context, c *domain.Crop) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO crops (user_id, patch_number, crop_type, planted_at, harvest_at, boosters_used, harvested)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		 RETURNING id`,
		c.UserID, c.PatchNumber, c.CropType, c.PlantedAt, c.HarvestAt, c.BoostersUsed,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: patch %d is occupied", domain.ErrInvalidState, c.PatchNumber)
	}
	return err
}

func (t *pgTx) CropForUpdate(ctx context.Context, id int64) (*domain.Crop, error) {
	c, err := scanCrop(t.tx.QueryRow(ctx, `SELECT `+cropColumns+` FROM crops WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("crop %d", id))
	}
	return c, nil
}

func (t *pgTx) UpdateCrop(ctx context.Context, c *domain.Crop) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE crops SET harvest_at = $2, boosters_used = $3, harvested = $4, harvested_at = $5 WHERE id = $1`,
		c.ID, c.HarvestAt, c.BoostersUsed, c.Harvested, c.HarvestedAt,
	)
	return err
}

func (t *pgTx) ActiveCrops(ctx context.Context, userID int64) ([]*domain.Crop, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+cropColumns+` FROM crops WHERE user_id = $1 AND NOT harvested ORDER BY patch_number`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Crop, error) {
		return scanCrop(row)
	})
}

func (t *pgTx) CountReadyCrops(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM crops WHERE NOT harvested AND harvest_at <= $1`, now,
	).Scan(&n)
	return n, err
}
