package repository

import (
	"context"
	"errors"
	"fmt"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

const contestColumns = `id, type, entry_cost, ads_required, prize_spec, start_at, end_at, status`

func scanContest(row pgx.Row) (*domain.Contest, error) {
	var c domain.Contest
	if err := row.Scan(&c.ID, &c.Type, &c.EntryCost, &c.AdsRequired, &c.PrizeSpec,
		&c.StartAt, &c.EndAt, &c.Status); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) ActiveContest(ctx context.Context, typ domain.ContestType) (*domain.Contest, error) {
	c, err := scanContest(t.tx.QueryRow(ctx,
		`SELECT `+contestColumns+` FROM contests WHERE type = $1 AND status = 'active'`, typ))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("active %s contest", typ))
	}
	return c, nil
}

func (t *pgTx) ContestForUpdate(ctx context.Context, id int64) (*domain.Contest, error) {
	c, err := scanContest(t.tx.QueryRow(ctx,
		`SELECT `+contestColumns+` FROM contests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("contest %d", id))
	}
	return c, nil
}

func (t *pgTx) InsertContest(ctx context.Context, c *domain.Contest) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO contests (type, entry_cost, ads_required, prize_spec, start_at, end_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		c.Type, c.EntryCost, c.AdsRequired, c.PrizeSpec, c.StartAt, c.EndAt, c.Status,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s contest already active", domain.ErrConflict, c.Type)
	}
	return err
}

func (t *pgTx) UpdateContest(ctx context.Context, c *domain.Contest) error {
	_, err := t.tx.Exec(ctx, `UPDATE contests SET status = $2, end_at = $3 WHERE id = $1`, c.ID, c.Status, c.EndAt)
	return err
}

func (t *pgTx) InsertEntry(ctx context.Context, e *domain.ContestEntry) (bool, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO contest_entries (contest_id, user_id, ads_watched, entered_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (contest_id, user_id) DO NOTHING
		 RETURNING id`,
		e.ContestID, e.UserID, e.AdsWatched, e.EnteredAt,
	).Scan(&e.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

const entryColumns = `id, contest_id, user_id, ads_watched, entered_at`

func scanEntry(row pgx.Row) (*domain.ContestEntry, error) {
	var e domain.ContestEntry
	if err := row.Scan(&e.ID, &e.ContestID, &e.UserID, &e.AdsWatched, &e.EnteredAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *pgTx) EntryForUpdate(ctx context.Context, contestID, userID int64) (*domain.ContestEntry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM contest_entries WHERE contest_id = $1 AND user_id = $2 FOR UPDATE`,
		contestID, userID))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("entry of user %d in contest %d", userID, contestID))
	}
	return e, nil
}

func (t *pgTx) UpdateEntry(ctx context.Context, e *domain.ContestEntry) error {
	_, err := t.tx.Exec(ctx, `UPDATE contest_entries SET ads_watched = $2 WHERE id = $1`, e.ID, e.AdsWatched)
	return err
}

func (t *pgTx) QualifyingEntries(ctx context.Context, contestID int64, minAds int) ([]*domain.ContestEntry, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+entryColumns+` FROM contest_entries
		 WHERE contest_id = $1 AND ads_watched >= $2
		 ORDER BY id`,
		contestID, minAds,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ContestEntry, error) {
		return scanEntry(row)
	})
}

func (t *pgTx) CountEntries(ctx context.Context, contestID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM contest_entries WHERE contest_id = $1`, contestID).Scan(&n)
	return n, err
}

const winnerColumns = `id, contest_id, user_id, prize_kind, amount, settled, settled_at`

func scanWinner(row pgx.Row) (*domain.ContestWinner, error) {
	var w domain.ContestWinner
	if err := row.Scan(&w.ID, &w.ContestID, &w.UserID, &w.PrizeKind, &w.Amount, &w.Settled, &w.SettledAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *pgTx) InsertWinner(ctx context.Context, w *domain.ContestWinner) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO contest_winners (contest_id, user_id, prize_kind, amount, settled)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING id`,
		w.ContestID, w.UserID, w.PrizeKind, w.Amount,
	).Scan(&w.ID)
}

func (t *pgTx) WinnerForUpdate(ctx context.Context, id int64) (*domain.ContestWinner, error) {
	w, err := scanWinner(t.tx.QueryRow(ctx, `SELECT `+winnerColumns+` FROM contest_winners WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, rowErr(err, fmt.Sprintf("winner %d", id))
	}
	return w, nil
}

func (t *pgTx) UpdateWinner(ctx context.Context, w *domain.ContestWinner) error {
	_, err := t.tx.Exec(ctx, `UPDATE contest_winners SET settled = $2, settled_at = $3 WHERE id = $1`,
		w.ID, w.Settled, w.SettledAt)
	return err
}

func (t *pgTx) UnsettledWinners(ctx context.Context, limit int) ([]*domain.ContestWinner, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.Query(ctx,
		`SELECT `+winnerColumns+` FROM contest_winners WHERE NOT settled ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ContestWinner, error) {
		return scanWinner(row)
	})
}
