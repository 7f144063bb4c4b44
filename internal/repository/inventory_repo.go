package repository

import (
	"context"
	"errors"
	"fmt"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (t *pgTx) AddItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO inventory (user_id, item_type, item_name, quantity)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, item_type, item_name)
		 DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
		 RETURNING quantity`,
		userID, itemType, name, qty,
	).Scan(&n)
	return n, err
}

func (t *pgTx) TakeItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx,
		`UPDATE inventory SET quantity = quantity - $4
		 WHERE user_id = $1 AND item_type = $2 AND item_name = $3 AND quantity >= $4
		 RETURNING quantity`,
		userID, itemType, name, qty,
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s %s", domain.ErrInsufficientResource, name, itemType)
	}
	return n, err
}

func (t *pgTx) ListItems(ctx context.Context, userID int64) ([]domain.InventoryEntry, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT user_id, item_type, item_name, quantity
		 FROM inventory
		 WHERE user_id = $1 AND quantity > 0
		 ORDER BY item_type, item_name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InventoryEntry, error) {
		var e domain.InventoryEntry
		err := row.Scan(&e.UserID, &e.ItemType, &e.ItemName, &e.Quantity)
		return e, err
	})
}
