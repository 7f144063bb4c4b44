package service

import (
	"context"
	"fmt"

	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"
)

// Inventory owns per-user counts of seeds and harvested goods.
type Inventory struct {
	store repository.Store
}

func NewInventory(store repository.Store) *Inventory {
	return &Inventory{store: store}
}

func validateItem(itemType domain.ItemType, name string, qty int64) error {
	if itemType != domain.ItemSeed && itemType != domain.ItemHarvested {
		return fmt.Errorf("%w: unknown item type %q", domain.ErrValidation, itemType)
	}
	if name == "" {
		return fmt.Errorf("%w: item name is required", domain.ErrValidation)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	return nil
}

// Credit adds qty of the item, creating the entry on first use.
func (i *Inventory) Credit(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	var n int64
	err := i.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		n, err = i.CreditWithTx(ctx, tx, userID, itemType, name, qty)
		return err
	})
	return n, err
}

// Debit removes qty of the item or fails with ErrInsufficientResource.
func (i *Inventory) Debit(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	var n int64
	err := i.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		n, err = i.DebitWithTx(ctx, tx, userID, itemType, name, qty)
		return err
	})
	return n, err
}

func (i *Inventory) CreditWithTx(ctx context.Context, tx repository.Tx, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	if err := validateItem(itemType, name, qty); err != nil {
		return 0, err
	}
	return tx.AddItem(ctx, userID, itemType, name, qty)
}

func (i *Inventory) DebitWithTx(ctx context.Context, tx repository.Tx, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	if err := validateItem(itemType, name, qty); err != nil {
		return 0, err
	}
	return tx.TakeItem(ctx, userID, itemType, name, qty)
}

func (i *Inventory) List(ctx context.Context, userID int64) ([]domain.InventoryEntry, error) {
	var out []domain.InventoryEntry
	err := i.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListItems(ctx, userID)
		return err
	})
	return out, err
}
