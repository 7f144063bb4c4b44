package service

import (
	"context"
	"fmt"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

// Posting describes one journaled balance change made inside a transaction.
type Posting struct {
	Reason string
	Meta   map[string]interface{}
	// Strict fails with ErrCapacityExceeded instead of clamping to the cap.
	Strict bool
}

// Ledger is the only writer of a user's resource balances.
type Ledger struct {
	store repository.Store
	game  *config.Game
	clock clock.Clock
}

func NewLedger(store repository.Store, game *config.Game, clk clock.Clock) *Ledger {
	return &Ledger{store: store, game: game, clock: clk}
}

// ConvertResult reports both legs of a conversion.
type ConvertResult struct {
	From        domain.Resource `json:"from"`
	To          domain.Resource `json:"to"`
	Debited     decimal.Decimal `json:"debited"`
	Credited    decimal.Decimal `json:"credited"`
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
}

func (l *Ledger) validate(r domain.Resource, amount decimal.Decimal) error {
	if _, ok := domain.ParseResource(string(r)); !ok {
		return fmt.Errorf("%w: unknown resource %q", domain.ErrValidation, r)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !r.ValidAmount(amount) {
		return fmt.Errorf("%w: %s does not accept amount %s", domain.ErrValidation, r, amount)
	}
	return nil
}

// Credit adds amount of r, clamping capped resources. Returns the new balance.
func (l *Ledger) Credit(ctx context.Context, userID int64, r domain.Resource, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		bal, err = l.CreditWithTx(ctx, tx, u, r, amount, Posting{Reason: reason})
		return err
	})
	return bal, err
}

// Debit removes amount of r, failing with ErrInsufficientResource rather than
// going below zero. Returns the new balance.
func (l *Ledger) Debit(ctx context.Context, userID int64, r domain.Resource, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		bal, err = l.DebitWithTx(ctx, tx, u, r, amount, Posting{Reason: reason})
		return err
	})
	return bal, err
}

// CreditWithTx credits a user row already locked by the caller's transaction
// and persists it.
func (l *Ledger) CreditWithTx(ctx context.Context, tx repository.Tx, u *domain.User, r domain.Resource, amount decimal.Decimal, p Posting) (decimal.Decimal, error) {
	if err := l.validate(r, amount); err != nil {
		return decimal.Zero, err
	}

	before := u.Balance(r)
	after := before.Add(amount)
	meta := p.Meta

	if limit, ok := l.game.Cap(r); ok {
		capDec := decimal.NewFromInt(limit)
		if after.GreaterThan(capDec) {
			if p.Strict {
				return decimal.Zero, fmt.Errorf("%w: %s would reach %s, cap is %d", domain.ErrCapacityExceeded, r, after, limit)
			}
			after = capDec
		}
	}

	delta := after.Sub(before)
	if r == domain.ResourcePatchParts {
		parts := after.IntPart()
		if built := parts / domain.PatchPartsPerPatch; built > 0 {
			u.Patches += int(built)
			meta = withMeta(meta, "patches_built", built)
		}
		after = decimal.NewFromInt(parts % domain.PatchPartsPerPatch)
	}

	u.SetBalance(r, after)
	if err := tx.UpdateUser(ctx, u); err != nil {
		return decimal.Zero, err
	}
	if err := l.journal(ctx, tx, u.ID, r, delta, after, p.Reason, meta); err != nil {
		return decimal.Zero, err
	}
	return after, nil
}

// DebitWithTx debits a user row already locked by the caller's transaction and
// persists it.
func (l *Ledger) DebitWithTx(ctx context.Context, tx repository.Tx, u *domain.User, r domain.Resource, amount decimal.Decimal, p Posting) (decimal.Decimal, error) {
	if err := l.validate(r, amount); err != nil {
		return decimal.Zero, err
	}

	before := u.Balance(r)
	if before.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: need %s %s, have %s", domain.ErrInsufficientResource, amount, r, before)
	}
	after := before.Sub(amount)

	u.SetBalance(r, after)
	if err := tx.UpdateUser(ctx, u); err != nil {
		return decimal.Zero, err
	}
	if err := l.journal(ctx, tx, u.ID, r, amount.Neg(), after, p.Reason, p.Meta); err != nil {
		return decimal.Zero, err
	}
	return after, nil
}

// Convert exchanges fromAmount of from for to at the configured ratio. Both
// legs commit together or not at all.
func (l *Ledger) Convert(ctx context.Context, userID int64, from, to domain.Resource, fromAmount decimal.Decimal) (*ConvertResult, error) {
	conv, ok := l.game.Conversion(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: no conversion from %s to %s", domain.ErrValidation, from, to)
	}
	if fromAmount.Sign() <= 0 || !fromAmount.IsInteger() {
		return nil, fmt.Errorf("%w: conversion amount must be a positive whole number", domain.ErrValidation)
	}
	units := decimal.NewFromInt(conv.FromUnits)
	if !fromAmount.Mod(units).IsZero() {
		return nil, fmt.Errorf("%w: %s must be converted in multiples of %d", domain.ErrValidation, from, conv.FromUnits)
	}
	toAmount := fromAmount.Div(units).Mul(decimal.NewFromInt(conv.ToUnits))

	res := &ConvertResult{From: from, To: to, Debited: fromAmount, Credited: toAmount}
	meta := map[string]interface{}{"from": string(from), "to": string(to)}

	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if res.FromBalance, err = l.DebitWithTx(ctx, tx, u, from, fromAmount, Posting{Reason: domain.ReasonConvert, Meta: meta}); err != nil {
			return err
		}
		res.ToBalance, err = l.CreditWithTx(ctx, tx, u, to, toAmount, Posting{Reason: domain.ReasonConvert, Meta: meta, Strict: true})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// History returns the user's most recent journal rows.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.LedgerEntries(ctx, userID, limit)
		return err
	})
	return out, err
}

func (l *Ledger) journal(ctx context.Context, tx repository.Tx, userID int64, r domain.Resource, delta, after decimal.Decimal, reason string, meta map[string]interface{}) error {
	if delta.IsZero() && meta == nil {
		return nil
	}
	return tx.InsertLedgerEntry(ctx, &domain.LedgerEntry{
		UserID:       userID,
		Resource:     r,
		Delta:        delta,
		BalanceAfter: after,
		Reason:       reason,
		Meta:         meta,
		CreatedAt:    l.clock.Now(),
	})
}

// withMeta copies m and sets k, leaving the caller's map untouched.
func withMeta(m map[string]interface{}, k string, v interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}
