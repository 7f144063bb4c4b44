package service

import (
	"context"
	"fmt"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"
	"sbr_farm/internal/ton"

	"github.com/shopspring/decimal"
)

// Payments tracks deposits and withdrawals awaiting admin review.
type Payments struct {
	store   repository.Store
	game    *config.Game
	clock   clock.Clock
	ledger  *Ledger
	reserve string
}

// NewPayments builds the service; reservation is config.ReserveOnRequest or
// config.ReserveOnApproval.
func NewPayments(store repository.Store, game *config.Game, clk clock.Clock, ledger *Ledger, reservation string) *Payments {
	if reservation != config.ReserveOnApproval {
		reservation = config.ReserveOnRequest
	}
	return &Payments{store: store, game: game, clock: clk, ledger: ledger, reserve: reservation}
}

func (s *Payments) validate(currency domain.Resource, amount decimal.Decimal, method domain.PaymentMethod) error {
	want, ok := method.Currency()
	if !ok {
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, method)
	}
	if currency != want {
		return fmt.Errorf("%w: %s pays out in %s, not %s", domain.ErrValidation, method, want, currency)
	}
	if amount.Sign() <= 0 || !currency.ValidAmount(amount) {
		return fmt.Errorf("%w: invalid amount %s", domain.ErrValidation, amount)
	}
	return nil
}

// RequestWithdrawal files a pending withdrawal. Under the request reservation
// policy the amount is debited immediately.
func (s *Payments) RequestWithdrawal(ctx context.Context, userID int64, currency domain.Resource, amount decimal.Decimal, method domain.PaymentMethod, address string) (*domain.Payment, error) {
	if err := s.validate(currency, amount, method); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}
	if method == domain.MethodTON {
		raw, err := ton.NormalizeAddress(address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		address = raw
	}
	if floor, ok := s.game.Withdrawals[method]; ok && amount.LessThan(floor) {
		return nil, fmt.Errorf("%w: minimum %s withdrawal is %s %s", domain.ErrValidation, method, floor, currency)
	}

	p := &domain.Payment{
		UserID:   userID,
		Kind:     domain.PaymentWithdrawal,
		Currency: currency,
		Amount:   amount,
		Method:   method,
		Address:  address,
		Status:   domain.PaymentPending,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		p.CreatedAt = s.clock.Now().UTC()
		if s.reserve == config.ReserveOnRequest {
			if _, err := s.ledger.DebitWithTx(ctx, tx, u, currency, amount,
				Posting{Reason: domain.ReasonWithdrawal, Meta: map[string]interface{}{"method": string(method)}}); err != nil {
				return err
			}
			p.Reserved = true
		} else if u.Balance(currency).LessThan(amount) {
			return fmt.Errorf("%w: need %s %s, have %s", domain.ErrInsufficientResource, amount, currency, u.Balance(currency))
		}
		return tx.InsertPayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("withdrawal requested", "payment_id", p.ID, "user_id", userID, "method", method, "amount", amount.String())
	return p, nil
}

// RecordDeposit files an externally confirmed deposit; nothing is credited
// until an admin approves it.
func (s *Payments) RecordDeposit(ctx context.Context, userID int64, currency domain.Resource, amount decimal.Decimal, method domain.PaymentMethod, txHash string) (*domain.Payment, error) {
	if err := s.validate(currency, amount, method); err != nil {
		return nil, err
	}
	if txHash == "" {
		return nil, fmt.Errorf("%w: tx hash is required", domain.ErrValidation)
	}

	p := &domain.Payment{
		UserID:   userID,
		Kind:     domain.PaymentDeposit,
		Currency: currency,
		Amount:   amount,
		Method:   method,
		TxHash:   txHash,
		Status:   domain.PaymentPending,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		p.CreatedAt = s.clock.Now().UTC()
		return tx.InsertPayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Approve settles a pending payment.
func (s *Payments) Approve(ctx context.Context, id int64) (*domain.Payment, error) {
	var out *domain.Payment
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = s.ApproveWithTx(ctx, tx, id)
		return err
	})
	return out, err
}

// ApproveWithTx runs Approve inside the caller's transaction.
func (s *Payments) ApproveWithTx(ctx context.Context, tx repository.Tx, id int64) (*domain.Payment, error) {
	p, u, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	meta := map[string]interface{}{"payment_id": p.ID}

	switch {
	case p.Kind == domain.PaymentDeposit:
		_, err = s.ledger.CreditWithTx(ctx, tx, u, p.Currency, p.Amount, Posting{Reason: domain.ReasonDeposit, Meta: meta})
	case !p.Reserved:
		_, err = s.ledger.DebitWithTx(ctx, tx, u, p.Currency, p.Amount, Posting{Reason: domain.ReasonWithdrawal, Meta: meta})
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	p.Status = domain.PaymentApproved
	p.ProcessedAt = &now
	if err := tx.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reject closes a pending payment, returning any reserved withdrawal amount.
func (s *Payments) Reject(ctx context.Context, id int64, reason string) (*domain.Payment, error) {
	var out *domain.Payment
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = s.RejectWithTx(ctx, tx, id, reason)
		return err
	})
	return out, err
}

func (s *Payments) RejectWithTx(ctx context.Context, tx repository.Tx, id int64, reason string) (*domain.Payment, error) {
	p, u, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Kind == domain.PaymentWithdrawal && p.Reserved {
		if _, err := s.ledger.CreditWithTx(ctx, tx, u, p.Currency, p.Amount,
			Posting{Reason: domain.ReasonWithdrawRefund, Meta: map[string]interface{}{"payment_id": p.ID}}); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	p.Status = domain.PaymentRejected
	p.AdminNotes = reason
	p.ProcessedAt = &now
	if err := tx.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Payments) lockPending(ctx context.Context, tx repository.Tx, id int64) (*domain.Payment, *domain.User, error) {
	// payments are only locked here, so payment-then-user cannot deadlock
	p, err := tx.PaymentForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	u, err := tx.UserForUpdate(ctx, p.UserID)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != domain.PaymentPending {
		return nil, nil, fmt.Errorf("%w: payment %d is %s", domain.ErrInvalidState, id, p.Status)
	}
	return p, u, nil
}

func (s *Payments) Pending(ctx context.Context) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.PendingPayments(ctx)
		return err
	})
	return out, err
}

func (s *Payments) History(ctx context.Context, userID int64, limit int) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.UserPayments(ctx, userID, limit)
		return err
	})
	return out, err
}
