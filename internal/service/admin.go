package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

// Admin provides operator actions. Every mutation is audited in the same
// transaction that applies it.
type Admin struct {
	store    repository.Store
	clock    clock.Clock
	ledger   *Ledger
	vip      *VIP
	payments *Payments
	audit    *Audit
}

func NewAdmin(store repository.Store, clk clock.Clock, ledger *Ledger, vip *VIP, payments *Payments, audit *Audit) *Admin {
	return &Admin{store: store, clock: clk, ledger: ledger, vip: vip, payments: payments, audit: audit}
}

// AdjustResource credits a positive amount or debits a negative one.
func (a *Admin) AdjustResource(ctx context.Context, actor string, userID int64, r domain.Resource, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: adjustment must be non-zero", domain.ErrValidation)
	}

	var bal decimal.Decimal
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		post := Posting{Reason: domain.ReasonAdmin, Meta: map[string]interface{}{"actor": actor}}
		if amount.Sign() > 0 {
			bal, err = a.ledger.CreditWithTx(ctx, tx, u, r, amount, post)
		} else {
			bal, err = a.ledger.DebitWithTx(ctx, tx, u, r, amount.Neg(), post)
		}
		if err != nil {
			return err
		}
		return a.audit.LogWithTx(ctx, tx, actor, userID, domain.AuditActionAdjustResource, domain.AuditCategoryAdmin,
			map[string]interface{}{"resource": string(r), "amount": amount.String(), "balance": bal.String()})
	})
	return bal, err
}

// SetVipTier overrides the user's tier; see VIP.SetTier.
func (a *Admin) SetVipTier(ctx context.Context, actor string, userID int64, tier int, expiresAt *time.Time) (*domain.User, error) {
	if tier < 0 || tier > domain.MaxVIPTier {
		return nil, fmt.Errorf("%w: vip tier must be 0..%d", domain.ErrValidation, domain.MaxVIPTier)
	}

	var out *domain.User
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		prev := u.VIPTier
		if out, err = a.vip.SetTierWithTx(ctx, tx, u, tier, expiresAt); err != nil {
			return err
		}
		details := map[string]interface{}{"from": prev, "to": tier}
		if out.VIPExpiresAt != nil {
			details["expires_at"] = out.VIPExpiresAt.Format(time.RFC3339)
		}
		return a.audit.LogWithTx(ctx, tx, actor, userID, domain.AuditActionSetVIPTier, domain.AuditCategoryAdmin, details)
	})
	return out, err
}

func (a *Admin) ApprovePayment(ctx context.Context, actor string, id int64) (*domain.Payment, error) {
	var out *domain.Payment
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if out, err = a.payments.ApproveWithTx(ctx, tx, id); err != nil {
			return err
		}
		action := domain.AuditActionDepositApprove
		if out.Kind == domain.PaymentWithdrawal {
			action = domain.AuditActionWithdrawApprove
		}
		return a.audit.LogWithTx(ctx, tx, actor, out.UserID, action, domain.AuditCategoryPayment,
			map[string]interface{}{"payment_id": id, "amount": out.Amount.String(), "currency": string(out.Currency)})
	})
	return out, err
}

func (a *Admin) RejectPayment(ctx context.Context, actor string, id int64, reason string) (*domain.Payment, error) {
	var out *domain.Payment
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if out, err = a.payments.RejectWithTx(ctx, tx, id, reason); err != nil {
			return err
		}
		action := domain.AuditActionDepositReject
		if out.Kind == domain.PaymentWithdrawal {
			action = domain.AuditActionWithdrawReject
		}
		return a.audit.LogWithTx(ctx, tx, actor, out.UserID, action, domain.AuditCategoryPayment,
			map[string]interface{}{"payment_id": id, "reason": reason})
	})
	return out, err
}

func (a *Admin) PendingPayments(ctx context.Context) ([]*domain.Payment, error) {
	return a.payments.Pending(ctx)
}

// Stats returns platform totals.
func (a *Admin) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	err := a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		st, err = tx.Stats(ctx, a.clock.Now())
		return err
	})
	return st, err
}

// FindUser looks a user up by internal id first, then by telegram id.
func (a *Admin) FindUser(ctx context.Context, identifier string) (*domain.User, error) {
	n, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %q is not a user id", domain.ErrValidation, identifier)
	}
	var u *domain.User
	err = a.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, n)
		if errors.Is(err, domain.ErrNotFound) {
			u, err = tx.UserByTgID(ctx, n)
		}
		return err
	})
	return u, err
}

func (a *Admin) AuditLog(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return a.audit.Recent(ctx, limit)
}
