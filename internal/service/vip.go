package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

const seedSuffix = "_seeds"

// VIP distributes tier benefits and manages subscriptions.
type VIP struct {
	store  repository.Store
	game   *config.Game
	clock  clock.Clock
	ledger *Ledger
	inv    *Inventory
}

func NewVIP(store repository.Store, game *config.Game, clk clock.Clock, ledger *Ledger, inv *Inventory) *VIP {
	return &VIP{store: store, game: game, clock: clk, ledger: ledger, inv: inv}
}

// DistributionReport summarizes one Distribute run.
type DistributionReport struct {
	Day     string `json:"day"`
	Users   int    `json:"users"`
	Granted int    `json:"granted"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

type dueBenefit struct {
	Type   string
	Amount int64
}

// Distribute grants today's benefits to every active VIP. Each (user, benefit)
// commits on its own and is keyed by the calendar day, so reruns on the same
// day grant nothing new. Per-user failures are logged and counted; the run
// stops early only when ctx is cancelled.
func (v *VIP) Distribute(ctx context.Context) (*DistributionReport, error) {
	now := v.clock.Now().UTC()
	today := clock.Day(now)
	report := &DistributionReport{Day: today.Format(time.DateOnly)}

	var ids []int64
	err := v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		ids, err = tx.ActiveVIPUserIDs(ctx, now)
		return err
	})
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++
		granted, skipped, err := v.distributeUser(ctx, id, now, today)
		report.Granted += granted
		report.Skipped += skipped
		if err != nil {
			report.Failed++
			logger.Warn("vip distribution failed", "user_id", id, "kind", domain.KindOf(err), "error", err)
		}
	}

	logger.Info("vip distribution finished", "day", report.Day, "users", report.Users,
		"granted", report.Granted, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// dueBenefits lists the tier's daily benefits plus the scheduled ones whose
// cycle lands on today, counted in days since the account was created.
func (v *VIP) dueBenefits(tier config.VIPTier, createdAt, today time.Time) []dueBenefit {
	due := make([]dueBenefit, 0, len(tier.Daily)+len(tier.Scheduled))
	for _, b := range tier.Daily {
		due = append(due, dueBenefit{Type: b.Type, Amount: b.Amount})
	}
	days := clock.DaysBetween(createdAt, today)
	for _, b := range tier.Scheduled {
		if days >= 0 && days%b.IntervalDays == 0 {
			due = append(due, dueBenefit{Type: b.Type, Amount: b.Amount})
		}
	}
	return due
}

func (v *VIP) distributeUser(ctx context.Context, userID int64, now, today time.Time) (granted, skipped int, err error) {
	var u *domain.User
	if err := v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, userID)
		return err
	}); err != nil {
		return 0, 0, err
	}

	tier, ok := v.game.Tier(u.VIPTier)
	if !ok || !u.VIPActive(now) {
		return 0, 0, nil
	}

	var errs []error
	for _, b := range v.dueBenefits(tier, u.CreatedAt, today) {
		applied, err := v.grant(ctx, userID, u.VIPTier, b, now, today)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", b.Type, err))
		case applied:
			granted++
		default:
			skipped++
		}
	}
	return granted, skipped, errors.Join(errs...)
}

// errGranted rolls back a benefit whose (user, benefit, day) fact already exists.
var errGranted = errors.New("benefit already granted")

// grant applies the benefit and records the (user, benefit, day) fact with the
// amount actually credited, in one transaction. applied is false when the fact
// already existed.
func (v *VIP) grant(ctx context.Context, userID int64, tierNum int, b dueBenefit, now, today time.Time) (applied bool, err error) {
	err = v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !u.VIPActive(now) || u.VIPTier != tierNum {
			return nil
		}

		credited, err := v.applyBenefitWithTx(ctx, tx, u, b.Type, b.Amount)
		if err != nil {
			return err
		}
		ok, err := tx.InsertGrant(ctx, &domain.VIPBenefitGrant{
			UserID:      userID,
			Tier:        tierNum,
			BenefitType: b.Type,
			Amount:      credited,
			GrantedOn:   today,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errGranted
		}
		applied = true
		return nil
	})
	if errors.Is(err, errGranted) {
		return false, nil
	}
	return applied, err
}

// applyBenefitWithTx routes seed benefits to Inventory and resource benefits
// to the Ledger. It returns the amount credited after any cap clamp.
func (v *VIP) applyBenefitWithTx(ctx context.Context, tx repository.Tx, u *domain.User, benefit string, amount int64) (int64, error) {
	if crop, ok := strings.CutSuffix(benefit, seedSuffix); ok {
		if _, err := v.inv.CreditWithTx(ctx, tx, u.ID, domain.ItemSeed, crop, amount); err != nil {
			return 0, err
		}
		return amount, nil
	}

	var r domain.Resource
	switch benefit {
	case "water_drops":
		r = domain.ResourceWater
	default:
		var ok bool
		if r, ok = domain.ParseResource(benefit); !ok {
			return 0, fmt.Errorf("%w: unknown benefit %q", domain.ErrValidation, benefit)
		}
	}
	before := u.Balance(r)
	after, err := v.ledger.CreditWithTx(ctx, tx, u, r, decimal.NewFromInt(amount),
		Posting{Reason: domain.ReasonVIPBenefit, Meta: map[string]interface{}{"benefit": benefit}})
	if err != nil {
		return 0, err
	}
	return after.Sub(before).IntPart(), nil
}

// Purchase buys tier for USDT. Renewing the active tier extends from the
// current expiry; any other purchase starts a fresh month from now.
func (v *VIP) Purchase(ctx context.Context, userID int64, tierNum int) (*domain.User, error) {
	tier, ok := v.game.Tier(tierNum)
	if !ok {
		return nil, fmt.Errorf("%w: unknown vip tier %d", domain.ErrValidation, tierNum)
	}

	var out *domain.User
	err := v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		now := v.clock.Now().UTC()
		if _, err := v.ledger.DebitWithTx(ctx, tx, u, domain.ResourceUSDT, tier.Price,
			Posting{Reason: domain.ReasonVIPPurchase, Meta: map[string]interface{}{"tier": tierNum}}); err != nil {
			return err
		}

		from := now
		if u.VIPActive(now) && u.VIPTier == tierNum {
			from = *u.VIPExpiresAt
		}
		exp := clock.AddMonth(from)
		u.VIPTier = tierNum
		u.VIPExpiresAt = &exp
		u.Patches += tier.Patches
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// SetTier overrides a user's tier. Tier 0 clears the expiry; a positive tier
// without expiresAt lasts the configured VIP duration.
func (v *VIP) SetTier(ctx context.Context, userID int64, tierNum int, expiresAt *time.Time) (*domain.User, error) {
	if tierNum < 0 || tierNum > domain.MaxVIPTier {
		return nil, fmt.Errorf("%w: vip tier must be 0..%d", domain.ErrValidation, domain.MaxVIPTier)
	}

	var out *domain.User
	err := v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		out, err = v.SetTierWithTx(ctx, tx, u, tierNum, expiresAt)
		return err
	})
	return out, err
}

func (v *VIP) SetTierWithTx(ctx context.Context, tx repository.Tx, u *domain.User, tierNum int, expiresAt *time.Time) (*domain.User, error) {
	u.VIPTier = tierNum
	switch {
	case tierNum == 0:
		u.VIPExpiresAt = nil
	case expiresAt != nil:
		exp := expiresAt.UTC()
		u.VIPExpiresAt = &exp
	default:
		exp := v.clock.Now().UTC().Add(v.game.VIPDuration)
		u.VIPExpiresAt = &exp
	}
	if err := tx.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ExtendWithTx grants tierNum for d without ever lowering an active tier: an
// active subscriber at the same or a higher tier keeps it and gains d on top
// of the current expiry.
func (v *VIP) ExtendWithTx(ctx context.Context, tx repository.Tx, u *domain.User, tierNum int, d time.Duration) error {
	now := v.clock.Now().UTC()
	if u.VIPActive(now) && u.VIPTier >= tierNum {
		exp := u.VIPExpiresAt.Add(d)
		u.VIPExpiresAt = &exp
	} else {
		exp := now.Add(d)
		u.VIPTier = tierNum
		u.VIPExpiresAt = &exp
	}
	return tx.UpdateUser(ctx, u)
}

// Grants lists the user's most recent benefit grants.
func (v *VIP) Grants(ctx context.Context, userID int64, limit int) ([]*domain.VIPBenefitGrant, error) {
	var out []*domain.VIPBenefitGrant
	err := v.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListGrants(ctx, userID, limit)
		return err
	})
	return out, err
}
