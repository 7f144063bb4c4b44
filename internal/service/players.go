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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Players owns registration, the daily login reward and profile reads.
type Players struct {
	store  repository.Store
	game   *config.Game
	clock  clock.Clock
	ledger *Ledger
	inv    *Inventory
}

func NewPlayers(store repository.Store, game *config.Game, clk clock.Clock, ledger *Ledger, inv *Inventory) *Players {
	return &Players{store: store, game: game, clock: clk, ledger: ledger, inv: inv}
}

func newReferralCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Register returns the user for tgID, creating it with the starter kit on
// first sight. created reports whether a new account was made.
func (s *Players) Register(ctx context.Context, tgID int64, username, firstName string) (u *domain.User, created bool, err error) {
	if tgID <= 0 {
		return nil, false, fmt.Errorf("%w: tg_id must be positive", domain.ErrValidation)
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.UserByTgID(ctx, tgID)
		if err == nil {
			u = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		u = &domain.User{
			TgID:         tgID,
			Username:     username,
			FirstName:    firstName,
			ReferralCode: newReferralCode(),
			WaterDrops:   s.game.Starter.Water,
			Patches:      s.game.Starter.Patches,
			USDTBalance:  decimal.Zero,
			TONBalance:   decimal.Zero,
			CreatedAt:    s.clock.Now().UTC(),
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		for crop, n := range s.game.Starter.Seeds {
			if _, err := s.inv.CreditWithTx(ctx, tx, u.ID, domain.ItemSeed, crop, n); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		// lost a registration race; the other insert won
		return s.ByTgID(ctx, tgID)
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.Info("user registered", "user_id", u.ID, "tg_id", tgID)
	}
	return u, created, nil
}

func (s *Players) ByTgID(ctx context.Context, tgID int64) (*domain.User, bool, error) {
	var u *domain.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		u, err = tx.UserByTgID(ctx, tgID)
		return err
	})
	return u, false, err
}

// ClaimDailyLogin grants the daily water reward once per UTC day.
func (s *Players) ClaimDailyLogin(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if u.LastDailyClaim != nil && clock.Day(*u.LastDailyClaim).Equal(clock.Day(now)) {
			return fmt.Errorf("%w: daily reward already claimed", domain.ErrConflict)
		}
		u.LastDailyClaim = &now
		bal, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceWater, decimal.NewFromInt(s.game.DailyLoginWater),
			Posting{Reason: domain.ReasonDailyLogin})
		return err
	})
	return bal, err
}

// AdReward is the outcome of one rewarded ad view.
type AdReward struct {
	Credited int64     `json:"credited"`
	Water    int64     `json:"water"`
	NextAdAt time.Time `json:"next_ad_at"`
}

// WatchAd credits the ad reward in water. A view inside the cooldown fails
// with ErrInvalidState. At the water cap the view still counts but credits
// nothing.
func (s *Players) WatchAd(ctx context.Context, userID int64) (*AdReward, error) {
	var res *AdReward
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if u.LastAdWatch != nil {
			if next := u.LastAdWatch.Add(s.game.AdWatchCooldown); now.Before(next) {
				return fmt.Errorf("%w: next ad available in %s", domain.ErrInvalidState, next.Sub(now).Round(time.Second))
			}
		}

		before := u.WaterDrops
		u.LastAdWatch = &now
		bal, err := s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceWater, decimal.NewFromInt(s.game.AdWatchWater),
			Posting{Reason: domain.ReasonAdWatch})
		if err != nil {
			return err
		}
		res = &AdReward{
			Credited: bal.IntPart() - before,
			Water:    bal.IntPart(),
			NextAdAt: now.Add(s.game.AdWatchCooldown),
		}
		return nil
	})
	return res, err
}

func (s *Players) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	var u *domain.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, userID)
		return err
	})
	return u, err
}

// Wallet returns the user's balances.
func (s *Players) Wallet(ctx context.Context, userID int64) (domain.Wallet, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return domain.Wallet{}, err
	}
	return u.Wallet(), nil
}
