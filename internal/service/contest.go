package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

// closeBeforeEnd is how long before the period boundary a contest closes.
const closeBeforeEnd = 30 * time.Minute

// Rand draws uniformly from [0, n).
type Rand interface {
	Intn(n int) (int, error)
}

type cryptoRand struct{}

func (cryptoRand) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Contests runs entry, qualification, rollover and prize settlement.
type Contests struct {
	store  repository.Store
	game   *config.Game
	clock  clock.Clock
	ledger *Ledger
	vip    *VIP
	rand   Rand
}

func NewContests(store repository.Store, game *config.Game, clk clock.Clock, ledger *Ledger, vip *VIP) *Contests {
	return &Contests{store: store, game: game, clock: clk, ledger: ledger, vip: vip, rand: cryptoRand{}}
}

// WithRand replaces the winner/prize random source.
func (s *Contests) WithRand(r Rand) *Contests {
	s.rand = r
	return s
}

type RolloverResult struct {
	Type           domain.ContestType      `json:"type"`
	ContestID      int64                   `json:"contest_id,omitempty"`
	Ended          bool                    `json:"ended"`
	Qualified      int                     `json:"qualified"`
	Winners        []*domain.ContestWinner `json:"winners"`
	Next           *domain.Contest         `json:"next,omitempty"`
	SettleFailures int                     `json:"settle_failures"`
}

func (s *Contests) params(t domain.ContestType) (config.ContestParams, error) {
	p, ok := s.game.Contest(t)
	if !ok {
		return p, fmt.Errorf("%w: unknown contest type %q", domain.ErrValidation, t)
	}
	return p, nil
}

// periodEnd returns when a contest starting at start closes: closeBeforeEnd
// ahead of the next period boundary (midnight UTC; weeks turn over on Tuesday).
// A contest opened mid-period therefore closes at the regular rollover.
func periodEnd(period string, start time.Time) time.Time {
	start = start.UTC()
	day := clock.Day(start)
	var boundary time.Time
	switch period {
	case config.PeriodWeek:
		boundary = day.AddDate(0, 0, (int(time.Tuesday)-int(day.Weekday())+7)%7)
	case config.PeriodMonth:
		boundary = clock.MonthStart(start)
	default:
		boundary = day
	}
	for !start.Before(boundary.Add(-closeBeforeEnd)) {
		switch period {
		case config.PeriodWeek:
			boundary = boundary.AddDate(0, 0, 7)
		case config.PeriodMonth:
			boundary = clock.AddMonth(boundary)
		default:
			boundary = boundary.AddDate(0, 0, 1)
		}
	}
	return boundary.Add(-closeBeforeEnd)
}

func (s *Contests) newContest(t domain.ContestType, p config.ContestParams, now time.Time) *domain.Contest {
	return &domain.Contest{
		Type:        t,
		EntryCost:   p.EntryCost,
		AdsRequired: p.AdsRequired,
		PrizeSpec:   p.PrizeSpec,
		StartAt:     now.UTC(),
		EndAt:       periodEnd(p.Period, now),
		Status:      domain.ContestActive,
	}
}

// openContest returns the active contest of t locked for update, failing with
// ErrInvalidState when none is open for entries.
func (s *Contests) openContest(ctx context.Context, tx repository.Tx, t domain.ContestType) (*domain.Contest, error) {
	c, err := tx.ActiveContest(ctx, t)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active %s contest", domain.ErrInvalidState, t)
	}
	if err != nil {
		return nil, err
	}
	if c, err = tx.ContestForUpdate(ctx, c.ID); err != nil {
		return nil, err
	}
	if c.Status != domain.ContestActive || !s.clock.Now().Before(c.EndAt) {
		return nil, fmt.Errorf("%w: %s contest %d is closed", domain.ErrInvalidState, t, c.ID)
	}
	return c, nil
}

// Enter joins the active contest of t, paying the entry fee.
func (s *Contests) Enter(ctx context.Context, userID int64, t domain.ContestType) (*domain.ContestEntry, error) {
	if _, err := s.params(t); err != nil {
		return nil, err
	}

	var entry *domain.ContestEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// contest row before user row, the order Rollover takes them in
		c, err := s.openContest(ctx, tx, t)
		if err != nil {
			return err
		}
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		entry = &domain.ContestEntry{ContestID: c.ID, UserID: userID, EnteredAt: s.clock.Now().UTC()}
		ok, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: already entered %s contest %d", domain.ErrConflict, t, c.ID)
		}

		if c.EntryCost > 0 {
			_, err = s.ledger.DebitWithTx(ctx, tx, u, domain.ResourceSBR, decimal.NewFromInt(c.EntryCost),
				Posting{Reason: domain.ReasonContestEntry, Meta: map[string]interface{}{"contest_id": c.ID}})
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordAdWatch counts one watched ad toward qualification.
func (s *Contests) RecordAdWatch(ctx context.Context, userID int64, t domain.ContestType) (*domain.ContestEntry, error) {
	if _, err := s.params(t); err != nil {
		return nil, err
	}

	var entry *domain.ContestEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := s.openContest(ctx, tx, t)
		if err != nil {
			return err
		}
		if entry, err = tx.EntryForUpdate(ctx, c.ID, userID); err != nil {
			return err
		}
		entry.AdsWatched++
		return tx.UpdateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Pending returns the active contest of t and its entry count.
func (s *Contests) Pending(ctx context.Context, t domain.ContestType) (*domain.PendingContest, error) {
	if _, err := s.params(t); err != nil {
		return nil, err
	}
	var out *domain.PendingContest
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.ActiveContest(ctx, t)
		if err != nil {
			return err
		}
		n, err := tx.CountEntries(ctx, c.ID)
		if err != nil {
			return err
		}
		out = &domain.PendingContest{Contest: c, Entries: n}
		return nil
	})
	return out, err
}

// EnsureActive opens a contest for every type that has none and returns the
// contests it created.
func (s *Contests) EnsureActive(ctx context.Context) ([]*domain.Contest, error) {
	var created []*domain.Contest
	for _, t := range domain.ContestTypes {
		p, err := s.params(t)
		if err != nil {
			return created, err
		}
		err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, err := tx.ActiveContest(ctx, t)
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			c := s.newContest(t, p, s.clock.Now())
			if err := tx.InsertContest(ctx, c); err != nil {
				return err
			}
			created = append(created, c)
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return created, err
		}
	}
	return created, nil
}

// Rollover ends the active contest of t once its end time has passed: winners
// are drawn and recorded, the contest is marked ended and the next period's
// contest opens, all in one transaction. Prizes are then settled one winner
// per transaction; a failed settlement stays pending for SettlePending.
func (s *Contests) Rollover(ctx context.Context, t domain.ContestType) (*RolloverResult, error) {
	p, err := s.params(t)
	if err != nil {
		return nil, err
	}
	res := &RolloverResult{Type: t, Winners: []*domain.ContestWinner{}}

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		active, err := tx.ActiveContest(ctx, t)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		c, err := tx.ContestForUpdate(ctx, active.ID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if c.Status != domain.ContestActive || now.Before(c.EndAt) {
			return nil
		}
		res.ContestID = c.ID

		pool, err := tx.QualifyingEntries(ctx, c.ID, c.AdsRequired)
		if err != nil {
			return err
		}
		res.Qualified = len(pool)

		picked, err := s.draw(pool, p.Winners)
		if err != nil {
			return err
		}
		for _, e := range picked {
			prize := p.Prizes[0]
			if len(p.Prizes) > 1 {
				i, err := s.rand.Intn(len(p.Prizes))
				if err != nil {
					return err
				}
				prize = p.Prizes[i]
			}
			w := &domain.ContestWinner{ContestID: c.ID, UserID: e.UserID, PrizeKind: prize.Kind, Amount: prize.Amount}
			if err := tx.InsertWinner(ctx, w); err != nil {
				return err
			}
			res.Winners = append(res.Winners, w)
		}

		c.Status = domain.ContestEnded
		if err := tx.UpdateContest(ctx, c); err != nil {
			return err
		}
		next := s.newContest(t, p, now)
		if err := tx.InsertContest(ctx, next); err != nil {
			return err
		}
		res.Next = next
		res.Ended = true

		return tx.InsertAudit(ctx, &domain.AuditLog{
			Action:   domain.AuditActionContestEnded,
			Category: domain.AuditCategoryContest,
			Details: map[string]interface{}{
				"contest_id": c.ID, "type": string(t), "qualified": len(pool), "winners": len(res.Winners), "next_id": next.ID,
			},
			Actor:     "scheduler",
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	for _, w := range res.Winners {
		if err := s.settle(ctx, w.ID); err != nil {
			res.SettleFailures++
			logger.Error("contest prize settlement failed", "winner_id", w.ID, "user_id", w.UserID,
				"contest_id", w.ContestID, "kind", domain.KindOf(err), "error", err)
			continue
		}
		w.Settled = true
	}
	if res.Ended {
		logger.Info("contest ended", "type", t, "contest_id", res.ContestID, "qualified", res.Qualified,
			"winners", len(res.Winners), "settle_failures", res.SettleFailures)
	}
	return res, nil
}

// draw picks min(n, len(pool)) entries uniformly without replacement.
func (s *Contests) draw(pool []*domain.ContestEntry, n int) ([]*domain.ContestEntry, error) {
	if n > len(pool) {
		n = len(pool)
	}
	cand := make([]*domain.ContestEntry, len(pool))
	copy(cand, pool)
	for i := 0; i < n; i++ {
		j, err := s.rand.Intn(len(cand) - i)
		if err != nil {
			return nil, err
		}
		cand[i], cand[i+j] = cand[i+j], cand[i]
	}
	return cand[:n], nil
}

// SettlePending retries every unsettled prize. It returns how many settled
// and how many failed again.
func (s *Contests) SettlePending(ctx context.Context) (settled, failed int, err error) {
	var pending []*domain.ContestWinner
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		pending, err = tx.UnsettledWinners(ctx, 500)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	for _, w := range pending {
		if err := ctx.Err(); err != nil {
			return settled, failed, err
		}
		if err := s.settle(ctx, w.ID); err != nil {
			failed++
			logger.Warn("contest prize retry failed", "winner_id", w.ID, "user_id", w.UserID, "error", err)
			continue
		}
		settled++
	}
	return settled, failed, nil
}

func (s *Contests) settle(ctx context.Context, winnerID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		w, err := tx.WinnerForUpdate(ctx, winnerID)
		if err != nil {
			return err
		}
		if w.Settled {
			return nil
		}
		u, err := tx.UserForUpdate(ctx, w.UserID)
		if err != nil {
			return err
		}

		post := Posting{Reason: domain.ReasonContestPrize, Meta: map[string]interface{}{"contest_id": w.ContestID}}
		switch w.PrizeKind {
		case domain.PrizeSBR:
			_, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceSBR, decimal.NewFromInt(w.Amount), post)
		case domain.PrizeWater:
			_, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceWater, decimal.NewFromInt(w.Amount), post)
		case domain.PrizeVIP:
			err = s.vip.ExtendWithTx(ctx, tx, u, int(w.Amount), s.game.VIPDuration)
		default:
			err = fmt.Errorf("%w: unknown prize kind %q", domain.ErrValidation, w.PrizeKind)
		}
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		w.Settled = true
		w.SettledAt = &now
		return tx.UpdateWinner(ctx, w)
	})
}
