package service

import (
	"errors"
	"testing"
	"time"

	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
)

func TestPeriodEnd(t *testing.T) {
	cases := []struct {
		name   string
		period string
		start  time.Time
		want   time.Time
	}{
		{"daily mid-day", config.PeriodDay, t0, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)},
		{"daily from rollover", config.PeriodDay, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC), time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC)},
		{"daily after rollover", config.PeriodDay, time.Date(2025, 3, 10, 23, 45, 0, 0, time.UTC), time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC)},
		{"weekly on monday", config.PeriodWeek, t0, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)},
		{"weekly from rollover", config.PeriodWeek, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC), time.Date(2025, 3, 17, 23, 30, 0, 0, time.UTC)},
		{"weekly mid-week", config.PeriodWeek, time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 23, 30, 0, 0, time.UTC)},
		{"weekly on tuesday", config.PeriodWeek, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 23, 30, 0, 0, time.UTC)},
		{"monthly before rollover on last day", config.PeriodMonth, time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)},
		{"monthly mid-month", config.PeriodMonth, t0, time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)},
		{"monthly from rollover", config.PeriodMonth, time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC), time.Date(2025, 4, 30, 23, 30, 0, 0, time.UTC)},
		{"monthly into february", config.PeriodMonth, time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC), time.Date(2025, 2, 28, 23, 30, 0, 0, time.UTC)},
		{"monthly across year", config.PeriodMonth, time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := periodEnd(tc.period, tc.start); !got.Equal(tc.want) {
			t.Fatalf("%s: end = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func contestFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	created, err := f.contests.EnsureActive(f.ctx)
	if err != nil || len(created) != len(domain.ContestTypes) {
		t.Fatalf("ensure active: %d created, %v", len(created), err)
	}
	return f
}

func watchAds(t *testing.T, f *fixture, userID int64, ct domain.ContestType, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := f.contests.RecordAdWatch(f.ctx, userID, ct); err != nil {
			t.Fatalf("ad %d: %v", i, err)
		}
	}
}

func TestEnsureActiveIsIdempotent(t *testing.T) {
	f := contestFixture(t)
	created, err := f.contests.EnsureActive(f.ctx)
	if err != nil || len(created) != 0 {
		t.Fatalf("second ensure created %d (%v)", len(created), err)
	}
	p, err := f.contests.Pending(f.ctx, domain.ContestDaily)
	if err != nil || p.Contest.EntryCost != 20 || p.Contest.AdsRequired != 5 || p.Entries != 0 {
		t.Fatalf("pending = %+v (%v)", p, err)
	}
}

func TestEnsureActiveAlignsToRollover(t *testing.T) {
	f := contestFixture(t)
	want := map[domain.ContestType]time.Time{
		domain.ContestDaily:   time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC),
		domain.ContestWeekly:  time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC),
		domain.ContestMonthly: time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC),
	}
	for ct, end := range want {
		p, err := f.contests.Pending(f.ctx, ct)
		if err != nil {
			t.Fatalf("%s pending: %v", ct, err)
		}
		if !p.Contest.StartAt.Equal(t0) || !p.Contest.EndAt.Equal(end) {
			t.Fatalf("%s runs %s..%s, want end %s", ct, p.Contest.StartAt, p.Contest.EndAt, end)
		}
	}

	f.clock.Advance(11*time.Hour + 30*time.Minute)
	res, err := f.contests.Rollover(f.ctx, domain.ContestDaily)
	if err != nil || !res.Ended {
		t.Fatalf("daily rollover at the first 23:30: ended=%v err=%v", res != nil && res.Ended, err)
	}
	if want := time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC); !res.Next.EndAt.Equal(want) {
		t.Fatalf("next daily ends %s, want %s", res.Next.EndAt, want)
	}
}

func TestEnterLocksContestBeforeUser(t *testing.T) {
	f := contestFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.SBRCoins = 50 })

	var ops []string
	f.store.FailWhen(func(op string, args ...any) error {
		if op == "ContestForUpdate" || op == "UserForUpdate" {
			ops = append(ops, op)
		}
		return nil
	})
	if _, err := f.contests.Enter(f.ctx, u.ID, domain.ContestDaily); err != nil {
		t.Fatalf("enter: %v", err)
	}
	f.store.FailWhen(nil)

	if len(ops) != 2 || ops[0] != "ContestForUpdate" || ops[1] != "UserForUpdate" {
		t.Fatalf("lock order = %v, want contest then user", ops)
	}
}

func TestEnterRules(t *testing.T) {
	f := contestFixture(t)
	poor := f.newUser(t, func(u *domain.User) { u.SBRCoins = 19 })
	u := f.newUser(t, func(u *domain.User) { u.SBRCoins = 50 })

	_, err := f.contests.Enter(f.ctx, poor.ID, domain.ContestDaily)
	wantKind(t, err, domain.ErrInsufficientResource)

	if _, err := f.contests.Enter(f.ctx, u.ID, domain.ContestDaily); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if got := f.user(t, u.ID).SBRCoins; got != 30 {
		t.Fatalf("sbr = %d after fee, want 30", got)
	}
	_, err = f.contests.Enter(f.ctx, u.ID, domain.ContestDaily)
	wantKind(t, err, domain.ErrConflict)
	if got := f.user(t, u.ID).SBRCoins; got != 30 {
		t.Fatalf("re-entry charged a fee: sbr = %d", got)
	}

	_, err = f.contests.RecordAdWatch(f.ctx, poor.ID, domain.ContestDaily)
	wantKind(t, err, domain.ErrNotFound)

	p, _ := f.contests.Pending(f.ctx, domain.ContestDaily)
	if p.Entries != 1 {
		t.Fatalf("entries = %d, want 1", p.Entries)
	}

	// closed by time, not yet rolled over
	f.clock.Advance(11*time.Hour + 30*time.Minute)
	_, err = f.contests.RecordAdWatch(f.ctx, u.ID, domain.ContestDaily)
	wantKind(t, err, domain.ErrInvalidState)
	_, err = f.contests.Enter(f.ctx, poor.ID, domain.ContestDaily)
	wantKind(t, err, domain.ErrInvalidState)
}

func TestEnterWithoutContest(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.SBRCoins = 50 })
	_, err := f.contests.Enter(f.ctx, u.ID, domain.ContestWeekly)
	wantKind(t, err, domain.ErrInvalidState)
	_, err = f.contests.Enter(f.ctx, u.ID, domain.ContestType("yearly"))
	wantKind(t, err, domain.ErrValidation)
}

func TestRolloverDrawsFromQualified(t *testing.T) {
	f := contestFixture(t)
	a := f.newUser(t, func(u *domain.User) { u.SBRCoins = 100 })
	b := f.newUser(t, func(u *domain.User) { u.SBRCoins = 100 })
	c := f.newUser(t, func(u *domain.User) { u.SBRCoins = 100 })
	for _, u := range []*domain.User{a, b, c} {
		if _, err := f.contests.Enter(f.ctx, u.ID, domain.ContestDaily); err != nil {
			t.Fatalf("enter: %v", err)
		}
	}
	watchAds(t, f, a.ID, domain.ContestDaily, 5)
	watchAds(t, f, b.ID, domain.ContestDaily, 6)
	watchAds(t, f, c.ID, domain.ContestDaily, 4)

	res, err := f.contests.Rollover(f.ctx, domain.ContestDaily)
	if err != nil || res.Ended {
		t.Fatalf("early rollover ended=%v err=%v", res != nil && res.Ended, err)
	}

	f.clock.Advance(23*time.Hour + 30*time.Minute)
	f.contests.WithRand(&fixedRand{vals: []int{1, 0}})
	res, err = f.contests.Rollover(f.ctx, domain.ContestDaily)
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if !res.Ended || res.Qualified != 2 || len(res.Winners) != 1 || res.SettleFailures != 0 {
		t.Fatalf("result = %+v", res)
	}
	w := res.Winners[0]
	if w.UserID != b.ID || w.PrizeKind != domain.PrizeSBR || w.Amount != 50 || !w.Settled {
		t.Fatalf("winner = %+v", w)
	}
	if got := f.user(t, b.ID).SBRCoins; got != 130 {
		t.Fatalf("winner sbr = %d, want 130", got)
	}
	if got := f.user(t, c.ID).SBRCoins; got != 80 {
		t.Fatalf("non-qualified sbr = %d, want 80", got)
	}

	next, err := f.contests.Pending(f.ctx, domain.ContestDaily)
	if err != nil || next.Contest.ID != res.Next.ID || next.Entries != 0 {
		t.Fatalf("next contest = %+v (%v)", next, err)
	}
	if !next.Contest.StartAt.Equal(f.clock.Now()) {
		t.Fatalf("next start = %s, want %s", next.Contest.StartAt, f.clock.Now())
	}

	// entering the new period works again
	if _, err := f.contests.Enter(f.ctx, a.ID, domain.ContestDaily); err != nil {
		t.Fatalf("enter next period: %v", err)
	}

	audit, _ := f.admin.AuditLog(f.ctx, 10)
	if len(audit) != 1 || audit[0].Action != domain.AuditActionContestEnded {
		t.Fatalf("audit = %+v", audit)
	}
}

func TestRolloverEmptyPool(t *testing.T) {
	f := contestFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.SBRCoins = 100 })
	f.contests.Enter(f.ctx, u.ID, domain.ContestWeekly)

	f.clock.Advance(7 * 24 * time.Hour)
	res, err := f.contests.Rollover(f.ctx, domain.ContestWeekly)
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if !res.Ended || res.Qualified != 0 || len(res.Winners) != 0 || res.Next == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestMonthlyVIPPrizeNeverDowngrades(t *testing.T) {
	f := contestFixture(t)
	plain := f.newUser(t, func(u *domain.User) { u.SBRCoins = 500 })
	exp := t0.Add(40 * 24 * time.Hour)
	gold := f.newUser(t, func(u *domain.User) {
		u.SBRCoins = 500
		u.VIPTier = 3
		u.VIPExpiresAt = &exp
	})
	for _, u := range []*domain.User{plain, gold} {
		if _, err := f.contests.Enter(f.ctx, u.ID, domain.ContestMonthly); err != nil {
			t.Fatalf("enter: %v", err)
		}
		watchAds(t, f, u.ID, domain.ContestMonthly, 100)
	}

	end := time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)
	f.clock.Advance(end.Sub(f.clock.Now()))
	res, err := f.contests.Rollover(f.ctx, domain.ContestMonthly)
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if len(res.Winners) != 2 {
		t.Fatalf("winners = %d, want the whole pool of 2", len(res.Winners))
	}

	p := f.user(t, plain.ID)
	if want := end.Add(f.game.VIPDuration); p.VIPTier != 1 || !p.VIPExpiresAt.Equal(want) {
		t.Fatalf("plain winner tier=%d exp=%v", p.VIPTier, p.VIPExpiresAt)
	}
	g := f.user(t, gold.ID)
	if want := exp.Add(f.game.VIPDuration); g.VIPTier != 3 || !g.VIPExpiresAt.Equal(want) {
		t.Fatalf("tier 3 winner tier=%d exp=%v", g.VIPTier, g.VIPExpiresAt)
	}
	if !res.Next.EndAt.Equal(time.Date(2025, 4, 30, 23, 30, 0, 0, time.UTC)) {
		t.Fatalf("next monthly ends %s", res.Next.EndAt)
	}
}

func TestSettlementRetry(t *testing.T) {
	f := contestFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.SBRCoins = 100 })
	f.contests.Enter(f.ctx, u.ID, domain.ContestDaily)
	watchAds(t, f, u.ID, domain.ContestDaily, 5)
	f.clock.Advance(24 * time.Hour)

	f.store.FailWhen(func(op string, args ...any) error {
		if op == "WinnerForUpdate" {
			return errors.New("timeout")
		}
		return nil
	})
	res, err := f.contests.Rollover(f.ctx, domain.ContestDaily)
	if err != nil {
		t.Fatalf("rollover must not fail on settlement: %v", err)
	}
	if !res.Ended || res.SettleFailures != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got := f.user(t, u.ID).SBRCoins; got != 80 {
		t.Fatalf("prize paid despite failure: sbr = %d", got)
	}

	settled, failed, err := f.contests.SettlePending(f.ctx)
	if err != nil || settled != 0 || failed != 1 {
		t.Fatalf("retry while failing: settled=%d failed=%d err=%v", settled, failed, err)
	}

	f.store.FailWhen(nil)
	settled, failed, err = f.contests.SettlePending(f.ctx)
	if err != nil || settled != 1 || failed != 0 {
		t.Fatalf("retry: settled=%d failed=%d err=%v", settled, failed, err)
	}
	if got := f.user(t, u.ID).SBRCoins; got != 130 {
		t.Fatalf("sbr = %d after settlement, want 130", got)
	}

	settled, _, _ = f.contests.SettlePending(f.ctx)
	if settled != 0 {
		t.Fatalf("prize settled twice")
	}
}
