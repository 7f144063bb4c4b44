package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/domain"
)

func vipUser(t *testing.T, f *fixture, tier int) *domain.User {
	t.Helper()
	exp := f.clock.Now().Add(30 * 24 * time.Hour)
	return f.newUser(t, func(u *domain.User) {
		u.VIPTier = tier
		u.VIPExpiresAt = &exp
	})
}

func TestDistributeIsIdempotentPerDay(t *testing.T) {
	f := newFixture(t)
	u := vipUser(t, f, 2)

	rep, err := f.vip.Distribute(f.ctx)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// tier 2 on day 0: parts, potato seeds, water daily plus tomato seeds every 2 days
	if rep.Users != 1 || rep.Granted != 4 || rep.Failed != 0 {
		t.Fatalf("first run = %+v", rep)
	}

	rep, err = f.vip.Distribute(f.ctx)
	if err != nil {
		t.Fatalf("second distribute: %v", err)
	}
	if rep.Granted != 0 || rep.Skipped != 4 {
		t.Fatalf("second run = %+v, want nothing granted", rep)
	}

	got := f.user(t, u.ID)
	if got.WaterDrops != 20 || got.PatchParts != 5 {
		t.Fatalf("water=%d parts=%d, want 20 and 5", got.WaterDrops, got.PatchParts)
	}
	if n := f.items(t, u.ID, domain.ItemSeed, "potato"); n != 3 {
		t.Fatalf("potato seeds = %d, want 3", n)
	}
	if n := f.items(t, u.ID, domain.ItemSeed, "tomato"); n != 1 {
		t.Fatalf("tomato seeds = %d, want 1", n)
	}

	grants, err := f.vip.Grants(f.ctx, u.ID, 50)
	if err != nil || len(grants) != 4 {
		t.Fatalf("grants = %d (%v), want 4", len(grants), err)
	}
	seen := map[string]bool{}
	for _, g := range grants {
		key := g.BenefitType + "@" + g.GrantedOn.Format(time.DateOnly)
		if seen[key] {
			t.Fatalf("duplicate grant %s", key)
		}
		seen[key] = true
	}
}

func TestGrantRecordsClampedAmount(t *testing.T) {
	f := newFixture(t)
	u := vipUser(t, f, 2)
	f.update(t, u.ID, func(u *domain.User) { u.WaterDrops = 95 })

	waterGrant := func(day time.Time) *domain.VIPBenefitGrant {
		t.Helper()
		grants, err := f.vip.Grants(f.ctx, u.ID, 50)
		if err != nil {
			t.Fatalf("grants: %v", err)
		}
		for _, g := range grants {
			if g.BenefitType == "water_drops" && g.GrantedOn.Equal(day) {
				return g
			}
		}
		t.Fatalf("no water grant on %s", day.Format(time.DateOnly))
		return nil
	}

	if _, err := f.vip.Distribute(f.ctx); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := f.user(t, u.ID).WaterDrops; got != 100 {
		t.Fatalf("water = %d, want capped 100", got)
	}
	if g := waterGrant(clock.Day(t0)); g.Amount != 5 {
		t.Fatalf("day 0 grant amount = %d, want 5 actually credited", g.Amount)
	}

	f.clock.Advance(24 * time.Hour)
	if _, err := f.vip.Distribute(f.ctx); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if g := waterGrant(clock.Day(f.clock.Now())); g.Amount != 0 {
		t.Fatalf("day 1 grant amount = %d, want 0 at the cap", g.Amount)
	}
	if g := waterGrant(clock.Day(t0)); g.Amount != 5 {
		t.Fatalf("day 0 grant rewritten: %d", g.Amount)
	}
}

func TestScheduledBenefitCycle(t *testing.T) {
	f := newFixture(t)
	u := vipUser(t, f, 2)

	wantTomato := []int64{1, 1, 2, 2}
	for day, want := range wantTomato {
		if _, err := f.vip.Distribute(f.ctx); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		if n := f.items(t, u.ID, domain.ItemSeed, "tomato"); n != want {
			t.Fatalf("day %d: tomato seeds = %d, want %d", day, n, want)
		}
		f.clock.Advance(24 * time.Hour)
	}
}

func TestDistributeSkipsInactive(t *testing.T) {
	f := newFixture(t)
	expired := f.clock.Now().Add(-time.Hour)
	f.newUser(t, func(u *domain.User) {
		u.VIPTier = 3
		u.VIPExpiresAt = &expired
	})
	f.newUser(t, nil)

	rep, err := f.vip.Distribute(f.ctx)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if rep.Users != 0 || rep.Granted != 0 {
		t.Fatalf("report = %+v, want no users", rep)
	}
}

func TestDistributeIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	bad := vipUser(t, f, 1)
	good := vipUser(t, f, 1)

	f.store.FailWhen(func(op string, args ...any) error {
		if op == "InsertGrant" && args[0].(int64) == bad.ID {
			return errors.New("connection reset")
		}
		return nil
	})
	rep, err := f.vip.Distribute(f.ctx)
	f.store.FailWhen(nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if rep.Users != 2 || rep.Failed != 1 || rep.Granted != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if n := f.items(t, good.ID, domain.ItemSeed, "potato"); n != 3 {
		t.Fatalf("good user potato seeds = %d, want 3", n)
	}
	if n := f.items(t, bad.ID, domain.ItemSeed, "potato"); n != 1 {
		t.Fatalf("failed user got seeds anyway: %d", n)
	}

	// the failed user is picked up by a rerun the same day
	rep, _ = f.vip.Distribute(f.ctx)
	if rep.Granted != 1 || rep.Skipped != 1 {
		t.Fatalf("rerun = %+v", rep)
	}
}

func TestDistributeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	vipUser(t, f, 1)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	if _, err := f.vip.Distribute(ctx); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestPurchaseAndRenew(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.USDTBalance = dec("40") })

	got, err := f.vip.Purchase(f.ctx, u.ID, 2)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	firstExp := clock.AddMonth(t0)
	if got.VIPTier != 2 || !got.VIPExpiresAt.Equal(firstExp) || got.Patches != 4 {
		t.Fatalf("after purchase tier=%d exp=%v patches=%d", got.VIPTier, got.VIPExpiresAt, got.Patches)
	}

	got, err = f.vip.Purchase(f.ctx, u.ID, 2)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if want := clock.AddMonth(firstExp); !got.VIPExpiresAt.Equal(want) {
		t.Fatalf("renewal expiry = %v, want %v", got.VIPExpiresAt, want)
	}
	if !f.user(t, u.ID).USDTBalance.Equal(dec("10")) {
		t.Fatalf("usdt = %s, want 10", f.user(t, u.ID).USDTBalance)
	}

	_, err = f.vip.Purchase(f.ctx, u.ID, 3)
	wantKind(t, err, domain.ErrInsufficientResource)
	_, err = f.vip.Purchase(f.ctx, u.ID, 9)
	wantKind(t, err, domain.ErrValidation)
}

func TestSetTier(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, nil)

	got, err := f.vip.SetTier(f.ctx, u.ID, 3, nil)
	if err != nil {
		t.Fatalf("set tier: %v", err)
	}
	if want := t0.Add(f.game.VIPDuration); got.VIPTier != 3 || !got.VIPExpiresAt.Equal(want) {
		t.Fatalf("tier=%d exp=%v", got.VIPTier, got.VIPExpiresAt)
	}

	got, err = f.vip.SetTier(f.ctx, u.ID, 0, nil)
	if err != nil || got.VIPTier != 0 || got.VIPExpiresAt != nil {
		t.Fatalf("clear tier: %+v %v", got, err)
	}

	_, err = f.vip.SetTier(f.ctx, u.ID, 5, nil)
	wantKind(t, err, domain.ErrValidation)
}
