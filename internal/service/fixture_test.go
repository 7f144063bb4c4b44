package service

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"
	"sbr_farm/internal/repository/memory"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.InitWriter(io.Discard, "error", false)
	os.Exit(m.Run())
}

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fixedRand replays vals in order (modulo n), returning 0 once exhausted.
type fixedRand struct {
	vals []int
	i    int
}

func (r *fixedRand) Intn(n int) (int, error) {
	if r.i >= len(r.vals) {
		return 0, nil
	}
	v := r.vals[r.i] % n
	r.i++
	return v, nil
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	clock *clockwork.FakeClock
	game  *config.Game

	ledger   *Ledger
	inv      *Inventory
	crops    *Crops
	vip      *VIP
	contests *Contests
	shop     *Shop
	payments *Payments
	players  *Players
	admin    *Admin

	tg atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, config.ReserveOnRequest)
}

func newFixtureWith(t *testing.T, reservation string) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		clock: clockwork.NewFakeClockAt(t0),
		game:  config.DefaultGame(),
	}
	f.ledger = NewLedger(f.store, f.game, f.clock)
	f.inv = NewInventory(f.store)
	f.crops = NewCrops(f.store, f.game, f.clock, f.ledger, f.inv)
	f.vip = NewVIP(f.store, f.game, f.clock, f.ledger, f.inv)
	f.contests = NewContests(f.store, f.game, f.clock, f.ledger, f.vip).WithRand(&fixedRand{})
	f.shop = NewShop(f.store, f.game, f.ledger, f.inv)
	f.payments = NewPayments(f.store, f.game, f.clock, f.ledger, reservation)
	f.players = NewPlayers(f.store, f.game, f.clock, f.ledger, f.inv)
	f.admin = NewAdmin(f.store, f.clock, f.ledger, f.vip, f.payments, NewAudit(f.store, f.clock))
	return f
}

// newUser registers a fresh player with the starter kit and applies mut.
func (f *fixture) newUser(t *testing.T, mut func(u *domain.User)) *domain.User {
	t.Helper()
	u, created, err := f.players.Register(f.ctx, 1000+f.tg.Add(1), "player", "Player")
	if err != nil || !created {
		t.Fatalf("register: created=%v err=%v", created, err)
	}
	if mut != nil {
		f.update(t, u.ID, mut)
	}
	return f.user(t, u.ID)
}

func (f *fixture) update(t *testing.T, id int64, mut func(u *domain.User)) {
	t.Helper()
	err := f.store.InTx(f.ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, id)
		if err != nil {
			return err
		}
		mut(u)
		return tx.UpdateUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("update user %d: %v", id, err)
	}
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := f.players.Profile(f.ctx, id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

func (f *fixture) items(t *testing.T, id int64, itemType domain.ItemType, name string) int64 {
	t.Helper()
	list, err := f.inv.List(f.ctx, id)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, e := range list {
		if e.ItemType == itemType && e.ItemName == name {
			return e.Quantity
		}
	}
	return 0
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func wantKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if domain.KindOf(err) != domain.KindOf(kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
