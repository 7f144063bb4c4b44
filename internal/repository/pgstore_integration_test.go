package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/migrations"
	"sbr_farm/internal/repository"
	"sbr_farm/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Integration-style test: runs only if DATABASE_URL env is set.
func TestPGStoreLedgerSerializesPerUser(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := repository.NewPGStore(db, 5*time.Second)
	game := config.DefaultGame()
	clk := clock.Real()
	ledger := service.NewLedger(store, game, clk)
	inv := service.NewInventory(store)
	players := service.NewPlayers(store, game, clk, ledger, inv)

	tgID := time.Now().UnixNano()
	u, created, err := players.Register(ctx, tgID, "it", "it")
	if err != nil || !created {
		t.Fatalf("register: created=%v err=%v", created, err)
	}
	if _, created, err := players.Register(ctx, tgID, "it", "it"); err != nil || created {
		t.Fatalf("second register: created=%v err=%v", created, err)
	}

	start, err := players.Wallet(ctx, u.ID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Credit(ctx, u.ID, domain.ResourceSBR, decimal.NewFromInt(5), domain.ReasonAdmin); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	w, err := players.Wallet(ctx, u.ID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.SBR != start.SBR+50 {
		t.Fatalf("sbr = %d, want %d", w.SBR, start.SBR+50)
	}

	_, err = ledger.Debit(ctx, u.ID, domain.ResourceSBR, decimal.NewFromInt(w.SBR+1), domain.ReasonAdmin)
	if !errors.Is(err, domain.ErrInsufficientResource) {
		t.Fatalf("overdraw: expected insufficient resource, got %v", err)
	}

	history, err := ledger.History(ctx, u.ID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	credits := 0
	for _, e := range history {
		if e.Reason == domain.ReasonAdmin {
			credits++
		}
	}
	if credits != 10 {
		t.Fatalf("journal has %d admin entries, want 10", credits)
	}
}
