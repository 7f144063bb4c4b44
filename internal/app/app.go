// Package app wires the store, services and scheduler shared by farmd and
// farmctl.
package app

import (
	"sbr_farm/internal/action"
	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/repository"
	"sbr_farm/internal/scheduler"
	"sbr_farm/internal/service"

	"github.com/go-co-op/gocron/v2"
)

type Services struct {
	Store    repository.Store
	Game     *config.Game
	Clock    clock.Clock
	Ledger   *service.Ledger
	Inv      *service.Inventory
	Crops    *service.Crops
	VIP      *service.VIP
	Contests *service.Contests
	Shop     *service.Shop
	Payments *service.Payments
	Players  *service.Players
	Audit    *service.Audit
	Admin    *service.Admin
	Actions  *action.Dispatcher
}

// Build constructs every service over store. reservation is the withdrawal
// reservation policy (config.ReserveOnRequest or ReserveOnApproval).
func Build(store repository.Store, game *config.Game, clk clock.Clock, reservation string) *Services {
	s := &Services{Store: store, Game: game, Clock: clk}
	s.Ledger = service.NewLedger(store, game, clk)
	s.Inv = service.NewInventory(store)
	s.Crops = service.NewCrops(store, game, clk, s.Ledger, s.Inv)
	s.VIP = service.NewVIP(store, game, clk, s.Ledger, s.Inv)
	s.Contests = service.NewContests(store, game, clk, s.Ledger, s.VIP)
	s.Shop = service.NewShop(store, game, s.Ledger, s.Inv)
	s.Payments = service.NewPayments(store, game, clk, s.Ledger, reservation)
	s.Players = service.NewPlayers(store, game, clk, s.Ledger, s.Inv)
	s.Audit = service.NewAudit(store, clk)
	s.Admin = service.NewAdmin(store, clk, s.Ledger, s.VIP, s.Payments, s.Audit)
	s.Actions = action.NewDispatcher(s.Crops, s.Ledger, s.Contests, s.Players, s.Shop, s.VIP)
	return s
}

// Scheduler returns a stopped loop over the services. locker may be nil.
func (s *Services) Scheduler(locker gocron.Locker) *scheduler.Loop {
	return scheduler.New(s.Crops, s.VIP, s.Contests, s.Clock, locker, scheduler.DefaultSchedule())
}
