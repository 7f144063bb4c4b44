package action

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository/memory"
	"sbr_farm/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.InitWriter(io.Discard, "error", false)
	os.Exit(m.Run())
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		in   string
		want Action
	}{
		{"plant_potato", Action{Kind: KindPlant, CropType: "potato"}},
		{"plant_2_carrot", Action{Kind: KindPlant, Patch: 2, CropType: "carrot"}},
		{"harvest_14", Action{Kind: KindHarvest, CropID: 14}},
		{"harvest_all", Action{Kind: KindHarvestAll}},
		{"boost_14", Action{Kind: KindBoost, CropID: 14, Count: 1}},
		{"boost_14_3", Action{Kind: KindBoost, CropID: 14, Count: 3}},
		{"contest_enter_weekly", Action{Kind: KindContestEnter, Contest: domain.ContestWeekly}},
		{"contest_ad_daily", Action{Kind: KindContestAd, Contest: domain.ContestDaily}},
		{"daily_claim", Action{Kind: KindDailyClaim}},
		{"watch_ad", Action{Kind: KindWatchAd}},
		{"task_watch_ad", Action{Kind: KindWatchAd}},
		{"vip_buy_3", Action{Kind: KindVIPBuy, Tier: 3}},
		{"buy_seed_tomato", Action{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopSeed, Name: "tomato", Quantity: 1}}},
		{"buy_seed_potato_4", Action{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopSeed, Name: "potato", Quantity: 4}}},
		{"buy_booster_usdt_5", Action{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopBooster, Quantity: 5, Currency: domain.ResourceUSDT}}},
		{"buy_patch_sbr_1", Action{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopPatchPart, Quantity: 1, Currency: domain.ResourceSBR}}},
	}
	for _, tc := range cases {
		got, err := ParseCallback(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got.Kind != tc.want.Kind || got.Patch != tc.want.Patch || got.CropType != tc.want.CropType ||
			got.CropID != tc.want.CropID || got.Count != tc.want.Count || got.Contest != tc.want.Contest ||
			got.Tier != tc.want.Tier || got.Purchase != tc.want.Purchase {
			t.Fatalf("%s: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseConvert(t *testing.T) {
	for _, in := range []string{"convert_sbr_usdt_200", "execute_convert_sbr_usdt_200"} {
		a, err := ParseCallback(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if a.Kind != KindConvert || a.From != domain.ResourceSBR || a.To != domain.ResourceUSDT || !a.Amount.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("%s: %+v", in, a)
		}
	}
	a, err := ParseCallback("convert_water_heavy_100")
	if err != nil || a.To != domain.ResourceHeavyWater {
		t.Fatalf("water->heavy: %+v %v", a, err)
	}
}

func TestParseCallbackRejects(t *testing.T) {
	for _, in := range []string{
		"", "farm", "plant", "plant_x_potato", "harvest_abc", "harvest_-1", "boost_3_0",
		"contest_enter_yearly", "vip_buy_9", "convert_gold_sbr_1", "convert_sbr_usdt_lots",
		"buy_tractor_sbr_1", "buy_water_eur_1", "buy_seed_potato_0", "sell_crop_potato_1",
	} {
		_, err := ParseCallback(in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", in, err)
		}
	}
}

func TestValidateJSONActions(t *testing.T) {
	bad := []Action{
		{Kind: "teleport"},
		{Kind: KindHarvest},
		{Kind: KindBoost, CropID: 1},
		{Kind: KindConvert, From: domain.ResourceSBR, To: domain.ResourceUSDT},
		{Kind: KindContestAd, Contest: "hourly"},
		{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopWater}},
	}
	for _, a := range bad {
		if err := a.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", a, err)
		}
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	game := config.DefaultGame()
	ledger := service.NewLedger(store, game, clk)
	inv := service.NewInventory(store)
	crops := service.NewCrops(store, game, clk, ledger, inv)
	vip := service.NewVIP(store, game, clk, ledger, inv)
	players := service.NewPlayers(store, game, clk, ledger, inv)
	d := NewDispatcher(crops, ledger, service.NewContests(store, game, clk, ledger, vip), players,
		service.NewShop(store, game, ledger, inv), vip)

	u, _, err := players.Register(ctx, 77, "bob", "Bob")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	run := func(data string) (any, error) {
		a, err := ParseCallback(data)
		if err != nil {
			t.Fatalf("parse %s: %v", data, err)
		}
		return d.Dispatch(ctx, u.ID, a)
	}

	res, err := run("plant_potato")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	crop, ok := res.(*domain.Crop)
	if !ok || crop.PatchNumber != 1 {
		t.Fatalf("plant result = %#v", res)
	}

	if _, err := run("daily_claim"); err != nil {
		t.Fatalf("daily claim: %v", err)
	}
	_, err = run("daily_claim")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second claim: %v", err)
	}

	clk.Advance(24 * time.Hour)
	res, err = run("harvest_all")
	if err != nil {
		t.Fatalf("harvest all: %v", err)
	}
	if hr := res.(*service.HarvestAllResult); hr.TotalSBR != 100 {
		t.Fatalf("harvest all = %+v", hr)
	}

	if _, err := run("buy_seed_potato_2"); err != nil {
		t.Fatalf("buy seeds: %v", err)
	}
	res, err = run("task_watch_ad")
	if r, ok := res.(*service.AdReward); err != nil || !ok || r.Credited != 1 || r.Water != 11 {
		t.Fatalf("watch ad: %#v %v", res, err)
	}
	if _, err := run("watch_ad"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ad inside cooldown: %v", err)
	}

	if _, err := d.Dispatch(ctx, u.ID, Action{Kind: "teleport"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown kind: %v", err)
	}
}
