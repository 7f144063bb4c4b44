package service

import (
	"errors"
	"testing"
	"time"

	"sbr_farm/internal/domain"
)

func TestPotatoGrowsForADay(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, nil)

	crop, err := f.crops.Plant(f.ctx, u.ID, 1, "potato")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	if got := f.user(t, u.ID).WaterDrops; got != 0 {
		t.Fatalf("water = %d after planting, want 0", got)
	}
	if n := f.items(t, u.ID, domain.ItemSeed, "potato"); n != 0 {
		t.Fatalf("potato seeds = %d after planting, want 0", n)
	}

	f.clock.Advance(23*time.Hour + 59*time.Minute)
	_, err = f.crops.Harvest(f.ctx, u.ID, crop.ID)
	wantKind(t, err, domain.ErrInvalidState)

	f.clock.Advance(time.Minute)
	res, err := f.crops.Harvest(f.ctx, u.ID, crop.ID)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if res.SBR != 100 {
		t.Fatalf("harvest paid %d, want 100", res.SBR)
	}
	if got := f.user(t, u.ID).SBRCoins; got != 100 {
		t.Fatalf("sbr = %d, want 100", got)
	}

	_, err = f.crops.Harvest(f.ctx, u.ID, crop.ID)
	wantKind(t, err, domain.ErrInvalidState)
}

func TestPlantFailureChangesNothing(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, nil)

	// no tomato seed in the starter kit
	_, err := f.crops.Plant(f.ctx, u.ID, 1, "tomato")
	wantKind(t, err, domain.ErrInsufficientResource)

	// seed present, water missing
	f.update(t, u.ID, func(u *domain.User) { u.WaterDrops = 5 })
	_, err = f.crops.Plant(f.ctx, u.ID, 1, "potato")
	wantKind(t, err, domain.ErrInsufficientResource)
	if n := f.items(t, u.ID, domain.ItemSeed, "potato"); n != 1 {
		t.Fatalf("seed debited by failed plant: have %d", n)
	}
	crops, _ := f.crops.ActiveCrops(f.ctx, u.ID)
	if len(crops) != 0 {
		t.Fatalf("failed plant left %d crops", len(crops))
	}
}

func TestPlantPatchRules(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.WaterDrops = 100 })
	if _, err := f.inv.Credit(f.ctx, u.ID, domain.ItemSeed, "potato", 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := f.crops.Plant(f.ctx, u.ID, 0, "potato")
	if err != nil || c.PatchNumber != 1 {
		t.Fatalf("auto patch: crop=%+v err=%v", c, err)
	}
	_, err = f.crops.Plant(f.ctx, u.ID, 1, "potato")
	wantKind(t, err, domain.ErrInvalidState)

	c, err = f.crops.Plant(f.ctx, u.ID, 0, "potato")
	if err != nil || c.PatchNumber != 2 {
		t.Fatalf("second auto patch: crop=%+v err=%v", c, err)
	}
	_, err = f.crops.Plant(f.ctx, u.ID, 4, "potato")
	wantKind(t, err, domain.ErrInvalidState)
	_, err = f.crops.Plant(f.ctx, u.ID, 1, "pumpkin")
	wantKind(t, err, domain.ErrValidation)
}

func TestBoosterBudget(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.Boosters = 10 })
	crop, err := f.crops.Plant(f.ctx, u.ID, 1, "potato")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}

	for i := 1; i <= 6; i++ {
		res, err := f.crops.ApplyBooster(f.ctx, u.ID, crop.ID, 1)
		if err != nil {
			t.Fatalf("booster %d: %v", i, err)
		}
		if res.Applied != 1 || res.Crop.BoostersUsed != i {
			t.Fatalf("booster %d: applied=%d used=%d", i, res.Applied, res.Crop.BoostersUsed)
		}
	}
	_, err = f.crops.ApplyBooster(f.ctx, u.ID, crop.ID, 1)
	wantKind(t, err, domain.ErrInvalidState)

	views, err := f.crops.ActiveCrops(f.ctx, u.ID)
	if err != nil || len(views) != 1 {
		t.Fatalf("active crops: %v %v", views, err)
	}
	if views[0].BoostersUsed != 6 {
		t.Fatalf("boostersUsed = %d, want 6", views[0].BoostersUsed)
	}
	if want := t0.Add(12 * time.Hour); !views[0].HarvestAt.Equal(want) {
		t.Fatalf("harvestAt = %s, want %s", views[0].HarvestAt, want)
	}
	if got := f.user(t, u.ID).Boosters; got != 4 {
		t.Fatalf("boosters = %d, want 4", got)
	}
}

func TestBoosterBatchIsTrimmed(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.Boosters = 10 })
	crop, _ := f.crops.Plant(f.ctx, u.ID, 1, "potato")

	res, err := f.crops.ApplyBooster(f.ctx, u.ID, crop.ID, 9)
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if res.Applied != 6 || res.Reduced != 12*time.Hour {
		t.Fatalf("applied=%d reduced=%s, want 6 and 12h", res.Applied, res.Reduced)
	}
	if got := f.user(t, u.ID).Boosters; got != 4 {
		t.Fatalf("boosters = %d, only applied ones should be spent", got)
	}

	_, err = f.crops.ApplyBooster(f.ctx, u.ID, crop.ID, 0)
	wantKind(t, err, domain.ErrValidation)
}

func TestBoosterOnReadyCrop(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.Boosters = 1 })
	crop, _ := f.crops.Plant(f.ctx, u.ID, 1, "potato")
	f.clock.Advance(24 * time.Hour)

	_, err := f.crops.ApplyBooster(f.ctx, u.ID, crop.ID, 1)
	wantKind(t, err, domain.ErrInvalidState)
	if got := f.user(t, u.ID).Boosters; got != 1 {
		t.Fatalf("booster spent on ready crop")
	}
}

func TestHarvestForeignCrop(t *testing.T) {
	f := newFixture(t)
	owner := f.newUser(t, nil)
	other := f.newUser(t, nil)
	crop, _ := f.crops.Plant(f.ctx, owner.ID, 1, "potato")
	f.clock.Advance(24 * time.Hour)

	_, err := f.crops.Harvest(f.ctx, other.ID, crop.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = f.crops.Harvest(f.ctx, owner.ID, 9999)
	wantKind(t, err, domain.ErrNotFound)
}

func TestHarvestAllReportsFailures(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.WaterDrops = 100 })
	f.inv.Credit(f.ctx, u.ID, domain.ItemSeed, "potato", 2)
	f.inv.Credit(f.ctx, u.ID, domain.ItemSeed, "tomato", 1)
	for p, crop := range []string{"potato", "potato", "tomato"} {
		if _, err := f.crops.Plant(f.ctx, u.ID, p+1, crop); err != nil {
			t.Fatalf("plant %s: %v", crop, err)
		}
	}
	f.clock.Advance(24 * time.Hour)

	var failed int64
	f.store.FailWhen(func(op string, args ...any) error {
		if op == "CropForUpdate" && failed == 0 {
			failed = args[0].(int64)
			return errors.New("disk on fire")
		}
		return nil
	})
	res, err := f.crops.HarvestAll(f.ctx, u.ID)
	f.store.FailWhen(nil)
	if err != nil {
		t.Fatalf("harvest all: %v", err)
	}
	if len(res.Harvested) != 1 || len(res.Failures) != 1 {
		t.Fatalf("harvested=%d failures=%d, want 1 and 1", len(res.Harvested), len(res.Failures))
	}
	if res.Failures[0].CropID != failed || res.Failures[0].Kind != "store_error" {
		t.Fatalf("failure = %+v", res.Failures[0])
	}
	if res.TotalSBR != 100 {
		t.Fatalf("total = %d, want 100", res.TotalSBR)
	}

	n, err := f.crops.CountReady(f.ctx)
	if err != nil || n != 1 {
		t.Fatalf("ready count = %d (%v), want 1", n, err)
	}
}
