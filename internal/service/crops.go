package service

import (
	"context"
	"fmt"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

// Crops runs the crop state machine. Locks are always taken user row first,
// then crop row.
type Crops struct {
	store  repository.Store
	game   *config.Game
	clock  clock.Clock
	ledger *Ledger
	inv    *Inventory
}

func NewCrops(store repository.Store, game *config.Game, clk clock.Clock, ledger *Ledger, inv *Inventory) *Crops {
	return &Crops{store: store, game: game, clock: clk, ledger: ledger, inv: inv}
}

type BoostResult struct {
	Crop    *domain.Crop  `json:"crop"`
	Applied int           `json:"applied"`
	Reduced time.Duration `json:"reduced"`
}

type HarvestResult struct {
	CropID      int64  `json:"crop_id"`
	CropType    string `json:"crop_type"`
	PatchNumber int    `json:"patch_number"`
	SBR         int64  `json:"sbr"`
}

type HarvestFailure struct {
	CropID int64  `json:"crop_id"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

type HarvestAllResult struct {
	Harvested []HarvestResult  `json:"harvested"`
	Failures  []HarvestFailure `json:"failures,omitempty"`
	TotalSBR  int64            `json:"total_sbr"`
}

// Plant sows cropType on patchNumber, or on the lowest free patch when
// patchNumber is 0. Seed, water and the new crop commit together.
func (s *Crops) Plant(ctx context.Context, userID int64, patchNumber int, cropType string) (*domain.Crop, error) {
	info, ok := s.game.Crop(cropType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown crop %q", domain.ErrValidation, cropType)
	}
	if patchNumber < 0 {
		return nil, fmt.Errorf("%w: invalid patch %d", domain.ErrValidation, patchNumber)
	}

	var crop *domain.Crop
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		active, err := tx.ActiveCrops(ctx, userID)
		if err != nil {
			return err
		}
		occupied := make(map[int]bool, len(active))
		for _, c := range active {
			occupied[c.PatchNumber] = true
		}

		patch := patchNumber
		if patch == 0 {
			for p := 1; p <= u.Patches; p++ {
				if !occupied[p] {
					patch = p
					break
				}
			}
			if patch == 0 {
				return fmt.Errorf("%w: no free patch", domain.ErrInvalidState)
			}
		}
		if patch > u.Patches {
			return fmt.Errorf("%w: patch %d not owned (have %d)", domain.ErrInvalidState, patch, u.Patches)
		}
		if occupied[patch] {
			return fmt.Errorf("%w: patch %d is occupied", domain.ErrInvalidState, patch)
		}

		if _, err := s.inv.DebitWithTx(ctx, tx, userID, domain.ItemSeed, cropType, 1); err != nil {
			return err
		}
		meta := map[string]interface{}{"crop_type": cropType, "patch": patch}
		if _, err := s.ledger.DebitWithTx(ctx, tx, u, info.WaterType, decimal.NewFromInt(info.WaterCost),
			Posting{Reason: domain.ReasonPlant, Meta: meta}); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		crop = &domain.Crop{
			UserID:      userID,
			PatchNumber: patch,
			CropType:    cropType,
			PlantedAt:   now,
			HarvestAt:   now.Add(info.GrowthTime),
		}
		return tx.InsertCrop(ctx, crop)
	})
	if err != nil {
		return nil, err
	}
	return crop, nil
}

// lockOwnedCrop locks the crop and hides crops of other users.
func lockOwnedCrop(ctx context.Context, tx repository.Tx, userID, cropID int64) (*domain.Crop, error) {
	c, err := tx.CropForUpdate(ctx, cropID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("%w: crop %d", domain.ErrNotFound, cropID)
	}
	return c, nil
}

// ApplyBooster pulls harvestAt forward by count boosters. Boosters beyond the
// crop's remaining reduction budget are neither debited nor counted.
func (s *Crops) ApplyBooster(ctx context.Context, userID, cropID int64, count int) (*BoostResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: booster count must be positive", domain.ErrValidation)
	}

	var res *BoostResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		c, err := lockOwnedCrop(ctx, tx, userID, cropID)
		if err != nil {
			return err
		}

		switch c.State(s.clock.Now()) {
		case domain.CropHarvested:
			return fmt.Errorf("%w: crop %d is harvested", domain.ErrInvalidState, cropID)
		case domain.CropReady:
			return fmt.Errorf("%w: crop %d is ready", domain.ErrInvalidState, cropID)
		}

		info, ok := s.game.Crop(c.CropType)
		if !ok {
			return fmt.Errorf("%w: unknown crop %q", domain.ErrValidation, c.CropType)
		}
		step := s.game.BoosterReduction
		budget := info.MaxBoosterReduction - time.Duration(c.BoostersUsed)*step
		applied := count
		if room := int(budget / step); room < applied {
			applied = room
		}
		if applied <= 0 {
			return fmt.Errorf("%w: crop %d already at booster cap", domain.ErrInvalidState, cropID)
		}

		if _, err := s.ledger.DebitWithTx(ctx, tx, u, domain.ResourceBoosters, decimal.NewFromInt(int64(applied)),
			Posting{Reason: domain.ReasonBoost, Meta: map[string]interface{}{"crop_id": cropID}}); err != nil {
			return err
		}

		reduced := time.Duration(applied) * step
		c.HarvestAt = c.HarvestAt.Add(-reduced)
		c.BoostersUsed += applied
		if err := tx.UpdateCrop(ctx, c); err != nil {
			return err
		}
		res = &BoostResult{Crop: c, Applied: applied, Reduced: reduced}
		return nil
	})
	return res, err
}

// Harvest settles a Ready crop: marks it harvested and credits its sell price.
func (s *Crops) Harvest(ctx context.Context, userID, cropID int64) (*HarvestResult, error) {
	var res *HarvestResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		c, err := lockOwnedCrop(ctx, tx, userID, cropID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		switch c.State(now) {
		case domain.CropHarvested:
			return fmt.Errorf("%w: crop %d already harvested", domain.ErrInvalidState, cropID)
		case domain.CropGrowing:
			return fmt.Errorf("%w: crop %d ready in %s", domain.ErrInvalidState, cropID, c.Remaining(now).Round(time.Second))
		}

		info, ok := s.game.Crop(c.CropType)
		if !ok {
			return fmt.Errorf("%w: unknown crop %q", domain.ErrValidation, c.CropType)
		}

		c.Harvested = true
		c.HarvestedAt = &now
		if err := tx.UpdateCrop(ctx, c); err != nil {
			return err
		}
		if _, err := s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceSBR, decimal.NewFromInt(info.SellPrice),
			Posting{Reason: domain.ReasonHarvest, Meta: map[string]interface{}{"crop_id": cropID, "crop_type": c.CropType}}); err != nil {
			return err
		}
		res = &HarvestResult{CropID: c.ID, CropType: c.CropType, PatchNumber: c.PatchNumber, SBR: info.SellPrice}
		return nil
	})
	return res, err
}

// HarvestAll harvests every Ready crop, each in its own transaction. A failed
// crop is reported and does not stop the others.
func (s *Crops) HarvestAll(ctx context.Context, userID int64) (*HarvestAllResult, error) {
	var ready []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		active, err := tx.ActiveCrops(ctx, userID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		for _, c := range active {
			if c.State(now) == domain.CropReady {
				ready = append(ready, c.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &HarvestAllResult{Harvested: []HarvestResult{}}
	for _, id := range ready {
		r, err := s.Harvest(ctx, userID, id)
		if err != nil {
			out.Failures = append(out.Failures, HarvestFailure{CropID: id, Kind: domain.KindOf(err), Error: err.Error()})
			continue
		}
		out.Harvested = append(out.Harvested, *r)
		out.TotalSBR += r.SBR
	}
	return out, nil
}

// ActiveCrops lists the user's unharvested crops with derived state.
func (s *Crops) ActiveCrops(ctx context.Context, userID int64) ([]domain.CropView, error) {
	var crops []*domain.Crop
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		crops, err = tx.ActiveCrops(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]domain.CropView, 0, len(crops))
	for _, c := range crops {
		views = append(views, domain.CropView{
			Crop:      *c,
			State:     c.State(now),
			Remaining: c.Remaining(now).Round(time.Minute).String(),
		})
	}
	return views, nil
}

// CountReady counts Ready crops across all users.
func (s *Crops) CountReady(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		n, err = tx.CountReadyCrops(ctx, s.clock.Now())
		return err
	})
	return n, err
}
