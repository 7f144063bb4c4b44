package domain

import "time"

// CropState is derived from the stored row and the current time; only
// Harvested is persisted.
type CropState string

const (
	CropGrowing   CropState = "growing"
	CropReady     CropState = "ready"
	CropHarvested CropState = "harvested"
)

type Crop struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	PatchNumber  int        `db:"patch_number" json:"patch_number"`
	CropType     string     `db:"crop_type" json:"crop_type"`
	PlantedAt    time.Time  `db:"planted_at" json:"planted_at"`
	HarvestAt    time.Time  `db:"harvest_at" json:"harvest_at"`
	BoostersUsed int        `db:"boosters_used" json:"boosters_used"`
	Harvested    bool       `db:"harvested" json:"harvested"`
	HarvestedAt  *time.Time `db:"harvested_at" json:"harvested_at,omitempty"`
}

func (c *Crop) State(now time.Time) CropState {
	switch {
	case c.Harvested:
		return CropHarvested
	case !now.Before(c.HarvestAt):
		return CropReady
	default:
		return CropGrowing
	}
}

// Remaining is the growth time left, zero once ready.
func (c *Crop) Remaining(now time.Time) time.Duration {
	if d := c.HarvestAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CropView is the query model for activeCrops.
type CropView struct {
	Crop
	State     CropState `json:"state"`
	Remaining string    `json:"remaining"`
}

// ItemType distinguishes inventory buckets.
type ItemType string

const (
	ItemSeed      ItemType = "seed"
	ItemHarvested ItemType = "harvested"
)

type InventoryEntry struct {
	UserID   int64    `db:"user_id" json:"user_id"`
	ItemType ItemType `db:"item_type" json:"item_type"`
	ItemName string   `db:"item_name" json:"item_name"`
	Quantity int64    `db:"quantity" json:"quantity"`
}
