package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64  `db:"id" json:"id"`
	TgID         int64  `db:"tg_id" json:"tg_id"`
	Username     string `db:"username" json:"username"`
	FirstName    string `db:"first_name" json:"first_name"`
	ReferralCode string `db:"referral_code" json:"referral_code"`

	WaterDrops  int64           `db:"water_drops" json:"water_drops"`
	HeavyWater  int64           `db:"heavy_water" json:"heavy_water"`
	Boosters    int64           `db:"boosters" json:"boosters"`
	SBRCoins    int64           `db:"sbr_coins" json:"sbr_coins"`
	USDTBalance decimal.Decimal `db:"usdt_balance" json:"usdt_balance"`
	TONBalance  decimal.Decimal `db:"ton_balance" json:"ton_balance"`
	Patches     int             `db:"patches" json:"patches"`
	PatchParts  int             `db:"patch_parts" json:"patch_parts"`

	VIPTier        int        `db:"vip_tier" json:"vip_tier"`
	VIPExpiresAt   *time.Time `db:"vip_expires_at" json:"vip_expires_at,omitempty"`
	LastDailyClaim *time.Time `db:"last_daily_claim" json:"last_daily_claim,omitempty"`
	LastAdWatch    *time.Time `db:"last_ad_watch_at" json:"last_ad_watch_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VIPActive reports whether the user's tier grants benefits at now.
func (u *User) VIPActive(now time.Time) bool {
	return u.VIPTier > 0 && u.VIPExpiresAt != nil && u.VIPExpiresAt.After(now)
}

// Balance returns the current amount held of r.
func (u *User) Balance(r Resource) decimal.Decimal {
	switch r {
	case ResourceWater:
		return decimal.NewFromInt(u.WaterDrops)
	case ResourceHeavyWater:
		return decimal.NewFromInt(u.HeavyWater)
	case ResourceBoosters:
		return decimal.NewFromInt(u.Boosters)
	case ResourceSBR:
		return decimal.NewFromInt(u.SBRCoins)
	case ResourceUSDT:
		return u.USDTBalance
	case ResourceTON:
		return u.TONBalance
	case ResourcePatchParts:
		return decimal.NewFromInt(int64(u.PatchParts))
	}
	return decimal.Zero
}

// SetBalance overwrites the amount held of r. Range checks belong to the ledger.
func (u *User) SetBalance(r Resource, v decimal.Decimal) {
	switch r {
	case ResourceWater:
		u.WaterDrops = v.IntPart()
	case ResourceHeavyWater:
		u.HeavyWater = v.IntPart()
	case ResourceBoosters:
		u.Boosters = v.IntPart()
	case ResourceSBR:
		u.SBRCoins = v.IntPart()
	case ResourceUSDT:
		u.USDTBalance = v
	case ResourceTON:
		u.TONBalance = v
	case ResourcePatchParts:
		u.PatchParts = int(v.IntPart())
	}
}

// Wallet is the read model returned by walletBalance.
type Wallet struct {
	UserID     int64           `json:"user_id"`
	SBR        int64           `json:"sbr"`
	USDT       decimal.Decimal `json:"usdt"`
	TON        decimal.Decimal `json:"ton"`
	Water      int64           `json:"water"`
	HeavyWater int64           `json:"heavy_water"`
	Boosters   int64           `json:"boosters"`
	Patches    int             `json:"patches"`
	PatchParts int             `json:"patch_parts"`
	VIPTier    int             `json:"vip_tier"`
	VIPExpires *time.Time      `json:"vip_expires_at,omitempty"`
}

func (u *User) Wallet() Wallet {
	return Wallet{
		UserID:     u.ID,
		SBR:        u.SBRCoins,
		USDT:       u.USDTBalance,
		TON:        u.TONBalance,
		Water:      u.WaterDrops,
		HeavyWater: u.HeavyWater,
		Boosters:   u.Boosters,
		Patches:    u.Patches,
		PatchParts: u.PatchParts,
		VIPTier:    u.VIPTier,
		VIPExpires: u.VIPExpiresAt,
	}
}
