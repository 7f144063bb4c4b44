package config

import (
	"fmt"
	"os"
	"time"

	"sbr_farm/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Game holds the economy tables. It is built once at startup and shared
// read-only by every service; nothing mutates it after LoadGame returns.
type Game struct {
	Caps             map[domain.Resource]int64 `yaml:"caps"`
	BoosterReduction time.Duration             `yaml:"booster_reduction"`
	MaxPatches       int                       `yaml:"max_patches"`
	DailyLoginWater  int64                     `yaml:"daily_login_water"`
	AdWatchWater     int64                     `yaml:"ad_watch_water"`
	AdWatchCooldown  time.Duration             `yaml:"ad_watch_cooldown"`

	Crops       map[string]CropInfo                      `yaml:"crops"`
	VIPTiers    map[int]VIPTier                          `yaml:"vip_tiers"`
	VIPDuration time.Duration                            `yaml:"vip_duration"`
	Conversions []Conversion                             `yaml:"conversions"`
	Shop        Shop                                     `yaml:"shop"`
	Contests    map[domain.ContestType]ContestParams     `yaml:"contests"`
	Withdrawals map[domain.PaymentMethod]decimal.Decimal `yaml:"min_withdrawals"`
	Starter     StarterKit                               `yaml:"starter"`
}

// Price is an amount in a purchasing currency (SBR or USDT).
type Price struct {
	Currency domain.Resource `yaml:"currency"`
	Amount   decimal.Decimal `yaml:"amount"`
}

type CropInfo struct {
	GrowthTime          time.Duration   `yaml:"growth_time"`
	WaterCost           int64           `yaml:"water_cost"`
	WaterType           domain.Resource `yaml:"water_type"`
	SellPrice           int64           `yaml:"sell_price"`
	MaxBoosterReduction time.Duration   `yaml:"max_booster_reduction"`
	SeedPrice           Price           `yaml:"seed_price"`
}

type Benefit struct {
	Type   string `yaml:"type"`
	Amount int64  `yaml:"amount"`
}

type ScheduledBenefit struct {
	Type         string `yaml:"type"`
	IntervalDays int    `yaml:"interval_days"`
	Amount       int64  `yaml:"amount"`
}

type VIPTier struct {
	Price     decimal.Decimal    `yaml:"price"`
	Patches   int                `yaml:"patches"`
	Daily     []Benefit          `yaml:"daily"`
	Scheduled []ScheduledBenefit `yaml:"scheduled"`
}

// Conversion turns FromUnits of From into ToUnits of To.
type Conversion struct {
	From      domain.Resource `yaml:"from"`
	To        domain.Resource `yaml:"to"`
	FromUnits int64           `yaml:"from_units"`
	ToUnits   int64           `yaml:"to_units"`
}

// Shop unit prices keyed by paying currency.
type Shop struct {
	PatchPart map[domain.Resource]decimal.Decimal `yaml:"patch_part"`
	Booster   map[domain.Resource]decimal.Decimal `yaml:"booster"`
	Water     map[domain.Resource]decimal.Decimal `yaml:"water"`
}

// Contest periods
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

type ContestParams struct {
	EntryCost   int64          `yaml:"entry_cost"`
	AdsRequired int            `yaml:"ads_required"`
	Winners     int            `yaml:"winners"`
	Period      string         `yaml:"period"`
	PrizeSpec   string         `yaml:"prize_spec"`
	Prizes      []domain.Prize `yaml:"prizes"`
}

type StarterKit struct {
	Water   int64            `yaml:"water"`
	Patches int              `yaml:"patches"`
	Seeds   map[string]int64 `yaml:"seeds"`
}

// DefaultGame returns the production tables.
func DefaultGame() *Game {
	amount := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	sbr := func(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

	return &Game{
		Caps: map[domain.Resource]int64{
			domain.ResourceWater:      100,
			domain.ResourceHeavyWater: 5,
			domain.ResourceBoosters:   10,
		},
		BoosterReduction: 2 * time.Hour,
		MaxPatches:       8,
		DailyLoginWater:  10,
		AdWatchWater:     1,
		AdWatchCooldown:  time.Minute,
		Crops: map[string]CropInfo{
			"potato": {GrowthTime: 24 * time.Hour, WaterCost: 10, WaterType: domain.ResourceWater, SellPrice: 100, MaxBoosterReduction: 12 * time.Hour, SeedPrice: Price{domain.ResourceSBR, sbr(50)}},
			"tomato": {GrowthTime: 48 * time.Hour, WaterCost: 20, WaterType: domain.ResourceWater, SellPrice: 150, MaxBoosterReduction: 24 * time.Hour, SeedPrice: Price{domain.ResourceSBR, sbr(100)}},
			"onion":  {GrowthTime: 96 * time.Hour, WaterCost: 50, WaterType: domain.ResourceWater, SellPrice: 250, MaxBoosterReduction: 48 * time.Hour, SeedPrice: Price{domain.ResourceUSDT, amount("1")}},
			"carrot": {GrowthTime: 144 * time.Hour, WaterCost: 1, WaterType: domain.ResourceHeavyWater, SellPrice: 1300, MaxBoosterReduction: 72 * time.Hour, SeedPrice: Price{domain.ResourceUSDT, amount("5")}},
		},
		VIPTiers: map[int]VIPTier{
			1: {Price: amount("7"), Patches: 1, Daily: []Benefit{{"potato_seeds", 2}}},
			2: {
				Price: amount("15"), Patches: 1,
				Daily:     []Benefit{{"patch_parts", 5}, {"potato_seeds", 2}, {"water_drops", 10}},
				Scheduled: []ScheduledBenefit{{"tomato_seeds", 2, 1}},
			},
			3: {
				Price: amount("30"), Patches: 2,
				Daily:     []Benefit{{"potato_seeds", 2}, {"water_drops", 20}},
				Scheduled: []ScheduledBenefit{{"onion_seeds", 2, 1}},
			},
			4: {
				Price: amount("99"), Patches: 3,
				Daily:     []Benefit{{"potato_seeds", 2}, {"onion_seeds", 2}},
				Scheduled: []ScheduledBenefit{{"carrot_seeds", 3, 1}},
			},
		},
		VIPDuration: 30 * 24 * time.Hour,
		Conversions: []Conversion{
			{From: domain.ResourceSBR, To: domain.ResourceUSDT, FromUnits: 200, ToUnits: 1},
			{From: domain.ResourceWater, To: domain.ResourceHeavyWater, FromUnits: 100, ToUnits: 1},
			{From: domain.ResourceHeavyWater, To: domain.ResourceSBR, FromUnits: 10, ToUnits: 5},
		},
		Shop: Shop{
			PatchPart: map[domain.Resource]decimal.Decimal{domain.ResourceSBR: sbr(100), domain.ResourceUSDT: amount("0.5")},
			Booster:   map[domain.Resource]decimal.Decimal{domain.ResourceSBR: sbr(25), domain.ResourceUSDT: amount("0.1")},
			Water:     map[domain.Resource]decimal.Decimal{domain.ResourceSBR: sbr(5), domain.ResourceUSDT: amount("0.02")},
		},
		Contests: map[domain.ContestType]ContestParams{
			domain.ContestDaily: {
				EntryCost: 20, AdsRequired: 5, Winners: 1, Period: PeriodDay,
				PrizeSpec: `{"type":"random","value":"SBR/Water"}`,
				Prizes: []domain.Prize{
					{Kind: domain.PrizeSBR, Amount: 50},
					{Kind: domain.PrizeSBR, Amount: 100},
					{Kind: domain.PrizeWater, Amount: 20},
					{Kind: domain.PrizeWater, Amount: 30},
				},
			},
			domain.ContestWeekly: {
				EntryCost: 100, AdsRequired: 30, Winners: 1, Period: PeriodWeek,
				PrizeSpec: `{"type":"random","value":"SBR/Water"}`,
				Prizes: []domain.Prize{
					{Kind: domain.PrizeSBR, Amount: 200},
					{Kind: domain.PrizeSBR, Amount: 300},
					{Kind: domain.PrizeSBR, Amount: 500},
					{Kind: domain.PrizeWater, Amount: 50},
					{Kind: domain.PrizeWater, Amount: 75},
				},
			},
			domain.ContestMonthly: {
				EntryCost: 200, AdsRequired: 100, Winners: 3, Period: PeriodMonth,
				PrizeSpec: `{"type":"vip","value":"VIP Tier 1"}`,
				Prizes:    []domain.Prize{{Kind: domain.PrizeVIP, Amount: 1}},
			},
		},
		Withdrawals: map[domain.PaymentMethod]decimal.Decimal{
			domain.MethodBinance: amount("5"),
			domain.MethodTRC20:   amount("4"),
			domain.MethodTON:     amount("1"),
		},
		Starter: StarterKit{Water: 10, Patches: 3, Seeds: map[string]int64{"potato": 1}},
	}
}

// LoadGame returns DefaultGame overlaid with the YAML file at path, if any.
func LoadGame(path string) (*Game, error) {
	g := DefaultGame()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, g); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the invariants the services rely on.
func (g *Game) Validate() error {
	if g.BoosterReduction <= 0 {
		return fmt.Errorf("booster_reduction must be positive")
	}
	if g.AdWatchWater <= 0 || g.AdWatchCooldown < 0 {
		return fmt.Errorf("ad_watch_water must be positive and ad_watch_cooldown not negative")
	}
	for name, c := range g.Crops {
		if c.GrowthTime <= 0 || c.WaterCost <= 0 || c.SellPrice <= 0 {
			return fmt.Errorf("crop %s: growth_time, water_cost and sell_price must be positive", name)
		}
		if c.WaterType != domain.ResourceWater && c.WaterType != domain.ResourceHeavyWater {
			return fmt.Errorf("crop %s: unknown water_type %q", name, c.WaterType)
		}
		if c.MaxBoosterReduction < 0 || c.MaxBoosterReduction >= c.GrowthTime {
			return fmt.Errorf("crop %s: max_booster_reduction must be in [0, growth_time)", name)
		}
		if c.MaxBoosterReduction%g.BoosterReduction != 0 {
			return fmt.Errorf("crop %s: max_booster_reduction %s is not a multiple of booster_reduction %s",
				name, c.MaxBoosterReduction, g.BoosterReduction)
		}
	}
	for tier := range g.VIPTiers {
		if tier < 1 || tier > domain.MaxVIPTier {
			return fmt.Errorf("vip tier %d out of range", tier)
		}
		for _, b := range g.VIPTiers[tier].Scheduled {
			if b.IntervalDays <= 0 {
				return fmt.Errorf("vip tier %d: %s interval_days must be positive", tier, b.Type)
			}
		}
	}
	for _, c := range g.Conversions {
		if c.FromUnits <= 0 || c.ToUnits <= 0 {
			return fmt.Errorf("conversion %s->%s: units must be positive", c.From, c.To)
		}
	}
	for _, t := range domain.ContestTypes {
		p, ok := g.Contests[t]
		if !ok {
			return fmt.Errorf("contest %s is not configured", t)
		}
		if p.Winners <= 0 || len(p.Prizes) == 0 {
			return fmt.Errorf("contest %s: winners and prizes are required", t)
		}
		switch p.Period {
		case PeriodDay, PeriodWeek, PeriodMonth:
		default:
			return fmt.Errorf("contest %s: unknown period %q", t, p.Period)
		}
	}
	return nil
}

func (g *Game) Crop(name string) (CropInfo, bool) {
	c, ok := g.Crops[name]
	return c, ok
}

// Cap returns the capacity of r; ok is false for uncapped resources.
func (g *Game) Cap(r domain.Resource) (int64, bool) {
	c, ok := g.Caps[r]
	return c, ok
}

func (g *Game) Tier(n int) (VIPTier, bool) {
	t, ok := g.VIPTiers[n]
	return t, ok
}

func (g *Game) Conversion(from, to domain.Resource) (Conversion, bool) {
	for _, c := range g.Conversions {
		if c.From == from && c.To == to {
			return c, true
		}
	}
	return Conversion{}, false
}

func (g *Game) Contest(t domain.ContestType) (ContestParams, bool) {
	p, ok := g.Contests[t]
	return p, ok
}
