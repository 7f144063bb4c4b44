// Package action turns chat callback strings and JSON requests into a closed
// set of typed player actions and routes each kind to its service call.
package action

import (
	"fmt"
	"strconv"
	"strings"

	"sbr_farm/internal/domain"
	"sbr_farm/internal/service"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPlant        Kind = "plant"
	KindHarvest      Kind = "harvest"
	KindHarvestAll   Kind = "harvest_all"
	KindBoost        Kind = "boost"
	KindConvert      Kind = "convert"
	KindContestEnter Kind = "contest_enter"
	KindContestAd    Kind = "contest_ad"
	KindDailyClaim   Kind = "daily_claim"
	KindBuy          Kind = "buy"
	KindVIPBuy       Kind = "vip_buy"
	KindWatchAd      Kind = "watch_ad"
)

// Action is one decoded player request. Only the fields of its Kind are set.
type Action struct {
	Kind Kind `json:"kind"`

	Patch    int    `json:"patch,omitempty"`
	CropType string `json:"crop_type,omitempty"`
	CropID   int64  `json:"crop_id,omitempty"`
	Count    int    `json:"count,omitempty"`

	From   domain.Resource `json:"from,omitempty"`
	To     domain.Resource `json:"to,omitempty"`
	Amount decimal.Decimal `json:"amount"`

	Contest  domain.ContestType `json:"contest,omitempty"`
	Purchase service.Purchase   `json:"purchase"`
	Tier     int                `json:"tier,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}

// Validate checks that the fields required by a.Kind are present. Actions
// built by ParseCallback are always valid; JSON-decoded ones are checked here.
func (a Action) Validate() error {
	switch a.Kind {
	case KindPlant:
		if a.CropType == "" || a.Patch < 0 {
			return invalid("plant needs crop_type and a non-negative patch")
		}
	case KindHarvest:
		if a.CropID <= 0 {
			return invalid("harvest needs crop_id")
		}
	case KindBoost:
		if a.CropID <= 0 || a.Count <= 0 {
			return invalid("boost needs crop_id and a positive count")
		}
	case KindConvert:
		if a.From == "" || a.To == "" || a.Amount.Sign() <= 0 {
			return invalid("convert needs from, to and a positive amount")
		}
	case KindContestEnter, KindContestAd:
		if _, ok := domain.ParseContestType(string(a.Contest)); !ok {
			return invalid("unknown contest %q", a.Contest)
		}
	case KindBuy:
		if _, ok := service.ParseShopItem(string(a.Purchase.Item)); !ok || a.Purchase.Quantity <= 0 {
			return invalid("buy needs a known item and a positive quantity")
		}
	case KindVIPBuy:
		if a.Tier < 1 || a.Tier > domain.MaxVIPTier {
			return invalid("vip tier must be 1..%d", domain.MaxVIPTier)
		}
	case KindHarvestAll, KindDailyClaim, KindWatchAd:
	default:
		return invalid("unknown action kind %q", a.Kind)
	}
	return nil
}

// resource names as they appear in callback data
var callbackResources = map[string]domain.Resource{
	"sbr":      domain.ResourceSBR,
	"usdt":     domain.ResourceUSDT,
	"ton":      domain.ResourceTON,
	"water":    domain.ResourceWater,
	"heavy":    domain.ResourceHeavyWater,
	"boosters": domain.ResourceBoosters,
}

var shopItems = map[string]service.ShopItem{
	"booster": service.ShopBooster,
	"patch":   service.ShopPatchPart,
	"water":   service.ShopWater,
}

// ParseCallback decodes chat callback data such as "plant_2_potato",
// "harvest_14", "boost_14_2", "convert_sbr_usdt_200" or "contest_enter_daily".
func ParseCallback(data string) (Action, error) {
	data = strings.TrimSpace(strings.ToLower(data))
	data = strings.TrimPrefix(data, "execute_")
	parts := strings.Split(data, "_")

	switch {
	case data == "harvest_all":
		return Action{Kind: KindHarvestAll}, nil
	case data == "daily_claim":
		return Action{Kind: KindDailyClaim}, nil
	case data == "watch_ad", data == "task_watch_ad":
		return Action{Kind: KindWatchAd}, nil
	case len(parts) == 3 && parts[0] == "contest" && (parts[1] == "enter" || parts[1] == "ad"):
		ct, ok := domain.ParseContestType(parts[2])
		if !ok {
			return Action{}, invalid("unknown contest %q", parts[2])
		}
		kind := KindContestEnter
		if parts[1] == "ad" {
			kind = KindContestAd
		}
		return Action{Kind: kind, Contest: ct}, nil
	case len(parts) == 3 && parts[0] == "vip" && parts[1] == "buy":
		tier, err := strconv.Atoi(parts[2])
		if err != nil {
			return Action{}, invalid("bad vip tier %q", parts[2])
		}
		a := Action{Kind: KindVIPBuy, Tier: tier}
		return a, a.Validate()
	}

	var a Action
	var err error
	switch parts[0] {
	case "plant":
		a, err = parsePlant(parts[1:])
	case "harvest":
		a, err = parseHarvest(parts[1:])
	case "boost":
		a, err = parseBoost(parts[1:])
	case "convert":
		a, err = parseConvert(parts[1:])
	case "buy":
		a, err = parseBuy(parts[1:])
	default:
		return Action{}, invalid("unknown callback %q", data)
	}
	if err != nil {
		return Action{}, err
	}
	return a, a.Validate()
}

func positiveInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, invalid("expected a positive number, got %q", s)
	}
	return n, nil
}

// plant_<crop> or plant_<patch>_<crop>
func parsePlant(args []string) (Action, error) {
	switch len(args) {
	case 1:
		return Action{Kind: KindPlant, CropType: args[0]}, nil
	case 2:
		patch, err := positiveInt(args[0])
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: KindPlant, Patch: int(patch), CropType: args[1]}, nil
	}
	return Action{}, invalid("plant takes [patch_]crop")
}

func parseHarvest(args []string) (Action, error) {
	if len(args) != 1 {
		return Action{}, invalid("harvest takes a crop id")
	}
	id, err := positiveInt(args[0])
	return Action{Kind: KindHarvest, CropID: id}, err
}

// boost_<crop id>[_<count>]
func parseBoost(args []string) (Action, error) {
	if len(args) < 1 || len(args) > 2 {
		return Action{}, invalid("boost takes crop id and optional count")
	}
	id, err := positiveInt(args[0])
	if err != nil {
		return Action{}, err
	}
	count := int64(1)
	if len(args) == 2 {
		if count, err = positiveInt(args[1]); err != nil {
			return Action{}, err
		}
	}
	return Action{Kind: KindBoost, CropID: id, Count: int(count)}, nil
}

// convert_<from>_<to>_<amount>
func parseConvert(args []string) (Action, error) {
	if len(args) != 3 {
		return Action{}, invalid("convert takes from, to and amount")
	}
	from, ok1 := callbackResources[args[0]]
	to, ok2 := callbackResources[args[1]]
	if !ok1 || !ok2 {
		return Action{}, invalid("unknown resource in %q", strings.Join(args, "_"))
	}
	amt, err := decimal.NewFromString(args[2])
	if err != nil {
		return Action{}, invalid("bad amount %q", args[2])
	}
	return Action{Kind: KindConvert, From: from, To: to, Amount: amt}, nil
}

// buy_seed_<crop>[_<qty>] or buy_<booster|patch|water>_<currency>_<qty>
func parseBuy(args []string) (Action, error) {
	if len(args) >= 2 && args[0] == "seed" {
		qty := int64(1)
		if len(args) == 3 {
			n, err := positiveInt(args[2])
			if err != nil {
				return Action{}, err
			}
			qty = n
		} else if len(args) != 2 {
			return Action{}, invalid("buy_seed takes crop and optional quantity")
		}
		return Action{Kind: KindBuy, Purchase: service.Purchase{Item: service.ShopSeed, Name: args[1], Quantity: qty}}, nil
	}

	if len(args) != 3 {
		return Action{}, invalid("buy takes item, currency and quantity")
	}
	item, ok := shopItems[args[0]]
	if !ok {
		return Action{}, invalid("unknown shop item %q", args[0])
	}
	cur, ok := callbackResources[args[1]]
	if !ok {
		return Action{}, invalid("unknown currency %q", args[1])
	}
	qty, err := positiveInt(args[2])
	if err != nil {
		return Action{}, err
	}
	return Action{Kind: KindBuy, Purchase: service.Purchase{Item: item, Quantity: qty, Currency: cur}}, nil
}
