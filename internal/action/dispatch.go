package action

import (
	"context"

	"sbr_farm/internal/logger"
	"sbr_farm/internal/service"
)

// Dispatcher routes a decoded Action to the owning service.
type Dispatcher struct {
	crops    *service.Crops
	ledger   *service.Ledger
	contests *service.Contests
	players  *service.Players
	shop     *service.Shop
	vip      *service.VIP
}

func NewDispatcher(crops *service.Crops, ledger *service.Ledger, contests *service.Contests, players *service.Players, shop *service.Shop, vip *service.VIP) *Dispatcher {
	return &Dispatcher{crops: crops, ledger: ledger, contests: contests, players: players, shop: shop, vip: vip}
}

// Dispatch performs a for userID and returns the operation's result.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, a Action) (any, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Debug("dispatch action", "user_id", userID, "kind", a.Kind)

	switch a.Kind {
	case KindPlant:
		return d.crops.Plant(ctx, userID, a.Patch, a.CropType)
	case KindHarvest:
		return d.crops.Harvest(ctx, userID, a.CropID)
	case KindHarvestAll:
		return d.crops.HarvestAll(ctx, userID)
	case KindBoost:
		return d.crops.ApplyBooster(ctx, userID, a.CropID, a.Count)
	case KindConvert:
		return d.ledger.Convert(ctx, userID, a.From, a.To, a.Amount)
	case KindContestEnter:
		return d.contests.Enter(ctx, userID, a.Contest)
	case KindContestAd:
		return d.contests.RecordAdWatch(ctx, userID, a.Contest)
	case KindDailyClaim:
		bal, err := d.players.ClaimDailyLogin(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"water": bal}, nil
	case KindBuy:
		return d.shop.Buy(ctx, userID, a.Purchase)
	case KindVIPBuy:
		return d.vip.Purchase(ctx, userID, a.Tier)
	case KindWatchAd:
		return d.players.WatchAd(ctx, userID)
	}
	// unreachable: Validate rejects unknown kinds
	return nil, invalid("unknown action kind %q", a.Kind)
}
