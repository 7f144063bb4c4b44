package service

import (
	"context"
	"fmt"

	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

// ShopItem is a purchasable product line.
type ShopItem string

const (
	ShopSeed      ShopItem = "seed"
	ShopBooster   ShopItem = "booster"
	ShopWater     ShopItem = "water"
	ShopPatchPart ShopItem = "patch_part"
)

func ParseShopItem(s string) (ShopItem, bool) {
	switch i := ShopItem(s); i {
	case ShopSeed, ShopBooster, ShopWater, ShopPatchPart:
		return i, true
	}
	return "", false
}

// Purchase is one shop order. Name is the crop for seed orders; Currency may
// be empty for seeds, which are priced in a single currency.
type Purchase struct {
	Item     ShopItem        `json:"item"`
	Name     string          `json:"name,omitempty"`
	Quantity int64           `json:"quantity"`
	Currency domain.Resource `json:"currency,omitempty"`
}

type PurchaseResult struct {
	Purchase
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"`
	Patches int             `json:"patches"`
}

// Shop sells game goods for SBR or USDT. Payment and delivery commit together.
type Shop struct {
	store  repository.Store
	game   *config.Game
	ledger *Ledger
	inv    *Inventory
}

func NewShop(store repository.Store, game *config.Game, ledger *Ledger, inv *Inventory) *Shop {
	return &Shop{store: store, game: game, ledger: ledger, inv: inv}
}

// price resolves the unit price and paying currency of p.
func (s *Shop) price(p *Purchase) (decimal.Decimal, error) {
	var table map[domain.Resource]decimal.Decimal
	switch p.Item {
	case ShopSeed:
		info, ok := s.game.Crop(p.Name)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: unknown crop %q", domain.ErrValidation, p.Name)
		}
		if p.Currency == "" {
			p.Currency = info.SeedPrice.Currency
		}
		if p.Currency != info.SeedPrice.Currency {
			return decimal.Zero, fmt.Errorf("%w: %s seeds are sold for %s", domain.ErrValidation, p.Name, info.SeedPrice.Currency)
		}
		return info.SeedPrice.Amount, nil
	case ShopBooster:
		table = s.game.Shop.Booster
	case ShopWater:
		table = s.game.Shop.Water
	case ShopPatchPart:
		table = s.game.Shop.PatchPart
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown shop item %q", domain.ErrValidation, p.Item)
	}
	unit, ok := table[p.Currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s cannot be bought with %q", domain.ErrValidation, p.Item, p.Currency)
	}
	return unit, nil
}

// Buy charges the order and delivers it. Orders that would push a capped
// resource past its cap, or patches past the maximum, fail whole.
func (s *Shop) Buy(ctx context.Context, userID int64, p Purchase) (*PurchaseResult, error) {
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	unit, err := s.price(&p)
	if err != nil {
		return nil, err
	}
	total := unit.Mul(decimal.NewFromInt(p.Quantity))
	res := &PurchaseResult{Purchase: p, Paid: total}
	meta := map[string]interface{}{"item": string(p.Item), "quantity": p.Quantity}
	if p.Name != "" {
		meta["name"] = p.Name
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		u, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if p.Item == ShopPatchPart {
			built := (int64(u.PatchParts) + p.Quantity) / domain.PatchPartsPerPatch
			if u.Patches+int(built) > s.game.MaxPatches {
				return fmt.Errorf("%w: at most %d patches", domain.ErrCapacityExceeded, s.game.MaxPatches)
			}
		}

		post := Posting{Reason: domain.ReasonShop, Meta: meta}
		if res.Balance, err = s.ledger.DebitWithTx(ctx, tx, u, p.Currency, total, post); err != nil {
			return err
		}

		qty := decimal.NewFromInt(p.Quantity)
		post.Strict = true
		switch p.Item {
		case ShopSeed:
			_, err = s.inv.CreditWithTx(ctx, tx, userID, domain.ItemSeed, p.Name, p.Quantity)
		case ShopBooster:
			_, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceBoosters, qty, post)
		case ShopWater:
			_, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourceWater, qty, post)
		case ShopPatchPart:
			_, err = s.ledger.CreditWithTx(ctx, tx, u, domain.ResourcePatchParts, qty, post)
		}
		res.Patches = u.Patches
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
