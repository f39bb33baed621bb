package service

import (
	"context"
	"fmt"
	"time"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// ShopEntry is one purchasable item as shown in the shop.
type ShopEntry struct {
	Key string `json:"key"`
	catalog.ShopItem
}

// ShopService sells catalog items and buys materials back.
type ShopService struct {
	engine *Engine
}

// NewShopService creates a new ShopService instance.
func NewShopService(engine *Engine) *ShopService {
	return &ShopService{engine: engine}
}

// Catalog returns the shop items, cheapest first.
func (s *ShopService) Catalog() []ShopEntry {
	cat := s.engine.catalog
	keys := cat.ShopKeys()
	out := make([]ShopEntry, len(keys))
	for i, k := range keys {
		out[i] = ShopEntry{Key: k, ShopItem: cat.Shop[k]}
	}
	return out
}

// Buy purchases qty of an item. Tools replace whatever is in their slot
// with a fresh one and can only be bought one at a time.
func (s *ShopService) Buy(ctx context.Context, id, key string, qty int64) (*Outcome, error) {
	item, ok := s.engine.catalog.Shop[key]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Item desconhecido: %s.", key)
	}
	if qty <= 0 || (item.Type == catalog.ItemTool && qty != 1) {
		return nil, reject(ErrInvalidAmount, "❌ Quantidade inválida.")
	}
	price, err := mulQty(item.Price, qty)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	err = s.engine.mutate(ctx, "shop_buy", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if err := spend(a, price); err != nil {
			return err
		}
		if item.Type == catalog.ItemTool {
			tool := &model.Tool{Key: key, Tier: item.Tier, Durability: item.Durability, MaxDurability: item.Durability}
			switch item.Slot {
			case catalog.SlotPickaxe:
				a.Tools.Pickaxe = tool
			case catalog.SlotRod:
				a.Tools.Rod = tool
			}
			out = &Outcome{Message: fmt.Sprintf("🛠 %s equipada! Durabilidade %d.", item.Name, item.Durability), Data: *tool}
			return nil
		}
		a.Inventory[key] += qty
		out = &Outcome{Message: fmt.Sprintf("🛍 Comprou %dx %s por %s.", qty, item.Name, coins(price))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SellMaterial sells materials at the catalog price.
func (s *ShopService) SellMaterial(ctx context.Context, id, key string, qty int64) (*Outcome, error) {
	unit, ok := s.engine.catalog.MaterialsPrices[key]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Material desconhecido: %s.", key)
	}
	if qty <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ Quantidade inválida.")
	}
	earned, err := mulQty(unit, qty)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	err = s.engine.mutate(ctx, "sell_material", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if err := take(a.Materials, map[string]int64{key: qty}); err != nil {
			return err
		}
		a.Wallet += earned
		UpdateChallenge(a, "sell", 1)
		out = &Outcome{Message: fmt.Sprintf("💰 Vendeu %dx %s por %s.", qty, key, coins(earned)), Reward: earned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
