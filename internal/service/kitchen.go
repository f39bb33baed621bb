package service

import (
	"context"
	"fmt"
	"time"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/decay"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// KitchenService turns ingredients into cooked food, which can be eaten
// for energy or sold.
type KitchenService struct {
	engine *Engine
}

// NewKitchenService creates a new KitchenService instance.
func NewKitchenService(engine *Engine) *KitchenService {
	return &KitchenService{engine: engine}
}

// Cook prepares one portion of a recipe. Gold and every ingredient are
// checked before anything is taken.
func (s *KitchenService) Cook(ctx context.Context, id, recipeKey string) (*Outcome, error) {
	cat := s.engine.catalog
	recipe, ok := cat.CookingRecipes[recipeKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Receita desconhecida: %s.", recipeKey)
	}
	def := cat.Actions[catalog.ActionCook]

	var out *Outcome
	err := s.engine.mutate(ctx, catalog.ActionCook, []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, catalog.ActionCook, now); err != nil {
			return err
		}
		if a.Wallet < recipe.Gold {
			return fundsError(recipe.Gold, a.Wallet)
		}
		if err := take(a.Ingredients, recipe.Ingredients); err != nil {
			return err
		}
		a.Wallet -= recipe.Gold
		a.CookedFood[recipeKey]++

		side := s.engine.grantXP(a, def.Skill, def.XP)
		UpdateChallenge(a, catalog.ActionCook, 1)
		decay.SetCooldown(a.Cooldowns, catalog.ActionCook, now, def.Cooldown)
		out = &Outcome{
			Message:      fmt.Sprintf("🍳 Você preparou %s!", recipe.Name),
			Drops:        map[string]int64{recipeKey: 1},
			SideMessages: side,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Eat consumes one cooked food for energy.
func (s *KitchenService) Eat(ctx context.Context, id, foodKey string) (*Outcome, error) {
	recipe, ok := s.engine.catalog.CookingRecipes[foodKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Comida desconhecida: %s.", foodKey)
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "eat", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if err := take(a.CookedFood, map[string]int64{foodKey: 1}); err != nil {
			return err
		}
		a.Energy += recipe.Energy
		out = &Outcome{Message: fmt.Sprintf("😋 Você comeu %s. Energia: %d.", recipe.Name, a.Energy)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SellFood sells cooked food at the recipe's sell price.
func (s *KitchenService) SellFood(ctx context.Context, id, foodKey string, qty int64) (*Outcome, error) {
	recipe, ok := s.engine.catalog.CookingRecipes[foodKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Comida desconhecida: %s.", foodKey)
	}
	if qty <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ Quantidade inválida.")
	}
	earned, err := mulQty(recipe.SellPrice, qty)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	err = s.engine.mutate(ctx, "sell_food", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if err := take(a.CookedFood, map[string]int64{foodKey: qty}); err != nil {
			return err
		}
		a.Wallet += earned
		UpdateChallenge(a, "sell", 1)
		out = &Outcome{
			Message: fmt.Sprintf("💰 Vendeu %dx %s por %s.", qty, recipe.Name, coins(earned)),
			Reward:  earned,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
