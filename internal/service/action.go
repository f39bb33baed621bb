package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/decay"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// ActionService resolves the rewarded actions: work, gathering, crime,
// forging and tool repair.
type ActionService struct {
	engine *Engine
}

// NewActionService creates a new ActionService instance.
func NewActionService(engine *Engine) *ActionService {
	return &ActionService{engine: engine}
}

// Work pays a wage from the current job's range.
func (s *ActionService) Work(ctx context.Context, id string) (*Outcome, error) {
	cat := s.engine.catalog
	def := cat.Actions[catalog.ActionWork]
	var out *Outcome
	err := s.engine.mutate(ctx, catalog.ActionWork, []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, catalog.ActionWork, now); err != nil {
			return err
		}
		job, ok := cat.Jobs[a.Job]
		if a.Job == "" || !ok {
			return reject(ErrMissingPrerequisite, "💼 Você precisa de um emprego. Use /empregos.")
		}

		b := s.engine.reward(a, catalog.ActionWork, def.Skill, s.engine.roll(job.Min, job.Max), 0)
		total := b.Total()
		a.Wallet += total
		side := s.engine.grantXP(a, def.Skill, def.XP)
		UpdateChallenge(a, catalog.ActionWork, 1)
		decay.SetCooldown(a.Cooldowns, catalog.ActionWork, now, def.Cooldown)

		out = &Outcome{
			Message:      fmt.Sprintf("💼 Você trabalhou como %s e ganhou %s.", job.Name, coins(total)),
			Reward:       total,
			Bonus:        &b,
			SideMessages: side,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mine uses the pickaxe.
func (s *ActionService) Mine(ctx context.Context, id string) (*Outcome, error) {
	return s.gather(ctx, id, catalog.ActionMine)
}

// Fish uses the fishing rod.
func (s *ActionService) Fish(ctx context.Context, id string) (*Outcome, error) {
	return s.gather(ctx, id, catalog.ActionFish)
}

// Hunt needs no tool.
func (s *ActionService) Hunt(ctx context.Context, id string) (*Outcome, error) {
	return s.gather(ctx, id, catalog.ActionHunt)
}

// Explore needs no tool.
func (s *ActionService) Explore(ctx context.Context, id string) (*Outcome, error) {
	return s.gather(ctx, id, catalog.ActionExplore)
}

// gather resolves a reward-and-drops action. A broken tool makes the action
// inert: nothing changes and no cooldown is set.
func (s *ActionService) gather(ctx context.Context, id, action string) (*Outcome, error) {
	def, ok := s.engine.catalog.Actions[action]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Ação desconhecida: %s.", action)
	}

	var out *Outcome
	err := s.engine.mutate(ctx, action, []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, action, now); err != nil {
			return err
		}

		var tool *model.Tool
		tier := 0
		if def.Tool != "" {
			tool = equipped(a, def.Tool)
			if tool == nil {
				return reject(ErrMissingTool, "🛠 Você precisa de %s. Compre na /loja.", toolLabel(def.Tool))
			}
			if tool.Broken() {
				out = &Outcome{
					Message: fmt.Sprintf("💥 Sua %s está quebrada. Use /reparar %s.", toolLabel(def.Tool), def.Tool),
					Data:    map[string]any{"broken": true, "tool": tool.Key},
				}
				return errReadOnly
			}
			tier = tool.Tier
		}

		b := s.engine.reward(a, action, def.Skill, s.engine.roll(def.Min, def.Max), tier)
		total := b.Total()
		a.Wallet += total
		drops := s.engine.rollDrops(a, def.Drops, tier)
		if tool != nil {
			tool.Durability--
		}
		side := s.engine.grantXP(a, def.Skill, def.XP)
		if tool != nil && tool.Broken() {
			side = append(side, fmt.Sprintf("⚠️ Sua %s quebrou!", toolLabel(def.Tool)))
		}
		UpdateChallenge(a, action, 1)
		decay.SetCooldown(a.Cooldowns, action, now, def.Cooldown)

		out = &Outcome{
			Message:      fmt.Sprintf("%s +%s%s", actionIcon(action), coins(total), formatDrops(drops)),
			Reward:       total,
			Bonus:        &b,
			Drops:        drops,
			SideMessages: side,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Crime either pays from the crime range or fines the wallet. Both
// outcomes set the cooldown.
func (s *ActionService) Crime(ctx context.Context, id string) (*Outcome, error) {
	def := s.engine.catalog.Actions[catalog.ActionCrime]
	var out *Outcome
	err := s.engine.mutate(ctx, catalog.ActionCrime, []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, catalog.ActionCrime, now); err != nil {
			return err
		}
		decay.SetCooldown(a.Cooldowns, catalog.ActionCrime, now, def.Cooldown)

		if s.engine.rng.Float64() >= def.SuccessChance {
			fine := min(a.Wallet, s.engine.roll(def.FineMin, def.FineMax))
			a.Wallet -= fine
			out = &Outcome{
				Message: fmt.Sprintf("🚓 Você foi pego! Multa de %s.", coins(fine)),
				Reward:  -fine,
				Data:    map[string]any{"success": false, "fine": fine},
			}
			return nil
		}

		b := s.engine.reward(a, catalog.ActionCrime, def.Skill, s.engine.roll(def.Min, def.Max), 0)
		total := b.Total()
		a.Wallet += total
		side := s.engine.grantXP(a, def.Skill, def.XP)
		UpdateChallenge(a, catalog.ActionCrime, 1)
		out = &Outcome{
			Message:      fmt.Sprintf("🦹 O crime compensou: +%s.", coins(total)),
			Reward:       total,
			Bonus:        &b,
			SideMessages: side,
			Data:         map[string]any{"success": true},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Forge crafts a recipe from materials and gold into inventory items.
func (s *ActionService) Forge(ctx context.Context, id, recipeKey string) (*Outcome, error) {
	cat := s.engine.catalog
	recipe, ok := cat.Recipes[recipeKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Receita desconhecida: %s.", recipeKey)
	}
	def := cat.Actions[catalog.ActionForge]

	var out *Outcome
	err := s.engine.mutate(ctx, catalog.ActionForge, []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, catalog.ActionForge, now); err != nil {
			return err
		}
		if a.Wallet < recipe.Gold {
			return fundsError(recipe.Gold, a.Wallet)
		}
		if err := take(a.Materials, recipe.Materials); err != nil {
			return err
		}
		a.Wallet -= recipe.Gold
		a.Inventory[recipe.Output] += recipe.Quantity

		side := s.engine.grantXP(a, def.Skill, def.XP)
		UpdateChallenge(a, catalog.ActionForge, 1)
		decay.SetCooldown(a.Cooldowns, catalog.ActionForge, now, def.Cooldown)
		out = &Outcome{
			Message:      fmt.Sprintf("⚒ Você forjou %dx %s.", recipe.Quantity, recipe.Name),
			Drops:        map[string]int64{recipe.Output: recipe.Quantity},
			SideMessages: side,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Repair consumes one repair item to restore durability on the tool in slot.
func (s *ActionService) Repair(ctx context.Context, id, slot string) (*Outcome, error) {
	if slot != catalog.SlotPickaxe && slot != catalog.SlotRod {
		return nil, reject(ErrInvalidTarget, "❓ Ferramenta desconhecida: %s.", slot)
	}
	cat := s.engine.catalog

	var out *Outcome
	err := s.engine.mutate(ctx, "repair", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		tool := equipped(a, slot)
		if tool == nil {
			return reject(ErrMissingTool, "🛠 Você não tem %s.", toolLabel(slot))
		}
		if tool.Durability >= tool.MaxDurability {
			return reject(ErrInvalidTarget, "✨ Sua %s já está inteira.", toolLabel(slot))
		}

		kit := ""
		for _, key := range catalog.SortedKeys(cat.Shop) {
			if cat.Shop[key].Type == catalog.ItemRepair && a.Inventory[key] > 0 {
				kit = key
				break
			}
		}
		if kit == "" {
			return resourceError("kit de reparo", 1, 0)
		}

		if err := take(a.Inventory, map[string]int64{kit: 1}); err != nil {
			return err
		}
		tool.Durability = min(tool.MaxDurability, tool.Durability+cat.Shop[kit].Repair)
		out = &Outcome{
			Message: fmt.Sprintf("🔧 %s reparada: %d/%d.", toolLabel(slot), tool.Durability, tool.MaxDurability),
			Data:    *tool,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func equipped(a *model.Account, slot string) *model.Tool {
	switch slot {
	case catalog.SlotPickaxe:
		return a.Tools.Pickaxe
	case catalog.SlotRod:
		return a.Tools.Rod
	}
	return nil
}

func toolLabel(slot string) string {
	switch slot {
	case catalog.SlotPickaxe:
		return "picareta"
	case catalog.SlotRod:
		return "vara de pesca"
	}
	return slot
}

func actionIcon(action string) string {
	switch action {
	case catalog.ActionMine:
		return "⛏"
	case catalog.ActionFish:
		return "🎣"
	case catalog.ActionHunt:
		return "🏹"
	case catalog.ActionExplore:
		return "🧭"
	}
	return "✅"
}

func formatDrops(drops map[string]int64) string {
	if len(drops) == 0 {
		return ""
	}
	keys := catalog.SortedKeys(drops)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%dx %s", drops[k], k)
	}
	return " | " + strings.Join(parts, ", ")
}
