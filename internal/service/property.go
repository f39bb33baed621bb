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

const day = 24 * time.Hour

// PropertyView is one catalog property from an account's point of view.
type PropertyView struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Income      int64  `json:"income"`
	Upkeep      int64  `json:"upkeep"`
	Owned       bool   `json:"owned"`
	PendingDays int    `json:"pendingDays"`
}

// PropertyService handles property purchases and daily income.
type PropertyService struct {
	engine *Engine
}

// NewPropertyService creates a new PropertyService instance.
func NewPropertyService(engine *Engine) *PropertyService {
	return &PropertyService{engine: engine}
}

// Buy purchases a property. Income starts accruing immediately.
func (s *PropertyService) Buy(ctx context.Context, id, key string) (*Outcome, error) {
	def, ok := s.engine.catalog.Properties[key]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Propriedade desconhecida: %s.", key)
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "property_buy", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if a.Properties[key].Owned {
			return reject(ErrInvalidTarget, "🏠 Você já possui %s.", def.Name)
		}
		if err := spend(a, def.Price); err != nil {
			return err
		}
		a.Properties[key] = model.Property{Owned: true, LastCollect: now.UnixMilli()}
		out = &Outcome{Message: fmt.Sprintf("🏠 Você comprou %s por %s.", def.Name, coins(def.Price))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Collect pays the income of every owned property for the whole days since
// the last collection, capped, minus upkeep.
func (s *PropertyService) Collect(ctx context.Context, id string) (*Outcome, error) {
	cat := s.engine.catalog
	var out *Outcome
	err := s.engine.mutate(ctx, "property_collect", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]

		var income, upkeep int64
		materials := map[string]int64{}
		due := map[string]int{}
		nextIn := time.Duration(-1)
		for _, key := range catalog.SortedKeys(a.Properties) {
			p := a.Properties[key]
			def, ok := cat.Properties[key]
			if !p.Owned || !ok {
				continue
			}
			days := decay.PropertyDays(p.LastCollect, now, cat.PropertiesMaxDays)
			if days == 0 {
				left := time.Duration(p.LastCollect+day.Milliseconds()-now.UnixMilli()) * time.Millisecond
				if nextIn < 0 || left < nextIn {
					nextIn = left
				}
				continue
			}
			due[key] = days
			income += int64(days) * def.Income
			upkeep += int64(days) * def.Upkeep
			for m, qty := range def.MaterialIncome {
				materials[m] += int64(days) * qty
			}
		}

		if len(due) == 0 {
			if nextIn < 0 {
				return reject(ErrMissingPrerequisite, "🏠 Você não possui propriedades.")
			}
			return cooldownError(nextIn)
		}
		if a.Wallet+income < upkeep {
			return fundsError(upkeep-income, a.Wallet)
		}

		a.Wallet += income - upkeep
		for m, qty := range materials {
			a.Materials[m] += qty
		}
		for key, days := range due {
			p := a.Properties[key]
			elapsed := now.UnixMilli() - p.LastCollect
			if cat.PropertiesMaxDays > 0 && elapsed >= int64(cat.PropertiesMaxDays+1)*day.Milliseconds() {
				p.LastCollect = now.UnixMilli()
			} else {
				p.LastCollect += int64(days) * day.Milliseconds()
			}
			a.Properties[key] = p
		}

		out = &Outcome{
			Message: fmt.Sprintf("🏘 Renda: +%s, manutenção: -%s%s", coins(income), coins(upkeep), formatDrops(materials)),
			Reward:  income - upkeep,
			Drops:   materials,
			Data:    map[string]any{"days": due, "income": income, "upkeep": upkeep},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Properties lists every catalog property with ownership and pending days.
func (s *PropertyService) Properties(ctx context.Context, id string) ([]PropertyView, error) {
	a, err := s.engine.view(ctx, id)
	if err != nil {
		return nil, err
	}
	cat := s.engine.catalog
	now := s.engine.Now()
	views := make([]PropertyView, 0, len(cat.Properties))
	for _, key := range catalog.SortedKeys(cat.Properties) {
		def := cat.Properties[key]
		p := a.Properties[key]
		v := PropertyView{Key: key, Name: def.Name, Price: def.Price, Income: def.Income, Upkeep: def.Upkeep, Owned: p.Owned}
		if p.Owned {
			v.PendingDays = decay.PropertyDays(p.LastCollect, now, cat.PropertiesMaxDays)
		}
		views = append(views, v)
	}
	return views, nil
}
