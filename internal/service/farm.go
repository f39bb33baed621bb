package service

import (
	"context"
	"fmt"
	"time"

	"telegram-economy-bot/internal/decay"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// PlotView is a read-only farm plot with its time left.
type PlotView struct {
	Index     int           `json:"index"`
	Seed      string        `json:"seedKey"`
	Name      string        `json:"name"`
	ReadyAt   int64         `json:"readyAt"`
	Remaining time.Duration `json:"remaining"`
	Ready     bool          `json:"ready"`
}

// FarmService handles planting and harvesting.
type FarmService struct {
	engine *Engine
}

// NewFarmService creates a new FarmService instance.
func NewFarmService(engine *Engine) *FarmService {
	return &FarmService{engine: engine}
}

// Plant buys a seed and puts it in a free plot.
func (s *FarmService) Plant(ctx context.Context, id, seedKey string) (*Outcome, error) {
	seed, ok := s.engine.catalog.Seeds[seedKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Semente desconhecida: %s.", seedKey)
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "plant", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if len(a.Farm.Plots) >= a.Farm.MaxPlots {
			return &ActionError{
				Kind:      ErrCapacityExceeded,
				Message:   fmt.Sprintf("🌾 Todos os %d canteiros estão ocupados.", a.Farm.MaxPlots),
				Required:  int64(len(a.Farm.Plots) + 1),
				Available: int64(a.Farm.MaxPlots),
			}
		}
		if err := spend(a, seed.Cost); err != nil {
			return err
		}
		plot := model.Plot{Seed: seedKey, PlantedAt: now.UnixMilli(), ReadyAt: now.Add(seed.GrowTime).UnixMilli()}
		a.Farm.Plots = append(a.Farm.Plots, plot)
		out = &Outcome{
			Message: fmt.Sprintf("🌱 %s plantado! Pronto em %s.", seed.Name, formatDuration(seed.GrowTime)),
			Data:    plot,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Harvest collects every ready plot and keeps the growing ones.
func (s *FarmService) Harvest(ctx context.Context, id string) (*Outcome, error) {
	cat := s.engine.catalog
	var out *Outcome
	err := s.engine.mutate(ctx, "harvest", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		ready, growing, next := decay.PartitionPlots(a.Farm.Plots, now)
		if len(ready) == 0 {
			if len(growing) == 0 {
				return reject(ErrInsufficientResource, "🌾 Você não plantou nada. Use /plantar.")
			}
			return &ActionError{
				Kind:       ErrInsufficientResource,
				Message:    fmt.Sprintf("🌾 Nada pronto ainda. Próxima colheita em %s.", formatDuration(next)),
				RetryAfter: next,
			}
		}

		got := map[string]int64{}
		for _, p := range ready {
			key, qty := p.Seed, int64(1)
			if seed, ok := cat.Seeds[p.Seed]; ok {
				key, qty = seed.YieldKey, seed.Yield
			}
			a.Ingredients[key] += qty
			got[key] += qty
		}
		a.Farm.Plots = growing

		side := s.engine.grantXP(a, cat.Farm.Skill, cat.Farm.XPPerPlot*len(ready))
		UpdateChallenge(a, "harvest", int64(len(ready)))
		out = &Outcome{
			Message:      fmt.Sprintf("🧺 Colheu %d canteiro(s)%s", len(ready), formatDrops(got)),
			Drops:        got,
			SideMessages: side,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Plots lists the farm with the time left on each plot.
func (s *FarmService) Plots(ctx context.Context, id string) ([]PlotView, error) {
	a, err := s.engine.view(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.engine.Now()
	views := make([]PlotView, len(a.Farm.Plots))
	for i, p := range a.Farm.Plots {
		name := p.Seed
		if seed, ok := s.engine.catalog.Seeds[p.Seed]; ok {
			name = seed.Name
		}
		views[i] = PlotView{
			Index:     i + 1,
			Seed:      p.Seed,
			Name:      name,
			ReadyAt:   p.ReadyAt,
			Remaining: decay.PlotRemaining(p, now),
			Ready:     decay.PlotReady(p, now),
		}
	}
	return views, nil
}
