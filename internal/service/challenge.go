package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// ChallengeService exposes the daily, weekly and monthly challenges.
type ChallengeService struct {
	engine *Engine
}

// NewChallengeService creates a new ChallengeService instance.
func NewChallengeService(engine *Engine) *ChallengeService {
	return &ChallengeService{engine: engine}
}

// Challenges rolls over expired instances and returns all three.
func (s *ChallengeService) Challenges(ctx context.Context, id string) ([]model.Challenge, error) {
	var out []model.Challenge
	err := s.engine.mutate(ctx, "challenges", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		out = out[:0]
		for _, c := range accts[id].Challenges() {
			out = append(out, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Claim pays the reward of a completed challenge once per instance.
func (s *ChallengeService) Claim(ctx context.Context, id, period string) (*Outcome, error) {
	var out *Outcome
	err := s.engine.mutate(ctx, "challenge_claim", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		c := a.Challenge(period)
		if c == nil {
			return reject(ErrInvalidTarget, "❓ Período desconhecido: %s.", period)
		}
		if c.Claimed {
			return reject(ErrAlreadyClaimed, "✅ Você já resgatou o desafio %s.", period)
		}
		if !c.IsCompleted() {
			done, total := progress(c)
			return &ActionError{
				Kind:      ErrInsufficientResource,
				Message:   fmt.Sprintf("📋 Desafio %s incompleto (%d/%d tarefas).", period, done, total),
				Required:  int64(total),
				Available: int64(done),
			}
		}

		c.Claimed = true
		a.Wallet += c.Reward
		out = &Outcome{
			Message: fmt.Sprintf("🏆 Desafio %s concluído! +%s", period, coins(c.Reward)),
			Reward:  c.Reward,
			Data:    *c,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateChallenge advances the tasks of taskType on all three instances,
// capping each at its target.
func UpdateChallenge(a *model.Account, taskType string, amount int64) {
	for _, c := range a.Challenges() {
		c.Advance(taskType, amount)
	}
}

func progress(c *model.Challenge) (done, total int) {
	for _, t := range c.Tasks {
		if t.Progress >= t.Target {
			done++
		}
	}
	return done, len(c.Tasks)
}

// rollover regenerates every instance whose reset boundary has passed.
func (e *Engine) rollover(a *model.Account, now time.Time) {
	for _, period := range model.Periods {
		c := a.Challenge(period)
		if now.UnixMilli() < c.ResetAt {
			continue
		}
		sched, ok := e.catalog.Schedule(period)
		cfg, hasCfg := e.catalog.Challenges.Periods[period]
		if !ok || !hasCfg {
			continue
		}
		next := sched.Next(now)
		*c = e.generateChallenge(a.ID, period, cfg.TaskCount, cfg.TargetScale, cfg.RewardMin, cfg.RewardMax, next)
		log.Debug().Str("account", a.ID).Str("period", period).Time("reset_at", next).Msg("Challenge regenerated")
	}
}

// generateChallenge draws tasks from a generator seeded by the account,
// period and boundary, so the same instance is produced on every retry.
func (e *Engine) generateChallenge(id, period string, count int, scale, rewardMin, rewardMax int64, resetAt time.Time) model.Challenge {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", id, period, resetAt.UnixMilli())
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	templates := e.catalog.Challenges.Templates
	order := r.Perm(len(templates))
	if count > len(order) {
		count = len(order)
	}
	if scale <= 0 {
		scale = 1
	}

	c := model.Challenge{Period: period, Tasks: make([]model.Task, 0, count), ResetAt: resetAt.UnixMilli()}
	for _, idx := range order[:count] {
		t := templates[idx]
		target := t.Min
		if t.Max > t.Min {
			target += r.Int63n(t.Max - t.Min + 1)
		}
		c.Tasks = append(c.Tasks, model.Task{Type: t.Type, Target: target * scale})
	}
	c.Reward = rewardMin
	if rewardMax > rewardMin {
		c.Reward += r.Int63n(rewardMax - rewardMin + 1)
	}
	return c
}
