package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/decay"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/pkg/lock"
	"telegram-economy-bot/internal/repository"
)

// Engine defaults.
const (
	DefaultMaxRetries  = 3
	DefaultLockTimeout = 5 * time.Second
)

// errReadOnly rolls back a mutation that turned out to change nothing.
var errReadOnly = errors.New("read-only mutation")

// RNG is the randomness source used for rewards, drops, crime and battles.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRNG returns a goroutine-safe RNG. A zero seed uses the current time.
func NewRNG(seed int64) RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Engine owns the shared dependencies of all services and runs every
// account mutation under per-account locks inside one store transaction.
type Engine struct {
	store       repository.Store
	catalog     *catalog.Catalog
	locks       *lock.AccountLock
	rng         RNG
	clock       func() time.Time
	maxRetries  int
	lockTimeout time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRNG replaces the randomness source.
func WithRNG(r RNG) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces the time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithMaxRetries sets how often a conflicting transaction is retried.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithLockTimeout bounds how long a command waits for account locks.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(store repository.Store, cat *catalog.Catalog, locks *lock.AccountLock, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		catalog:     cat,
		locks:       locks,
		rng:         NewRNG(0),
		clock:       time.Now,
		maxRetries:  DefaultMaxRetries,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the loaded catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Store returns the backing store.
func (e *Engine) Store() repository.Store {
	return e.store
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// transact runs fn under the locks of ids, retrying on version conflicts.
func (e *Engine) transact(ctx context.Context, op string, ids []string, fn func(ctx context.Context, tx repository.Tx) error) error {
	opID := uuid.NewString()
	release, err := e.locks.AcquireAll(ctx, ids, e.lockTimeout)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Str("op_id", opID).Strs("accounts", ids).Msg("Failed to acquire account locks")
		return fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		err = e.store.RunInTx(ctx, fn)
		if err == nil || errors.Is(err, errReadOnly) {
			log.Debug().Str("op", op).Str("op_id", opID).Strs("accounts", ids).Int("attempt", attempt).Msg("Operation committed")
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt > e.maxRetries {
			break
		}
		log.Warn().Str("op", op).Str("op_id", opID).Int("attempt", attempt).Msg("Version conflict, retrying")
	}

	if IsDomainError(err) {
		log.Debug().Err(err).Str("op", op).Str("op_id", opID).Msg("Operation rejected")
		return err
	}
	log.Error().Err(err).Str("op", op).Str("op_id", opID).Strs("accounts", ids).Msg("Operation failed")
	return err
}

// mutateFunc receives the loaded accounts keyed by id and the operation time.
// Returning an error rolls everything back.
type mutateFunc func(ctx context.Context, tx repository.Tx, accts map[string]*model.Account, now time.Time) error

// mutate loads (or creates) every account in ids, prepares them for now,
// runs fn and saves all of them in the same transaction.
func (e *Engine) mutate(ctx context.Context, op string, ids []string, fn mutateFunc) error {
	now := e.clock()
	ids = lock.SortedUnique(ids)
	return e.transact(ctx, op, ids, func(ctx context.Context, tx repository.Tx) error {
		accts := make(map[string]*model.Account, len(ids))
		for _, id := range ids {
			a, err := tx.GetAccount(ctx, id)
			if errors.Is(err, repository.ErrAccountNotFound) {
				a = model.NewAccount(id, now)
			} else if err != nil {
				return err
			}
			e.prepare(a, now)
			accts[id] = a
		}

		if err := fn(ctx, tx, accts, now); err != nil {
			return err
		}

		for _, id := range ids {
			if err := tx.SaveAccount(ctx, accts[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

// view returns a prepared, unsaved copy of an account. Unknown ids yield a
// fresh default account.
func (e *Engine) view(ctx context.Context, id string) (*model.Account, error) {
	now := e.clock()
	a, err := e.store.GetAccount(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		a = model.NewAccount(id, now)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	e.prepare(a, now)
	return a, nil
}

// prepare applies catalog defaults and challenge rollover.
func (e *Engine) prepare(a *model.Account, now time.Time) {
	a.EnsureDefaults()
	if a.Farm.MaxPlots < e.catalog.Farm.MaxPlots {
		a.Farm.MaxPlots = e.catalog.Farm.MaxPlots
	}
	e.rollover(a, now)
}

func (e *Engine) roll(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(e.rng.Intn(int(hi-lo+1)))
}

// reward applies the tier multiplier, shop boosts and skill bonus to raw.
func (e *Engine) reward(a *model.Account, action, skill string, raw int64, tier int) Bonus {
	b := Bonus{
		Base:           raw,
		TierMultiplier: e.catalog.TierMultiplier(tier),
		ShopBonus:      e.shopBonus(a, action),
		SkillBonus:     e.skillBonus(a, skill),
	}
	b.Bonus = int64(math.Floor(float64(raw)*(b.ShopBonus+b.SkillBonus)))
	return b
}

// Total is the credited amount.
func (b Bonus) Total() int64 {
	return int64(math.Floor(float64(b.Base)*b.TierMultiplier)) + b.Bonus
}

func (e *Engine) shopBonus(a *model.Account, action string) float64 {
	var total float64
	for key, it := range e.catalog.Shop {
		if it.Type != catalog.ItemBoost || a.Inventory[key] <= 0 {
			continue
		}
		for _, act := range it.BoostAction {
			if act == action {
				total += it.Boost
				break
			}
		}
	}
	return total
}

func (e *Engine) skillBonus(a *model.Account, skill string) float64 {
	if skill == "" {
		return 0
	}
	return float64(a.Skill(skill).Level-1) * e.catalog.Skills.BonusPerLevel
}

// grantXP adds xp to skill and returns a message per level gained.
func (e *Engine) grantXP(a *model.Account, skill string, xp int) []string {
	if skill == "" || xp <= 0 {
		return nil
	}
	cfg := e.catalog.Skills
	s := a.Skill(skill)
	s.XP += xp
	var msgs []string
	for cfg.XPPerLevel > 0 && s.Level < cfg.MaxLevel && s.XP >= s.Level*cfg.XPPerLevel {
		s.XP -= s.Level * cfg.XPPerLevel
		s.Level++
		msgs = append(msgs, fmt.Sprintf("⭐ %s subiu para o nível %d!", skill, s.Level))
	}
	a.Skills[skill] = s
	return msgs
}

// rollDrops resolves a drop table for the given tool tier and credits the
// account. It returns what was credited.
func (e *Engine) rollDrops(a *model.Account, drops []catalog.Drop, tier int) map[string]int64 {
	got := map[string]int64{}
	for _, d := range drops {
		if d.MinTier > tier {
			continue
		}
		if d.Chance < 1 && e.rng.Float64() >= d.Chance {
			continue
		}
		qty := e.roll(d.Min, d.Max)
		if qty <= 0 {
			continue
		}
		switch d.Into {
		case catalog.IntoIngredients:
			a.Ingredients[d.Key] += qty
		case catalog.IntoInventory:
			a.Inventory[d.Key] += qty
		default:
			a.Materials[d.Key] += qty
		}
		got[d.Key] += qty
	}
	return got
}

func checkCooldown(a *model.Account, key string, now time.Time) error {
	if left := decay.CooldownRemaining(a.Cooldowns, key, now); left > 0 {
		return cooldownError(left)
	}
	return nil
}

// mulQty multiplies a unit price by qty, rejecting products that do not fit
// in an int64.
func mulQty(unit, qty int64) (int64, error) {
	if unit > 0 && qty > math.MaxInt64/unit {
		return 0, reject(ErrInvalidAmount, "❌ Quantidade grande demais: %d.", qty)
	}
	return unit * qty, nil
}

func spend(a *model.Account, amount int64) error {
	if a.Wallet < amount {
		return fundsError(amount, a.Wallet)
	}
	a.Wallet -= amount
	return nil
}

// take removes the given counts from holdings after checking all of them.
func take(holdings, need map[string]int64) error {
	for _, key := range catalog.SortedKeys(need) {
		if holdings[key] < need[key] {
			return resourceError(key, need[key], holdings[key])
		}
	}
	for key, n := range need {
		holdings[key] -= n
		if holdings[key] == 0 {
			delete(holdings, key)
		}
	}
	return nil
}
