package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/pkg/lock"
	"telegram-economy-bot/internal/repository"
)

// Thursday afternoon; next daily boundary 2024-03-15, weekly 2024-03-18,
// monthly 2024-04-01.
var testStart = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

// scriptRNG replays queued values. When a queue is empty Intn returns 0
// (the minimum of any range) and Float64 returns 0.999 (every chance fails).
type scriptRNG struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

func (r *scriptRNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptRNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0.999
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRNG) queue(ints []int, floats []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ints = append(r.ints, ints...)
	r.floats = append(r.floats, floats...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx    context.Context
	store  *repository.MemoryStore
	cat    *catalog.Catalog
	clock  *testClock
	rng    *scriptRNG
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	f := &fixture{
		ctx:   context.Background(),
		store: repository.NewMemoryStore(),
		cat:   cat,
		clock: &testClock{now: testStart},
		rng:   &scriptRNG{},
	}
	f.engine = NewEngine(f.store, cat, lock.NewAccountLock(),
		WithRNG(f.rng),
		WithClock(f.clock.Now),
		WithLockTimeout(10*time.Second),
		WithMaxRetries(5),
	)
	return f
}

// seed creates or updates an account through the engine.
func (f *fixture) seed(t *testing.T, id string, fn func(a *model.Account)) {
	t.Helper()
	err := f.engine.mutate(f.ctx, "seed", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		if fn != nil {
			fn(accts[id])
		}
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) account(t *testing.T, id string) *model.Account {
	t.Helper()
	a, err := f.store.GetAccount(f.ctx, id)
	require.NoError(t, err)
	return a
}

func bronzePickaxe(durability int) *model.Tool {
	return &model.Tool{Key: "picareta_bronze", Tier: 1, Durability: durability, MaxDurability: 20}
}
