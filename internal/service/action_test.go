package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/model"
)

func TestMine_BronzePickaxe(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Tools.Pickaxe = bronzePickaxe(20)
	})

	// base 30+20=50, pedra 1+2=3, carvao misses
	f.rng.queue([]int{20, 2}, []float64{0.99})

	out, err := svc.Mine(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), out.Reward)
	require.NotNil(t, out.Bonus)
	assert.Equal(t, int64(50), out.Bonus.Base)
	assert.Equal(t, 1.0, out.Bonus.TierMultiplier)
	assert.Equal(t, int64(0), out.Bonus.Bonus)
	assert.Equal(t, map[string]int64{"pedra": 3}, out.Drops)

	a := f.account(t, "u1")
	assert.Equal(t, int64(50), a.Wallet)
	assert.Equal(t, 19, a.Tools.Pickaxe.Durability)
	assert.Equal(t, int64(3), a.Materials["pedra"])
	assert.Zero(t, a.Materials["ferro"], "tier 2 drops are gated")
	assert.Equal(t, testStart.Add(5*time.Minute).UnixMilli(), a.Cooldowns["mine"])
	assert.Equal(t, 15, a.Skills["mining"].XP)
}

func TestMine_PedraAlwaysWithinRange(t *testing.T) {
	for roll := 0; roll < 4; roll++ {
		f := newFixture(t)
		svc := NewActionService(f.engine)
		f.seed(t, "u1", func(a *model.Account) { a.Tools.Pickaxe = bronzePickaxe(20) })
		f.rng.queue([]int{0, roll}, nil)

		_, err := svc.Mine(f.ctx, "u1")
		require.NoError(t, err)
		pedra := f.account(t, "u1").Materials["pedra"]
		assert.GreaterOrEqual(t, pedra, int64(1))
		assert.LessOrEqual(t, pedra, int64(4))
	}
}

func TestMine_MissingTool(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", nil)
	before := f.account(t, "u1")

	_, err := svc.Mine(f.ctx, "u1")
	require.ErrorIs(t, err, ErrMissingTool)

	after := f.account(t, "u1")
	assert.Equal(t, before.Version, after.Version, "rejected command must not persist")
}

func TestMine_BrokenToolIsInert(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Tools.Pickaxe = bronzePickaxe(0) })
	before := f.account(t, "u1")

	out, err := svc.Mine(f.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, out.Reward)
	assert.Empty(t, out.Drops)

	after := f.account(t, "u1")
	assert.Equal(t, before.Version, after.Version)
	assert.Zero(t, after.Wallet)
	assert.Equal(t, 0, after.Tools.Pickaxe.Durability)
	assert.NotNil(t, after.Tools.Pickaxe, "broken tools stay equipped")
	assert.NotContains(t, after.Cooldowns, "mine")
}

func TestMine_LastUseBreaksTool(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Tools.Pickaxe = bronzePickaxe(1) })

	out, err := svc.Mine(f.ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, out.SideMessages)
	assert.True(t, f.account(t, "u1").Tools.Pickaxe.Broken())
}

func TestAction_CooldownGatingLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Tools.Rod = &model.Tool{Key: "vara_bambu", Tier: 1, Durability: 20, MaxDurability: 20} })

	_, err := svc.Fish(f.ctx, "u1")
	require.NoError(t, err)
	before := f.account(t, "u1")

	f.clock.Advance(2 * time.Minute)
	_, err = svc.Fish(f.ctx, "u1")
	require.ErrorIs(t, err, ErrCooldownActive)
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 3*time.Minute, ae.RetryAfter)

	after := f.account(t, "u1")
	assert.Equal(t, before, after)

	f.clock.Advance(3 * time.Minute)
	_, err = svc.Fish(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 18, f.account(t, "u1").Tools.Rod.Durability)
}

func TestHunt_IngredientDrops(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", nil)

	// carne hits with 2, couro misses
	f.rng.queue([]int{0, 1}, []float64{0.1, 0.9})
	out, err := svc.Hunt(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), out.Reward)

	a := f.account(t, "u1")
	assert.Equal(t, int64(2), a.Ingredients["carne"])
	assert.Zero(t, a.Materials["couro"])
}

func TestWork(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", nil)

	_, err := svc.Work(f.ctx, "u1")
	require.ErrorIs(t, err, ErrMissingPrerequisite)

	f.seed(t, "u1", func(a *model.Account) { a.Job = "entregador" })
	out, err := svc.Work(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), out.Reward)
	assert.Equal(t, int64(100), f.account(t, "u1").Wallet)
}

func TestCrime_Failure(t *testing.T) {
	tests := []struct {
		name       string
		wallet     int64
		fineRoll   int
		wantWallet int64
	}{
		{"fine bounded by wallet", 100, 120, 0},
		{"minimum fine", 1000, 0, 920},
		{"maximum fine", 1000, 120, 800},
		{"empty wallet", 0, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := NewActionService(f.engine)
			f.seed(t, "u1", func(a *model.Account) { a.Wallet = tt.wallet })
			f.rng.queue([]int{tt.fineRoll}, []float64{0.5})

			out, err := svc.Crime(f.ctx, "u1")
			require.NoError(t, err)
			assert.LessOrEqual(t, out.Reward, int64(0))

			a := f.account(t, "u1")
			assert.Equal(t, tt.wantWallet, a.Wallet)
			assert.Equal(t, testStart.Add(30*time.Minute).UnixMilli(), a.Cooldowns["crime"])
		})
	}
}

func TestCrime_Success(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", nil)
	f.rng.queue([]int{0}, []float64{0.1})

	out, err := svc.Crime(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), out.Reward)
	assert.Equal(t, int64(150), f.account(t, "u1").Wallet)
}

func TestForge(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Wallet = 100
		a.Materials["ferro"] = 5
		a.Materials["carvao"] = 1
	})
	before := f.account(t, "u1")

	_, err := svc.Forge(f.ctx, "u1", "espada_ferro")
	require.ErrorIs(t, err, ErrInsufficientResource)
	assert.Equal(t, before, f.account(t, "u1"))

	f.seed(t, "u1", func(a *model.Account) { a.Materials["carvao"] = 2 })
	out, err := svc.Forge(f.ctx, "u1", "espada_ferro")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"espada_ferro": 1}, out.Drops)

	a := f.account(t, "u1")
	assert.Zero(t, a.Wallet)
	assert.Zero(t, a.Materials["ferro"])
	assert.Zero(t, a.Materials["carvao"])
	assert.Equal(t, int64(1), a.Inventory["espada_ferro"])

	_, err = svc.Forge(f.ctx, "u1", "nope")
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestRepair(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Tools.Pickaxe = bronzePickaxe(0) })

	_, err := svc.Repair(f.ctx, "u1", "pickaxe")
	require.ErrorIs(t, err, ErrInsufficientResource)

	_, err = svc.Repair(f.ctx, "u1", "rod")
	require.ErrorIs(t, err, ErrMissingTool)

	f.seed(t, "u1", func(a *model.Account) { a.Inventory["kit_reparo"] = 3 })
	_, err = svc.Repair(f.ctx, "u1", "pickaxe")
	require.NoError(t, err)
	_, err = svc.Repair(f.ctx, "u1", "pickaxe")
	require.NoError(t, err)
	_, err = svc.Repair(f.ctx, "u1", "pickaxe")
	require.ErrorIs(t, err, ErrInvalidTarget, "full durability")

	a := f.account(t, "u1")
	assert.Equal(t, 20, a.Tools.Pickaxe.Durability, "repair caps at max durability")
	assert.Equal(t, int64(1), a.Inventory["kit_reparo"])
}

func TestReward_Bonuses(t *testing.T) {
	f := newFixture(t)
	a := model.NewAccount("u1", testStart)
	a.Skills["mining"] = model.Skill{Level: 6}
	a.Inventory["amuleto_sorte"] = 1

	b := f.engine.reward(a, "mine", "mining", 50, 2)
	assert.Equal(t, 1.5, b.TierMultiplier)
	assert.InDelta(t, 0.10, b.ShopBonus, 1e-9)
	assert.InDelta(t, 0.10, b.SkillBonus, 1e-9)
	assert.Equal(t, int64(10), b.Bonus)
	assert.Equal(t, int64(85), b.Total())

	b = f.engine.reward(a, "work", "working", 100, 0)
	assert.Equal(t, 1.0, b.TierMultiplier, "unknown tier defaults to 1.0")
	assert.Zero(t, b.ShopBonus, "amulet does not boost work")
}

func TestGrantXP_LevelsUpWithCarry(t *testing.T) {
	f := newFixture(t)
	a := model.NewAccount("u1", testStart)

	msgs := f.engine.grantXP(a, "mining", 250)
	assert.Len(t, msgs, 1)
	assert.Equal(t, model.Skill{Level: 2, XP: 150}, a.Skills["mining"])

	msgs = f.engine.grantXP(a, "mining", 50)
	assert.Len(t, msgs, 1)
	assert.Equal(t, model.Skill{Level: 3, XP: 0}, a.Skills["mining"])
}
