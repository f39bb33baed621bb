package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-economy-bot/internal/model"
)

func TestPets_Adopt(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Wallet = 5000 })

	_, err := svc.Adopt(f.ctx, "u1", "unicornio", "")
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.Adopt(f.ctx, "u1", "cachorro", "Rex")
	require.NoError(t, err)
	_, err = svc.Adopt(f.ctx, "u1", "gato", "")
	require.NoError(t, err)
	_, err = svc.Adopt(f.ctx, "u1", "gato", "Mia")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	a := f.account(t, "u1")
	require.Len(t, a.Pets, 2)
	assert.Equal(t, "Rex", a.Pets[0].Name)
	assert.Equal(t, 100, a.Pets[0].HP)
	assert.Equal(t, 12, a.Pets[0].Attack)
	assert.Equal(t, "Gato", a.Pets[1].Name, "species name is the default")
	assert.Equal(t, int64(5000-1500-1200), a.Wallet)

	f.seed(t, "u1", func(a *model.Account) { a.Wallet = 100000 })
	_, err = svc.Adopt(f.ctx, "u1", "gato", "")
	require.NoError(t, err)
	_, err = svc.Adopt(f.ctx, "u1", "gato", "")
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestPets_FeedAfterDecay(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Wallet = 1500 })
	_, err := svc.Adopt(f.ctx, "u1", "cachorro", "Rex")
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	_, err = svc.Feed(f.ctx, "u1", 0, "")
	require.ErrorIs(t, err, ErrInsufficientResource)

	f.seed(t, "u1", func(a *model.Account) { a.Inventory["racao"] = 1 })
	_, err = svc.Feed(f.ctx, "u1", 5, "")
	require.ErrorIs(t, err, ErrInvalidTarget)
	_, err = svc.Feed(f.ctx, "u1", 0, "kit_reparo")
	require.ErrorIs(t, err, ErrInvalidTarget)

	out, err := svc.Feed(f.ctx, "u1", 0, "")
	require.NoError(t, err)
	pet := out.Data.(model.Pet)
	assert.Equal(t, 80, pet.Hunger, "50 after 12h, +30 from food")
	assert.Equal(t, 75, pet.Mood)
	assert.Equal(t, 100, pet.HP, "hp stays capped")
	assert.Zero(t, f.account(t, "u1").Inventory["racao"])
}

func TestPets_PlayCooldown(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Pets = append(a.Pets, model.Pet{Species: "gato", Name: "Mia", Level: 1, Hunger: 100, Mood: 50, HP: 80, MaxHP: 80, LastUpdate: testStart.UnixMilli()})
	})

	out, err := svc.Play(f.ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 70, out.Data.(model.Pet).Mood)

	_, err = svc.Play(f.ctx, "u1", 0)
	require.ErrorIs(t, err, ErrCooldownActive)

	f.clock.Advance(30 * time.Minute)
	_, err = svc.Play(f.ctx, "u1", 0)
	require.NoError(t, err)

	pet := f.account(t, "u1").Pets[0]
	assert.Equal(t, 90, pet.Mood)
	assert.Equal(t, 20, pet.Exp)
}

func TestPets_Battle(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.engine)
	f.seed(t, "a", func(a *model.Account) {
		a.Pets = append(a.Pets, model.Pet{Species: "cachorro", Name: "Rex", Level: 1, Hunger: 100, Mood: 100, HP: 100, MaxHP: 100, Attack: 12, Defense: 8, LastUpdate: testStart.UnixMilli()})
	})
	f.seed(t, "d", func(a *model.Account) {
		a.Pets = append(a.Pets, model.Pet{Species: "gato", Name: "Mia", Level: 1, Hunger: 100, Mood: 100, HP: 80, MaxHP: 80, Attack: 14, Defense: 6, LastUpdate: testStart.UnixMilli()})
	})
	f.seed(t, "nopet", nil)

	_, err := svc.Battle(f.ctx, "a", "a", 0)
	require.ErrorIs(t, err, ErrInvalidTarget)
	_, err = svc.Battle(f.ctx, "nopet", "a", 0)
	require.ErrorIs(t, err, ErrMissingPrerequisite)
	_, err = svc.Battle(f.ctx, "a", "nopet", 0)
	require.ErrorIs(t, err, ErrInvalidTarget)

	// both base powers are 57; the attacker rolls 20, the defender 0
	f.rng.queue([]int{20, 0}, nil)
	out, err := svc.Battle(f.ctx, "a", "d", 0)
	require.NoError(t, err)
	report := out.Data.(BattleReport)
	assert.Equal(t, 77, report.AttackerPower)
	assert.Equal(t, 57, report.DefenderPower)
	assert.Equal(t, "Rex", report.Winner)
	assert.Equal(t, 8, report.HPLost)

	rex := f.account(t, "a").Pets[0]
	mia := f.account(t, "d").Pets[0]
	assert.Equal(t, 1, rex.Wins)
	assert.Equal(t, 30, rex.Exp)
	assert.Equal(t, 1, mia.Losses)
	assert.Equal(t, 10, mia.Exp)
	assert.Equal(t, 72, mia.HP)

	_, err = svc.Battle(f.ctx, "a", "d", 0)
	require.ErrorIs(t, err, ErrCooldownActive)

	// after an hour of decay Mia scores 55 against Rex's 56
	f.clock.Advance(time.Hour)
	f.rng.queue([]int{0, 0}, nil)
	out, err = svc.Battle(f.ctx, "d", "a", 0)
	require.NoError(t, err)
	assert.Equal(t, "Rex", out.Data.(BattleReport).Winner)
}

func TestPets_LevelUp(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.engine)
	p := &model.Pet{Level: 1, Exp: 90, Attack: 10, Defense: 5, MaxHP: 100}

	msgs := svc.gainExp(p, 220)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 10, p.Exp)
	assert.Equal(t, 12, p.Attack)
	assert.Equal(t, 7, p.Defense)
	assert.Equal(t, 110, p.MaxHP)
}

// TestPetBoundsProperty runs random care, battles and idle time and checks
// the stat bounds after every step.
func TestPetBoundsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		svc := NewPetService(f.engine)
		f.seed(t, "a", func(a *model.Account) {
			a.Wallet = 100000
			a.Inventory["racao"] = 50
			a.Inventory["petisco"] = 50
		})
		f.seed(t, "b", func(a *model.Account) { a.Wallet = 100000 })
		if _, err := svc.Adopt(f.ctx, "a", "cachorro", ""); err != nil {
			rt.Fatalf("adopt: %v", err)
		}
		if _, err := svc.Adopt(f.ctx, "b", "dragao", ""); err != nil {
			rt.Fatalf("adopt: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			f.clock.Advance(time.Duration(rapid.IntRange(0, 96).Draw(rt, "hours")) * time.Hour)
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				_, _ = svc.Feed(f.ctx, "a", 0, "")
			case 1:
				_, _ = svc.Play(f.ctx, "a", 0)
			case 2:
				f.rng.queue([]int{rapid.IntRange(0, 24).Draw(rt, "r1"), rapid.IntRange(0, 24).Draw(rt, "r2")}, nil)
				_, _ = svc.Battle(f.ctx, "a", "b", 0)
			case 3:
				if _, err := svc.Pets(f.ctx, "a"); err != nil {
					rt.Fatalf("pets: %v", err)
				}
			}

			for _, id := range []string{"a", "b"} {
				for _, p := range f.account(t, id).Pets {
					if p.Hunger < 0 || p.Hunger > 100 || p.Mood < 0 || p.Mood > 100 || p.HP < 1 || p.HP > p.MaxHP {
						rt.Fatalf("pet out of bounds: %+v", p)
					}
				}
			}
		}
	})
}
