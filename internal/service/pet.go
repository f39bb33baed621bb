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

// Cooldown keys for pet interactions.
const (
	petPlayCooldownKey   = "pet_play"
	petBattleCooldownKey = "pet_battle"
)

// BattleReport describes a finished pet battle.
type BattleReport struct {
	Winner        string `json:"winner"`
	Loser         string `json:"loser"`
	AttackerPower int    `json:"attackerPower"`
	DefenderPower int    `json:"defenderPower"`
	HPLost        int    `json:"hpLost"`
}

// PetService handles adoption, care and battles.
type PetService struct {
	engine *Engine
}

// NewPetService creates a new PetService instance.
func NewPetService(engine *Engine) *PetService {
	return &PetService{engine: engine}
}

// Adopt buys a pet of the given species.
func (s *PetService) Adopt(ctx context.Context, id, species, name string) (*Outcome, error) {
	cfg := s.engine.catalog.Pets
	sp, ok := cfg.Species[species]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Espécie desconhecida: %s.", species)
	}
	if name == "" {
		name = sp.Name
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "pet_adopt", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if len(a.Pets) >= cfg.MaxOwned {
			return reject(ErrCapacityExceeded, "🐾 Você já tem %d pets.", len(a.Pets))
		}
		if err := spend(a, sp.Price); err != nil {
			return err
		}
		pet := model.Pet{
			Species:    species,
			Name:       name,
			Level:      1,
			Hunger:     decay.MaxNeed,
			Mood:       decay.MaxNeed,
			HP:         sp.MaxHP,
			MaxHP:      sp.MaxHP,
			Attack:     sp.Attack,
			Defense:    sp.Defense,
			LastUpdate: now.UnixMilli(),
		}
		a.Pets = append(a.Pets, pet)
		out = &Outcome{Message: fmt.Sprintf("🐾 Você adotou %s (%s)!", name, sp.Name), Data: pet}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Feed gives one pet food item to the pet at index. An empty foodKey picks
// the first food the account owns.
func (s *PetService) Feed(ctx context.Context, id string, index int, foodKey string) (*Outcome, error) {
	cat := s.engine.catalog
	if foodKey != "" {
		if it, ok := cat.Shop[foodKey]; !ok || it.Type != catalog.ItemPetFood {
			return nil, reject(ErrInvalidTarget, "❓ %s não é comida de pet.", foodKey)
		}
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "pet_feed", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		pet, err := petAt(a, index)
		if err != nil {
			return err
		}
		decay.ApplyPetDecay(pet, now)

		food := foodKey
		if food == "" {
			for _, key := range cat.ShopKeys() {
				if cat.Shop[key].Type == catalog.ItemPetFood && a.Inventory[key] > 0 {
					food = key
					break
				}
			}
			if food == "" {
				return resourceError("comida de pet", 1, 0)
			}
		}
		if err := take(a.Inventory, map[string]int64{food: 1}); err != nil {
			return err
		}

		it := cat.Shop[food]
		pet.Hunger += it.Hunger
		pet.HP += it.HP
		decay.ClampPet(pet)
		out = &Outcome{
			Message: fmt.Sprintf("🍖 %s comeu %s. Fome %d/100, HP %d/%d.", pet.Name, it.Name, pet.Hunger, pet.HP, pet.MaxHP),
			Data:    *pet,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Play raises mood and experience of the pet at index.
func (s *PetService) Play(ctx context.Context, id string, index int) (*Outcome, error) {
	cfg := s.engine.catalog.Pets
	var out *Outcome
	err := s.engine.mutate(ctx, "pet_play", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		pet, err := petAt(a, index)
		if err != nil {
			return err
		}
		if err := checkCooldown(a, petPlayCooldownKey, now); err != nil {
			return err
		}
		decay.ApplyPetDecay(pet, now)

		pet.Mood += cfg.PlayMood
		decay.ClampPet(pet)
		side := s.gainExp(pet, cfg.PlayExp)
		decay.SetCooldown(a.Cooldowns, petPlayCooldownKey, now, cfg.PlayCooldown)
		out = &Outcome{
			Message:      fmt.Sprintf("🎾 Você brincou com %s. Humor %d/100.", pet.Name, pet.Mood),
			SideMessages: side,
			Data:         *pet,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Pets brings every pet up to date and returns them.
func (s *PetService) Pets(ctx context.Context, id string) ([]model.Pet, error) {
	var out []model.Pet
	err := s.engine.mutate(ctx, "pets", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		for i := range a.Pets {
			decay.ApplyPetDecay(&a.Pets[i], now)
		}
		out = append([]model.Pet(nil), a.Pets...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Battle pits the attacker's pet at index against the defender's first pet.
func (s *PetService) Battle(ctx context.Context, attackerID, defenderID string, index int) (*Outcome, error) {
	if attackerID == defenderID {
		return nil, reject(ErrInvalidTarget, "❌ Escolha outro jogador para batalhar.")
	}
	cfg := s.engine.catalog.Pets

	var out *Outcome
	err := s.engine.mutate(ctx, "pet_battle", []string{attackerID, defenderID}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		atk, def := accts[attackerID], accts[defenderID]
		if len(atk.Pets) == 0 {
			return reject(ErrMissingPrerequisite, "🐾 Você não tem pets. Use /adotar.")
		}
		mine, err := petAt(atk, index)
		if err != nil {
			return err
		}
		if len(def.Pets) == 0 {
			return reject(ErrInvalidTarget, "🐾 %s não tem pets.", displayName(def))
		}
		theirs := &def.Pets[0]
		if err := checkCooldown(atk, petBattleCooldownKey, now); err != nil {
			return err
		}

		decay.ApplyPetDecay(mine, now)
		decay.ApplyPetDecay(theirs, now)

		report := BattleReport{AttackerPower: s.power(mine), DefenderPower: s.power(theirs)}
		winner, loser := theirs, mine
		if report.AttackerPower > report.DefenderPower {
			winner, loser = mine, theirs
		}
		report.Winner, report.Loser = winner.Name, loser.Name

		winner.Wins++
		loser.Losses++
		report.HPLost = max(1, loser.MaxHP*cfg.LossHPPercent/100)
		loser.HP -= report.HPLost
		decay.ClampPet(loser)

		side := s.gainExp(winner, cfg.BattleExpWin)
		side = append(side, s.gainExp(loser, cfg.BattleExpLoss)...)
		decay.SetCooldown(atk.Cooldowns, petBattleCooldownKey, now, cfg.BattleCooldown)

		out = &Outcome{
			Message:      fmt.Sprintf("⚔️ %s (%d) x %s (%d): %s venceu!", mine.Name, report.AttackerPower, theirs.Name, report.DefenderPower, winner.Name),
			SideMessages: side,
			Data:         report,
			Mentions:     []string{defenderID},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// power is the pet's battle score with a small random swing.
func (s *PetService) power(p *model.Pet) int {
	return p.Attack*2 + p.Defense + p.Level*5 + p.HP/10 + p.Mood/10 + s.engine.rng.Intn(25)
}

func (s *PetService) gainExp(p *model.Pet, exp int) []string {
	per := s.engine.catalog.Pets.ExpPerLevel
	if exp <= 0 || per <= 0 {
		return nil
	}
	p.Exp += exp
	var msgs []string
	for p.Exp >= p.Level*per {
		p.Exp -= p.Level * per
		p.Level++
		p.Attack++
		p.Defense++
		p.MaxHP += 5
		msgs = append(msgs, fmt.Sprintf("🆙 %s chegou ao nível %d!", p.Name, p.Level))
	}
	return msgs
}

func petAt(a *model.Account, index int) (*model.Pet, error) {
	if index < 0 || index >= len(a.Pets) {
		return nil, reject(ErrInvalidTarget, "🐾 Pet #%d não existe.", index+1)
	}
	return &a.Pets[index], nil
}
