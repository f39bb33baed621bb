package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/decay"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

const dailyCooldownKey = "daily"

// DailyConfig tunes the daily bonus.
type DailyConfig struct {
	Reward   int64
	Cooldown time.Duration
}

// AccountService handles account lifecycle, banking, jobs and the daily bonus.
type AccountService struct {
	engine *Engine
	daily  DailyConfig
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(engine *Engine, daily DailyConfig) *AccountService {
	return &AccountService{engine: engine, daily: daily}
}

// GetAccount returns the current state of an account. Unknown ids yield a
// default account that is not persisted.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return s.engine.view(ctx, id)
}

// EnsureAccount creates the account on first reference and keeps its
// display name current.
func (s *AccountService) EnsureAccount(ctx context.Context, id, name string) (*model.Account, error) {
	var out *model.Account
	err := s.engine.mutate(ctx, "ensure_account", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if name != "" {
			a.Name = name
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}
	return out.Clone(), nil
}

// ResetAccount deletes an account together with its active listings.
// Escrowed goods on those listings are destroyed.
func (s *AccountService) ResetAccount(ctx context.Context, id string) (*Outcome, error) {
	var removed int
	err := s.engine.transact(ctx, "reset_account", []string{id}, func(ctx context.Context, tx repository.Tx) error {
		removed = 0
		if _, err := tx.GetAccount(ctx, id); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return reject(ErrInvalidTarget, "❓ Conta %s não existe.", id)
			}
			return err
		}
		listings, err := tx.ListingsBySeller(ctx, id)
		if err != nil {
			return err
		}
		for _, l := range listings {
			if err := tx.DeleteListing(ctx, l.ID); err != nil {
				return err
			}
			removed++
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("account", id).Int("listings_removed", removed).Msg("Account reset")
	return &Outcome{
		Message: fmt.Sprintf("🗑 Conta %s apagada (%d anúncios removidos).", id, removed),
		Data:    map[string]any{"id": id, "listingsRemoved": removed},
	}, nil
}

// ListAccounts returns every stored account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.engine.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ClaimDaily credits the daily bonus once per cooldown window.
func (s *AccountService) ClaimDaily(ctx context.Context, id string) (*Outcome, error) {
	var out *Outcome
	err := s.engine.mutate(ctx, "daily", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if err := checkCooldown(a, dailyCooldownKey, now); err != nil {
			return err
		}
		a.Wallet += s.daily.Reward
		decay.SetCooldown(a.Cooldowns, dailyCooldownKey, now, s.daily.Cooldown)
		out = &Outcome{
			Message: fmt.Sprintf("🎁 Bônus diário: +%s", coins(s.daily.Reward)),
			Reward:  s.daily.Reward,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Deposit moves wallet currency into the bank, bounded by capacity.
func (s *AccountService) Deposit(ctx context.Context, id string, amount int64) (*Outcome, error) {
	if amount <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ Valor inválido.")
	}
	cat := s.engine.catalog
	var out *Outcome
	err := s.engine.mutate(ctx, "deposit", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if a.Wallet < amount {
			return fundsError(amount, a.Wallet)
		}
		capacity := cat.BankCapacity(a.BankLevel)
		if a.Bank+amount > capacity {
			return &ActionError{
				Kind:      ErrCapacityExceeded,
				Message:   fmt.Sprintf("🏦 Limite do banco: %s. Espaço livre: %s.", coins(capacity), coins(capacity-a.Bank)),
				Required:  amount,
				Available: capacity - a.Bank,
			}
		}
		a.Wallet -= amount
		a.Bank += amount
		out = &Outcome{Message: fmt.Sprintf("🏦 Depositado %s. Banco: %s.", coins(amount), coins(a.Bank))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Withdraw moves bank currency back into the wallet.
func (s *AccountService) Withdraw(ctx context.Context, id string, amount int64) (*Outcome, error) {
	if amount <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ Valor inválido.")
	}
	var out *Outcome
	err := s.engine.mutate(ctx, "withdraw", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if a.Bank < amount {
			return fundsError(amount, a.Bank)
		}
		a.Bank -= amount
		a.Wallet += amount
		out = &Outcome{Message: fmt.Sprintf("💵 Sacado %s. Carteira: %s.", coins(amount), coins(a.Wallet))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpgradeBank buys the next bank level.
func (s *AccountService) UpgradeBank(ctx context.Context, id string) (*Outcome, error) {
	cat := s.engine.catalog
	var out *Outcome
	err := s.engine.mutate(ctx, "bank_upgrade", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if a.BankLevel >= cat.Bank.MaxLevel {
			return reject(ErrCapacityExceeded, "🏦 Seu banco já está no nível máximo.")
		}
		if err := spend(a, cat.BankUpgradeCost(a.BankLevel)); err != nil {
			return err
		}
		a.BankLevel++
		out = &Outcome{
			Message: fmt.Sprintf("🏦 Banco nível %d! Nova capacidade: %s.", a.BankLevel, coins(cat.BankCapacity(a.BankLevel))),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyJob assigns a job once the working skill is high enough.
func (s *AccountService) ApplyJob(ctx context.Context, id, jobKey string) (*Outcome, error) {
	job, ok := s.engine.catalog.Jobs[jobKey]
	if !ok {
		return nil, reject(ErrInvalidTarget, "❓ Emprego desconhecido: %s.", jobKey)
	}
	skill := s.engine.catalog.Actions[catalog.ActionWork].Skill
	var out *Outcome
	err := s.engine.mutate(ctx, "job_apply", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if a.Job == jobKey {
			return reject(ErrInvalidTarget, "💼 Você já trabalha como %s.", job.Name)
		}
		if lvl := a.Skill(skill).Level; lvl < job.MinLevel {
			return &ActionError{
				Kind:      ErrMissingPrerequisite,
				Message:   fmt.Sprintf("📚 %s exige nível %d de %s (você tem %d).", job.Name, job.MinLevel, skill, lvl),
				Required:  int64(job.MinLevel),
				Available: int64(lvl),
			}
		}
		a.Job = jobKey
		out = &Outcome{Message: fmt.Sprintf("💼 Contratado como %s!", job.Name)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QuitJob clears the current job.
func (s *AccountService) QuitJob(ctx context.Context, id string) (*Outcome, error) {
	var out *Outcome
	err := s.engine.mutate(ctx, "job_quit", []string{id}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		a := accts[id]
		if a.Job == "" {
			return reject(ErrMissingPrerequisite, "💼 Você não tem emprego.")
		}
		a.Job = ""
		out = &Outcome{Message: "👋 Você pediu demissão."}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
