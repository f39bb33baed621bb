package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

func newAccountService(f *fixture) *AccountService {
	return NewAccountService(f.engine, DailyConfig{Reward: 500, Cooldown: 24 * time.Hour})
}

func TestAccount_GetUnknownIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)

	a, err := svc.GetAccount(f.ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", a.ID)
	assert.Zero(t, a.Wallet)
	assert.NotZero(t, a.DailyChallenge.ResetAt, "challenges are generated for display")

	_, err = f.store.GetAccount(f.ctx, "ghost")
	require.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccount_Ensure(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)

	a, err := svc.EnsureAccount(f.ctx, "u1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", a.Name)
	assert.Equal(t, testStart.UnixMilli(), a.CreatedAt)

	_, err = svc.EnsureAccount(f.ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Ana", f.account(t, "u1").Name, "empty name keeps the old one")

	accounts, err := svc.ListAccounts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestAccount_ClaimDaily(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)

	out, err := svc.ClaimDaily(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), out.Reward)

	f.clock.Advance(23 * time.Hour)
	_, err = svc.ClaimDaily(f.ctx, "u1")
	require.ErrorIs(t, err, ErrCooldownActive)
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, time.Hour, ae.RetryAfter)

	f.clock.Advance(time.Hour)
	_, err = svc.ClaimDaily(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.account(t, "u1").Wallet)
}

func TestAccount_Banking(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	f.seed(t, "u1", func(a *model.Account) { a.Wallet = 15000 })

	tests := []struct {
		name   string
		amount int64
		want   error
	}{
		{"zero", 0, ErrInvalidAmount},
		{"negative", -5, ErrInvalidAmount},
		{"more than wallet", 15001, ErrInsufficientFunds},
		{"over capacity", 10001, ErrCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Deposit(f.ctx, "u1", tt.amount)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Deposit(f.ctx, "u1", 10000)
	require.NoError(t, err)
	_, err = svc.Deposit(f.ctx, "u1", 1)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = svc.Withdraw(f.ctx, "u1", 10001)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = svc.Withdraw(f.ctx, "u1", 4000)
	require.NoError(t, err)

	a := f.account(t, "u1")
	assert.Equal(t, int64(9000), a.Wallet)
	assert.Equal(t, int64(6000), a.Bank)
}

func TestAccount_UpgradeBank(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	f.seed(t, "u1", func(a *model.Account) { a.Wallet = 6000 })

	_, err := svc.UpgradeBank(f.ctx, "u1")
	require.NoError(t, err)
	_, err = svc.UpgradeBank(f.ctx, "u1")
	require.ErrorIs(t, err, ErrInsufficientFunds, "level 1 to 2 costs 5000")

	a := f.account(t, "u1")
	assert.Equal(t, 1, a.BankLevel)
	assert.Equal(t, int64(4000), a.Wallet)

	_, err = svc.Deposit(f.ctx, "u1", 4000)
	require.NoError(t, err)

	f.seed(t, "u1", func(a *model.Account) {
		a.BankLevel = f.cat.Bank.MaxLevel
		a.Wallet = 1 << 40
	})
	_, err = svc.UpgradeBank(f.ctx, "u1")
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAccount_Jobs(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)

	_, err := svc.QuitJob(f.ctx, "u1")
	require.ErrorIs(t, err, ErrMissingPrerequisite)
	_, err = svc.ApplyJob(f.ctx, "u1", "astronauta")
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.ApplyJob(f.ctx, "u1", "banqueiro")
	require.ErrorIs(t, err, ErrMissingPrerequisite)
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, int64(6), ae.Required)
	assert.Equal(t, int64(1), ae.Available)

	_, err = svc.ApplyJob(f.ctx, "u1", "entregador")
	require.NoError(t, err)
	_, err = svc.ApplyJob(f.ctx, "u1", "entregador")
	require.ErrorIs(t, err, ErrInvalidTarget)

	f.seed(t, "u1", func(a *model.Account) { a.Skills["working"] = model.Skill{Level: 6} })
	_, err = svc.ApplyJob(f.ctx, "u1", "banqueiro")
	require.NoError(t, err)
	assert.Equal(t, "banqueiro", f.account(t, "u1").Job)

	_, err = svc.QuitJob(f.ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, f.account(t, "u1").Job)
}

func TestAccount_Reset(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	market := NewMarketService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Wallet = 700
		a.Materials["ouro"] = 5
	})
	f.seed(t, "u2", func(a *model.Account) { a.Materials["pedra"] = 1 })

	_, err := market.List(f.ctx, "u1", model.KindMaterial, "ouro", 2, 300)
	require.NoError(t, err)
	_, err = market.List(f.ctx, "u1", model.KindMaterial, "ouro", 3, 500)
	require.NoError(t, err)
	_, err = market.List(f.ctx, "u2", model.KindMaterial, "pedra", 1, 10)
	require.NoError(t, err)

	out, err := svc.ResetAccount(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "u1", "listingsRemoved": 2}, out.Data)

	_, err = f.store.GetAccount(f.ctx, "u1")
	require.ErrorIs(t, err, repository.ErrAccountNotFound)
	board, err := market.Listings(f.ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "u2", board[0].Seller)

	_, err = svc.ResetAccount(f.ctx, "u1")
	require.ErrorIs(t, err, ErrInvalidTarget)

	a, err := svc.GetAccount(f.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, a.Wallet, "a reset account starts over")
	assert.Empty(t, a.Materials)
}
