package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-economy-bot/internal/model"
)

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	svc := NewRankingService(f.engine)
	f.seed(t, "c", func(a *model.Account) { a.Wallet = 100; a.Bank = 900 })
	f.seed(t, "a", func(a *model.Account) { a.Wallet = 1000 })
	f.seed(t, "b", func(a *model.Account) { a.Bank = 5000 })
	f.seed(t, "d", nil)

	board, err := svc.Leaderboard(f.ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "b", board[0].ID)
	assert.Equal(t, "a", board[1].ID, "ties break by id")
	assert.Equal(t, "c", board[2].ID)
	assert.Equal(t, 3, board[2].Rank)

	entry, ok, err := svc.RankOf(f.ctx, "d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, entry.Rank)

	_, ok, err = svc.RankOf(f.ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestRankAccountsProperty checks that ranks are contiguous and net worth
// never increases down the board.
func TestRankAccountsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		accounts := make([]*model.Account, n)
		for i := range accounts {
			accounts[i] = &model.Account{
				ID:     fmt.Sprintf("u%02d", i),
				Wallet: rapid.Int64Range(0, 1000).Draw(rt, "wallet"),
				Bank:   rapid.Int64Range(0, 1000).Draw(rt, "bank"),
			}
		}
		limit := rapid.IntRange(-1, 40).Draw(rt, "limit")

		board := rankAccounts(accounts, limit)

		want := n
		if limit > 0 && limit < n {
			want = limit
		}
		if len(board) != want {
			rt.Fatalf("got %d entries, want %d", len(board), want)
		}
		for i, e := range board {
			if e.Rank != i+1 {
				rt.Fatalf("entry %d has rank %d", i, e.Rank)
			}
			if e.NetWorth != e.Wallet+e.Bank {
				rt.Fatalf("net worth mismatch for %s", e.ID)
			}
			if i == 0 {
				continue
			}
			prev := board[i-1]
			if prev.NetWorth < e.NetWorth || (prev.NetWorth == e.NetWorth && prev.ID > e.ID) {
				rt.Fatalf("out of order: %+v before %+v", prev, e)
			}
		}
	})
}
