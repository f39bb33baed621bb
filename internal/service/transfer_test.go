package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/model"
)

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.engine)
	f.seed(t, "alice", func(a *model.Account) { a.Wallet = 1000 })
	f.seed(t, "bob", func(a *model.Account) { a.Name = "Bob" })

	tests := []struct {
		name   string
		from   string
		to     string
		amount int64
		want   error
	}{
		{"zero amount", "alice", "bob", 0, ErrInvalidAmount},
		{"negative amount", "alice", "bob", -10, ErrInvalidAmount},
		{"self", "alice", "alice", 10, ErrInvalidTarget},
		{"more than wallet", "alice", "bob", 1001, ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(f.ctx, tt.from, tt.to, tt.amount)
			require.ErrorIs(t, err, tt.want)
		})
	}

	out, err := svc.Transfer(f.ctx, "alice", "bob", 400)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, out.Mentions)
	assert.Contains(t, out.Message, "Bob")

	assert.Equal(t, int64(600), f.account(t, "alice").Wallet)
	assert.Equal(t, int64(400), f.account(t, "bob").Wallet)
}

func TestTransfer_CreatesRecipient(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.engine)
	f.seed(t, "alice", func(a *model.Account) { a.Wallet = 100 })

	_, err := svc.Transfer(f.ctx, "alice", "newcomer", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.account(t, "newcomer").Wallet)
}

// TestTransfer_ConcurrentConservation runs opposing transfers in parallel;
// the sum of wallets never changes and no wallet goes negative.
func TestTransfer_ConcurrentConservation(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.engine)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		f.seed(t, id, func(a *model.Account) { a.Wallet = 500 })
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := ids[i%len(ids)]
			to := ids[(i+1+i/len(ids))%len(ids)]
			if from == to {
				to = ids[(i+2)%len(ids)]
			}
			_, err := svc.Transfer(f.ctx, from, to, int64(50+i*10))
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, id := range ids {
		w := f.account(t, id).Wallet
		assert.GreaterOrEqual(t, w, int64(0))
		total += w
	}
	assert.Equal(t, int64(2000), total)
}
