package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-economy-bot/internal/model"
)

func TestMarket_FeeScenario(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "seller", func(a *model.Account) { a.Materials["ferro"] = 10 })
	f.seed(t, "buyer", func(a *model.Account) { a.Wallet = 1000 })

	out, err := svc.List(f.ctx, "seller", model.KindMaterial, "ferro", 10, 1000)
	require.NoError(t, err)
	listing := out.Data.(model.Listing)
	assert.Equal(t, int64(1), listing.ID)
	assert.Zero(t, f.account(t, "seller").Materials["ferro"], "goods move into escrow")

	out, err = svc.Buy(f.ctx, "buyer", listing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"seller"}, out.Mentions)

	buyer := f.account(t, "buyer")
	seller := f.account(t, "seller")
	assert.Equal(t, int64(0), buyer.Wallet)
	assert.Equal(t, int64(10), buyer.Materials["ferro"])
	assert.Equal(t, int64(950), seller.Wallet)

	board, err := svc.Listings(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, board)

	_, err = svc.Buy(f.ctx, "buyer", listing.ID)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestMarket_BuyRejections(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "seller", func(a *model.Account) { a.Inventory["kit_reparo"] = 2 })
	f.seed(t, "poor", func(a *model.Account) { a.Wallet = 10 })

	out, err := svc.List(f.ctx, "seller", model.KindItem, "kit_reparo", 2, 500)
	require.NoError(t, err)
	id := out.Data.(model.Listing).ID

	_, err = svc.Buy(f.ctx, "seller", id)
	require.ErrorIs(t, err, ErrInvalidTarget)

	before := f.account(t, "poor")
	_, err = svc.Buy(f.ctx, "poor", id)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, f.account(t, "poor"))

	board, err := svc.Listings(f.ctx)
	require.NoError(t, err)
	assert.Len(t, board, 1, "rejected buy keeps the listing active")

	_, err = svc.Buy(f.ctx, "poor", 999)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestMarket_ListValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Materials["ferro"] = 3
		a.Inventory["kit_reparo"] = 1
	})

	tests := []struct {
		name  string
		kind  model.ListingKind
		key   string
		qty   int64
		price int64
		want  error
	}{
		{"bad kind", "pet", "ferro", 1, 10, ErrInvalidTarget},
		{"zero qty", model.KindMaterial, "ferro", 0, 10, ErrInvalidAmount},
		{"zero price", model.KindMaterial, "ferro", 1, 0, ErrInvalidAmount},
		{"unknown material", model.KindMaterial, "mithril", 1, 10, ErrInvalidTarget},
		{"tools are not tradable", model.KindItem, "picareta_bronze", 1, 10, ErrInvalidTarget},
		{"more than owned", model.KindMaterial, "ferro", 4, 10, ErrInsufficientResource},
		{"wrong holdings", model.KindItem, "ferro", 1, 10, ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(f.ctx, "u1", tt.kind, tt.key, tt.qty, tt.price)
			require.ErrorIs(t, err, tt.want)
		})
	}

	a := f.account(t, "u1")
	assert.Equal(t, int64(3), a.Materials["ferro"])
	assert.Equal(t, int64(1), a.Inventory["kit_reparo"])
}

func TestMarket_ActiveListingLimit(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Materials["pedra"] = 100 })

	for i := 0; i < f.cat.Market.MaxActivePerSeller; i++ {
		_, err := svc.List(f.ctx, "u1", model.KindMaterial, "pedra", 1, 5)
		require.NoError(t, err)
	}
	_, err := svc.List(f.ctx, "u1", model.KindMaterial, "pedra", 1, 5)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestMarket_Cancel(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "u1", func(a *model.Account) { a.Materials["ouro"] = 4 })

	out, err := svc.List(f.ctx, "u1", model.KindMaterial, "ouro", 3, 900)
	require.NoError(t, err)
	id := out.Data.(model.Listing).ID

	_, err = svc.Cancel(f.ctx, "u2", id)
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.Cancel(f.ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.account(t, "u1").Materials["ouro"])

	_, err = svc.Cancel(f.ctx, "u1", id)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

// TestMarket_ConcurrentBuyersOneWinner races buyers for a single lot.
func TestMarket_ConcurrentBuyersOneWinner(t *testing.T) {
	f := newFixture(t)
	svc := NewMarketService(f.engine)
	f.seed(t, "seller", func(a *model.Account) { a.Materials["diamante"] = 1 })
	buyers := []string{"b1", "b2", "b3", "b4", "b5"}
	for _, b := range buyers {
		f.seed(t, b, func(a *model.Account) { a.Wallet = 1000 })
	}

	out, err := svc.List(f.ctx, "seller", model.KindMaterial, "diamante", 1, 1000)
	require.NoError(t, err)
	id := out.Data.(model.Listing).ID

	var wg sync.WaitGroup
	results := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b string) {
			defer wg.Done()
			_, results[i] = svc.Buy(f.ctx, b, id)
		}(i, b)
	}
	wg.Wait()

	wins := 0
	var total int64
	for i, b := range buyers {
		if results[i] == nil {
			wins++
		} else {
			assert.ErrorIs(t, results[i], ErrInvalidTarget)
		}
		total += f.account(t, b).Wallet
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(4000), total)
	assert.Equal(t, int64(950), f.account(t, "seller").Wallet)
}

// TestMarketConservationProperty lists, then buys or cancels, and checks
// that currency and goods are conserved up to the destroyed fee.
func TestMarketConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		svc := NewMarketService(f.engine)

		stock := rapid.Int64Range(1, 50).Draw(rt, "stock")
		qty := rapid.Int64Range(1, stock).Draw(rt, "qty")
		price := rapid.Int64Range(1, 100000).Draw(rt, "price")
		wallet := rapid.Int64Range(0, 200000).Draw(rt, "wallet")
		cancel := rapid.Bool().Draw(rt, "cancel")

		f.seed(t, "s", func(a *model.Account) { a.Materials["madeira"] = stock })
		f.seed(t, "b", func(a *model.Account) { a.Wallet = wallet })

		out, err := svc.List(f.ctx, "s", model.KindMaterial, "madeira", qty, price)
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		id := out.Data.(model.Listing).ID

		var fee int64
		if cancel {
			if _, err := svc.Cancel(f.ctx, "s", id); err != nil {
				rt.Fatalf("cancel: %v", err)
			}
		} else {
			_, err := svc.Buy(f.ctx, "b", id)
			switch {
			case wallet < price:
				if !errors.Is(err, ErrInsufficientFunds) {
					rt.Fatalf("expected insufficient funds, got %v", err)
				}
				if _, err := svc.Cancel(f.ctx, "s", id); err != nil {
					rt.Fatalf("cancel after failed buy: %v", err)
				}
			case err != nil:
				rt.Fatalf("buy: %v", err)
			default:
				fee = f.cat.MarketFee(price)
			}
		}

		s, b := f.account(t, "s"), f.account(t, "b")
		if got := s.Wallet + b.Wallet + fee; got != wallet {
			rt.Fatalf("currency not conserved: %d + %d + fee %d != %d", s.Wallet, b.Wallet, fee, wallet)
		}
		if got := s.Materials["madeira"] + b.Materials["madeira"]; got != stock {
			rt.Fatalf("goods not conserved: %d != %d", got, stock)
		}
		board, err := svc.Listings(f.ctx)
		if err != nil || len(board) != 0 {
			rt.Fatalf("listing should be gone: %v %v", board, err)
		}
	})
}
