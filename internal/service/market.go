package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// MarketService runs the player-to-player market. Listed goods sit in
// escrow until the lot is bought or cancelled.
type MarketService struct {
	engine *Engine
}

// NewMarketService creates a new MarketService instance.
func NewMarketService(engine *Engine) *MarketService {
	return &MarketService{engine: engine}
}

// List escrows qty of key and publishes it for price (total for the lot).
func (s *MarketService) List(ctx context.Context, id string, kind model.ListingKind, key string, qty, price int64) (*Outcome, error) {
	cat := s.engine.catalog
	if !kind.Valid() {
		return nil, reject(ErrInvalidTarget, "❓ Tipo inválido: %s (use item ou material).", kind)
	}
	if qty <= 0 || price <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ Quantidade e preço precisam ser positivos.")
	}
	if (kind == model.KindMaterial && !cat.Material(key)) || (kind == model.KindItem && !cat.Tradable(key)) {
		return nil, reject(ErrInvalidTarget, "❓ %s não pode ser anunciado como %s.", key, kind)
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "market_list", []string{id}, func(ctx context.Context, tx repository.Tx, accts map[string]*model.Account, now time.Time) error {
		a := accts[id]
		if limit := cat.Market.MaxActivePerSeller; limit > 0 {
			mine, err := tx.ListingsBySeller(ctx, id)
			if err != nil {
				return err
			}
			if len(mine) >= limit {
				return reject(ErrCapacityExceeded, "🏪 Você já tem %d anúncios ativos.", len(mine))
			}
		}
		if err := take(a.Holdings(kind), map[string]int64{key: qty}); err != nil {
			return err
		}

		l := &model.Listing{Seller: id, Kind: kind, Key: key, Quantity: qty, Price: price, CreatedAt: now.UnixMilli()}
		if err := tx.CreateListing(ctx, l); err != nil {
			return err
		}
		out = &Outcome{
			Message: fmt.Sprintf("🏪 Anúncio #%d: %dx %s por %s.", l.ID, qty, key, coins(price)),
			Data:    *l,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Buy pays for a listing. The seller receives the price minus the market
// fee; the fee leaves the economy.
func (s *MarketService) Buy(ctx context.Context, buyerID string, listingID int64) (*Outcome, error) {
	pre, err := s.engine.store.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, listingGone(listingID)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if pre.Seller == buyerID {
		return nil, reject(ErrInvalidTarget, "❌ Você não pode comprar seu próprio anúncio.")
	}

	cat := s.engine.catalog
	var out *Outcome
	err = s.engine.mutate(ctx, "market_buy", []string{buyerID, pre.Seller}, func(ctx context.Context, tx repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		l, err := tx.GetListing(ctx, listingID)
		if errors.Is(err, repository.ErrListingNotFound) {
			return listingGone(listingID)
		} else if err != nil {
			return err
		}
		if l.Seller != pre.Seller {
			return listingGone(listingID)
		}

		buyer, seller := accts[buyerID], accts[l.Seller]
		if err := spend(buyer, l.Price); err != nil {
			return err
		}
		fee := cat.MarketFee(l.Price)
		seller.Wallet += l.Price - fee
		buyer.Holdings(l.Kind)[l.Key] += l.Quantity
		if err := tx.DeleteListing(ctx, l.ID); err != nil {
			return err
		}
		UpdateChallenge(seller, "sell", 1)

		out = &Outcome{
			Message:  fmt.Sprintf("🛒 Comprou %dx %s por %s.", l.Quantity, l.Key, coins(l.Price)),
			Data:     map[string]any{"listing": *l, "fee": fee, "sellerProceeds": l.Price - fee},
			Mentions: []string{l.Seller},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel returns the escrow of one of the caller's own listings.
func (s *MarketService) Cancel(ctx context.Context, id string, listingID int64) (*Outcome, error) {
	var out *Outcome
	err := s.engine.mutate(ctx, "market_cancel", []string{id}, func(ctx context.Context, tx repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		l, err := tx.GetListing(ctx, listingID)
		if errors.Is(err, repository.ErrListingNotFound) {
			return listingGone(listingID)
		} else if err != nil {
			return err
		}
		if l.Seller != id {
			return reject(ErrInvalidTarget, "❌ O anúncio #%d não é seu.", listingID)
		}

		accts[id].Holdings(l.Kind)[l.Key] += l.Quantity
		if err := tx.DeleteListing(ctx, l.ID); err != nil {
			return err
		}
		out = &Outcome{
			Message: fmt.Sprintf("↩️ Anúncio #%d cancelado. %dx %s devolvido.", l.ID, l.Quantity, l.Key),
			Data:    *l,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Listings returns the active board, oldest first.
func (s *MarketService) Listings(ctx context.Context) ([]model.Listing, error) {
	listings, err := s.engine.store.ListListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list market: %w", err)
	}
	return listings, nil
}

func listingGone(id int64) *ActionError {
	return reject(ErrInvalidTarget, "❓ Anúncio #%d não existe mais.", id)
}
