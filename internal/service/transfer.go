package service

import (
	"context"
	"fmt"
	"time"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// TransferService handles wallet-to-wallet payments between players.
type TransferService struct {
	engine *Engine
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(engine *Engine) *TransferService {
	return &TransferService{engine: engine}
}

// Transfer moves amount from one wallet to another. No fee is charged, so
// the debit always equals the credit.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount int64) (*Outcome, error) {
	if amount <= 0 {
		return nil, reject(ErrInvalidAmount, "❌ O valor precisa ser positivo.")
	}
	if fromID == toID {
		return nil, reject(ErrInvalidTarget, "❌ Você não pode transferir para si mesmo.")
	}

	var out *Outcome
	err := s.engine.mutate(ctx, "transfer", []string{fromID, toID}, func(_ context.Context, _ repository.Tx, accts map[string]*model.Account, _ time.Time) error {
		from, to := accts[fromID], accts[toID]
		if err := spend(from, amount); err != nil {
			return err
		}
		to.Wallet += amount
		out = &Outcome{
			Message:  fmt.Sprintf("💸 Transferido %s para %s.", coins(amount), displayName(to)),
			Data:     map[string]any{"from": fromID, "to": toID, "amount": amount},
			Mentions: []string{toID},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func displayName(a *model.Account) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
