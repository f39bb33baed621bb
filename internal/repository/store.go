// Package repository provides the persistence façade for accounts and the
// market board. Every backend offers the same transactional contract:
// reads inside RunInTx see the transaction's own writes, account saves are
// guarded by an optimistic version check, and a closure error rolls back
// everything it staged.
package repository

import (
	"context"
	"errors"

	"telegram-economy-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrListingNotFound = errors.New("listing not found")
	// ErrConflict means a concurrent writer committed first; the caller may retry.
	ErrConflict = errors.New("concurrent modification")
)

// Tx is the view of the store inside one transaction.
type Tx interface {
	// GetAccount returns a private copy of the account.
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	// SaveAccount inserts or updates a. The write succeeds only if the stored
	// version still equals a.Version; a.Version is advanced on success.
	SaveAccount(ctx context.Context, a *model.Account) error
	// DeleteAccount removes the account. Missing accounts are not an error.
	DeleteAccount(ctx context.Context, id string) error

	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	ListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error)
	// CreateListing assigns l.ID from the market counter and stores l.
	CreateListing(ctx context.Context, l *model.Listing) error
	// DeleteListing removes an active listing, ErrListingNotFound if it is gone.
	DeleteListing(ctx context.Context, id int64) error
}

// Store is implemented by every persistence backend.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	// ListListings returns the active board ordered by id.
	ListListings(ctx context.Context) ([]model.Listing, error)
	MarketCounter(ctx context.Context) (int64, error)

	// Restore replaces the whole content of the store.
	Restore(ctx context.Context, accounts []*model.Account, listings []model.Listing, counter int64) error
	Close() error
}
