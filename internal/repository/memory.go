package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"telegram-economy-bot/internal/model"
)

// MemoryStore keeps everything in process memory. Transactions are
// optimistic: writes are staged and validated against the committed
// versions under the store mutex at commit time.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	listings map[int64]model.Listing
	counter  atomic.Int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		listings: make(map[int64]model.Listing),
	}
}

// RunInTx runs fn against a staging transaction and commits it if fn succeeds.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		s:               s,
		staged:          make(map[string]*model.Account),
		expected:        make(map[string]int64),
		deletedAccounts: make(map[string]bool),
		created:         make(map[int64]model.Listing),
		deletedListings: make(map[int64]bool),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

// GetAccount returns a copy of the committed account.
func (s *MemoryStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a.Clone(), nil
}

// ListAccounts returns copies of all accounts ordered by id.
func (s *MemoryStore) ListAccounts(_ context.Context) ([]*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetListing returns an active listing.
func (s *MemoryStore) GetListing(_ context.Context, id int64) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	return &l, nil
}

// ListListings returns the active board, oldest first.
func (s *MemoryStore) ListListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MarketCounter returns the last issued listing id.
func (s *MemoryStore) MarketCounter(_ context.Context) (int64, error) {
	return s.counter.Load(), nil
}

// Restore replaces the store content.
func (s *MemoryStore) Restore(_ context.Context, accounts []*model.Account, listings []model.Listing, counter int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*model.Account, len(accounts))
	for _, a := range accounts {
		c := a.Clone()
		if c.Version < 1 {
			c.Version = 1
		}
		s.accounts[c.ID] = c
	}
	s.listings = make(map[int64]model.Listing, len(listings))
	for _, l := range listings {
		s.listings[l.ID] = l
		if l.ID > counter {
			counter = l.ID
		}
	}
	s.counter.Store(counter)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	s *MemoryStore

	staged          map[string]*model.Account
	expected        map[string]int64
	deletedAccounts map[string]bool
	created         map[int64]model.Listing
	deletedListings map[int64]bool
}

func (tx *memoryTx) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if tx.deletedAccounts[id] {
		return nil, ErrAccountNotFound
	}
	if a, ok := tx.staged[id]; ok {
		return a.Clone(), nil
	}
	return tx.s.GetAccount(ctx, id)
}

func (tx *memoryTx) SaveAccount(_ context.Context, a *model.Account) error {
	if _, ok := tx.expected[a.ID]; !ok {
		tx.expected[a.ID] = a.Version
	}
	a.Version++
	tx.staged[a.ID] = a.Clone()
	delete(tx.deletedAccounts, a.ID)
	return nil
}

func (tx *memoryTx) DeleteAccount(_ context.Context, id string) error {
	delete(tx.staged, id)
	delete(tx.expected, id)
	tx.deletedAccounts[id] = true
	return nil
}

func (tx *memoryTx) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	if tx.deletedListings[id] {
		return nil, ErrListingNotFound
	}
	if l, ok := tx.created[id]; ok {
		return &l, nil
	}
	return tx.s.GetListing(ctx, id)
}

func (tx *memoryTx) ListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error) {
	board, err := tx.s.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Listing{}
	for _, l := range board {
		if l.Seller == seller && !tx.deletedListings[l.ID] {
			out = append(out, l)
		}
	}
	for _, l := range tx.created {
		if l.Seller == seller {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memoryTx) CreateListing(_ context.Context, l *model.Listing) error {
	l.ID = tx.s.counter.Add(1)
	tx.created[l.ID] = *l
	return nil
}

func (tx *memoryTx) DeleteListing(ctx context.Context, id int64) error {
	if _, ok := tx.created[id]; ok {
		delete(tx.created, id)
		return nil
	}
	if tx.deletedListings[id] {
		return ErrListingNotFound
	}
	if _, err := tx.s.GetListing(ctx, id); err != nil {
		return err
	}
	tx.deletedListings[id] = true
	return nil
}

func (tx *memoryTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, want := range tx.expected {
		cur, ok := s.accounts[id]
		switch {
		case ok && cur.Version != want:
			return ErrConflict
		case !ok && want != 0:
			return ErrConflict
		}
	}
	for id := range tx.deletedListings {
		if _, ok := s.listings[id]; !ok {
			return ErrConflict
		}
	}

	for id := range tx.deletedAccounts {
		delete(s.accounts, id)
	}
	for id, a := range tx.staged {
		s.accounts[id] = a
	}
	for id := range tx.deletedListings {
		delete(s.listings, id)
	}
	for id, l := range tx.created {
		s.listings[id] = l
	}
	return nil
}
