// Package lock provides per-account locking so that read-modify-write cycles
// on the same account never interleave.
package lock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// accountMutex wraps a mutex with a reference count of current holders.
type accountMutex struct {
	mu       sync.Mutex
	refCount int
}

// AccountLock serializes operations per account id.
type AccountLock struct {
	locks sync.Map // map[string]*accountMutex
	pool  sync.Pool
}

// NewAccountLock creates a new AccountLock instance.
func NewAccountLock() *AccountLock {
	return &AccountLock{
		pool: sync.Pool{
			New: func() any {
				return &accountMutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for the given account id.
func (al *AccountLock) getLock(id string) *accountMutex {
	if v, ok := al.locks.Load(id); ok {
		return v.(*accountMutex)
	}

	newLock := al.pool.Get().(*accountMutex)
	newLock.refCount = 0

	// Another goroutine may have stored one first; keep theirs.
	actual, loaded := al.locks.LoadOrStore(id, newLock)
	if loaded {
		al.pool.Put(newLock)
	}
	return actual.(*accountMutex)
}

// unlock releases the account's lock.
func (al *AccountLock) unlock(id string) {
	if v, ok := al.locks.Load(id); ok {
		lock := v.(*accountMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// lockWithTimeout waits for the lock until timeout or ctx expires.
// Returns true if the lock was acquired.
func (al *AccountLock) lockWithTimeout(ctx context.Context, id string, timeout time.Duration) bool {
	lock := al.getLock(id)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiter still owns a pending Lock; release it once acquired.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// AcquireAll locks every id in sorted order so that two callers locking
// overlapping sets cannot deadlock. Duplicate ids are locked once.
// On failure every lock taken so far is released.
func (al *AccountLock) AcquireAll(ctx context.Context, ids []string, timeout time.Duration) (release func(), err error) {
	keys := SortedUnique(ids)
	held := make([]string, 0, len(keys))
	release = func() {
		for i := len(held) - 1; i >= 0; i-- {
			al.unlock(held[i])
		}
	}

	for _, id := range keys {
		if !al.lockWithTimeout(ctx, id, timeout) {
			release()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, ErrLockTimeout
		}
		held = append(held, id)
	}
	return release, nil
}

// SortedUnique returns ids sorted with duplicates and empty strings removed.
func SortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
