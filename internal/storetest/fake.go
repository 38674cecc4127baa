// Package storetest provides an in-memory fake of store.Store, mirroring
// internal/chaintest's hand-rolled-fake convention so property tests never
// need a real Postgres instance.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Fake is a deterministic in-memory Store. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*intent.Intent

	// Unavailable, if true, makes every call return StoreUnavailable, for
	// exercising the store-down admission path.
	Unavailable bool
}

// New builds an empty Fake.
func New() *Fake {
	return &Fake{rows: make(map[int64]*intent.Intent)}
}

var _ store.Store = (*Fake)(nil)

func (f *Fake) Insert(ctx context.Context, in *intent.Intent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return 0, dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	f.nextID++
	cp := *in
	cp.ID = f.nextID
	cp.Status = intent.StatusPending
	cp.AccountIndex = intent.NoAccountIndex
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (f *Fake) MarkSent(ctx context.Context, id int64, hash string, accountIndex int, recovery bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	row, ok := f.rows[id]
	if !ok {
		return nil
	}
	if !intent.CanTransition(row.Status, intent.StatusSent, recovery) {
		return nil
	}
	row.Status = intent.StatusSent
	row.Hash = hash
	row.AccountIndex = accountIndex
	return nil
}

func (f *Fake) MarkFailed(ctx context.Context, id int64, recovery bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	row, ok := f.rows[id]
	if !ok {
		return nil
	}
	eligible := row.Status == intent.StatusPending || row.Status == intent.StatusSent
	if recovery {
		eligible = eligible || row.Status == intent.StatusFailed
	}
	if !eligible {
		return nil
	}
	row.Retries++
	row.Status = intent.StatusFailed
	return nil
}

func (f *Fake) MarkConfirmed(ctx context.Context, id int64, status intent.Status, blockNumber uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	row, ok := f.rows[id]
	if !ok || row.Status != intent.StatusSent {
		return nil
	}
	row.Status = status
	return nil
}

func (f *Fake) CountPending(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return 0, dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	var n int64
	for _, row := range f.rows {
		if row.Status == intent.StatusPending {
			n++
		}
	}
	return n, nil
}

// NextRecoveryBatch applies the age cutoff to each row's CreatedAt, not to
// its ClientTSMs, and returns eligible rows in map iteration order, not
// sorted by client timestamp.
func (f *Fake) NextRecoveryBatch(ctx context.Context, limit int, maxRetries uint32, ageCutoff time.Time) ([]*intent.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	var out []*intent.Intent
	for _, row := range f.rows {
		if row.Status != intent.StatusFailed {
			continue
		}
		if row.Retries >= maxRetries {
			continue
		}
		if row.CreatedAt.Before(ageCutoff) {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) SentRows(ctx context.Context, limit int) ([]*intent.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	var out []*intent.Intent
	for _, row := range f.rows {
		if row.Status != intent.StatusSent {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) Housekeeping(ctx context.Context, pendingStale, retention time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return dispatchererr.Wrap(dispatchererr.StoreUnavailable, "fake: store down")
	}
	now := time.Now()
	for id, row := range f.rows {
		if row.Status == intent.StatusPending && now.Sub(row.CreatedAt) > pendingStale {
			row.Status = intent.StatusFailed
			row.Retries++
		}
		if (row.Status == intent.StatusConfirmed || row.Status == intent.StatusFailed) && now.Sub(row.CreatedAt) > retention {
			delete(f.rows, id)
		}
	}
	return nil
}

// Get returns a snapshot of row id, for test assertions.
func (f *Fake) Get(id int64) (*intent.Intent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, false
	}
	cp := *row
	return &cp, true
}
