// Package scheduler implements the account-selection algorithm of spec.md
// §4.2: idle accounts before busy ones, shortest queue within the chosen
// subset, ties broken by lowest index, quarantined accounts excluded
// entirely.
package scheduler

import (
	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

// Scheduler picks an Account for each newly admitted Intent.
type Scheduler struct {
	pool *account.Pool
}

// New builds a Scheduler over pool.
func New(pool *account.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Schedule selects the best account for in and appends in to its FIFO.
// Returns dispatchererr.NoAvailableAccount if every account is quarantined;
// the caller (the admission boundary) treats this as deferred scheduling,
// not an admission failure, since the Intent is already durably pending.
func (s *Scheduler) Schedule(in *intent.Intent) (*account.Account, error) {
	accounts := s.pool.All()

	var idle, busy []*account.Account
	for _, a := range accounts {
		if a.IsQuarantined() {
			continue
		}
		if a.IsSending() {
			busy = append(busy, a)
		} else {
			idle = append(idle, a)
		}
	}

	chosen := pickShortest(idle)
	if chosen == nil {
		chosen = pickShortest(busy)
	}
	if chosen == nil {
		return nil, dispatchererr.NoAvailableAccount
	}

	chosen.Enqueue(in)
	return chosen, nil
}

// pickShortest returns the account with the fewest queued intents,
// breaking ties by lowest index (candidates is already index-ordered
// since Pool.All preserves construction order). Returns nil for an empty
// candidate set.
func pickShortest(candidates []*account.Account) *account.Account {
	var best *account.Account
	bestLen := -1
	for _, a := range candidates {
		l := a.QueueLen()
		if bestLen == -1 || l < bestLen {
			best = a
			bestLen = l
		}
	}
	return best
}
