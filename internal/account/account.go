// Package account implements the in-memory Account (spec.md §3): a funded
// signing identity with an independently tracked next-nonce cursor, a FIFO
// of intents awaiting submission, and fault-threshold quarantine. Each
// Account's mutable fields are owned exclusively by its own Sender Loop;
// external readers take a snapshot under a short lock, never holding it
// across a chain or store call. No lock ever spans more than one Account.
package account

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

// Account is a single funded signing identity in the dispatcher's pool.
type Account struct {
	Index   int
	Address string

	mu                 sync.Mutex
	queue              []*intent.Intent
	nextNonce          *uint256.Int
	nonceSeeded        bool
	sending            bool
	consecutiveErrors  int
	quarantined        bool
	totalProcessed     uint64
	lastSubmitTS       time.Time
	lastHash           string
}

// New constructs an idle, non-quarantined Account for the given pool index
// and derived address. next_nonce starts unseeded; the first Sender Loop
// tick seeds it from the chain's pending-tag nonce.
func New(index int, address string) *Account {
	return &Account{Index: index, Address: address}
}

// Snapshot is an immutable, point-in-time view of an Account's
// observability fields, safe to read without holding the Account's lock.
type Snapshot struct {
	Index             int
	Address           string
	QueueLength        int
	Sending            bool
	Quarantined        bool
	ConsecutiveErrors  int
	TotalProcessed     uint64
	LastSubmitTS       time.Time
	LastHash           string
}

// Snapshot takes a short-lived lock and returns an immutable copy of this
// Account's observability fields, used by account_status() (spec.md §6).
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Index:             a.Index,
		Address:           a.Address,
		QueueLength:        len(a.queue),
		Sending:            a.sending,
		Quarantined:        a.quarantined,
		ConsecutiveErrors:  a.consecutiveErrors,
		TotalProcessed:     a.totalProcessed,
		LastSubmitTS:       a.lastSubmitTS,
		LastHash:           a.lastHash,
	}
}

// QueueLen reports the current FIFO depth under lock, used by the
// Scheduler's shortest-queue comparison.
func (a *Account) QueueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// IsSending reports whether a submission is currently in flight.
func (a *Account) IsSending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sending
}

// IsQuarantined reports whether this Account is excluded from scheduling.
func (a *Account) IsQuarantined() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quarantined
}

// Enqueue appends in to this Account's FIFO. Only the Scheduler calls this;
// an Intent must never appear in more than one Account's queue.
func (a *Account) Enqueue(in *intent.Intent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, in)
}

// Peek returns the FIFO head without removing it, or nil if empty.
func (a *Account) Peek() *intent.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return nil
	}
	return a.queue[0]
}

// TryStartSending atomically marks this Account as sending if it is both
// idle and not quarantined, returning false otherwise. This is the mutex
// that guarantees at most one submission is ever in flight per account.
func (a *Account) TryStartSending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sending || a.quarantined {
		return false
	}
	a.sending = true
	return true
}

// StopSending releases the in-flight flag, typically after the cooldown
// delay of spec.md §4.3 step 8.
func (a *Account) StopSending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sending = false
}

// NextNonce returns the current next_nonce cursor and whether it has been
// seeded from the chain yet.
func (a *Account) NextNonce() (*uint256.Int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextNonce, a.nonceSeeded
}

// SeedNonce sets next_nonce the first time, or whenever a resync-from-chain
// is needed. It never decreases an already-seeded nonce except through this
// explicit call, per spec.md §3's invariant.
func (a *Account) SeedNonce(n *uint256.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextNonce = n.Clone()
	a.nonceSeeded = true
}

// AdvanceNonce increments next_nonce by one after a successful submission.
func (a *Account) AdvanceNonce() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nextNonce == nil {
		return
	}
	a.nextNonce = new(uint256.Int).AddUint64(a.nextNonce, 1)
}

// PopSent removes the FIFO head after a successful mark_sent, resets the
// consecutive-error counter, and bumps observability counters.
func (a *Account) PopSent(hash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) > 0 {
		a.queue = a.queue[1:]
	}
	a.consecutiveErrors = 0
	a.totalProcessed++
	a.lastSubmitTS = time.Now()
	a.lastHash = hash
}

// PopFailed removes the FIFO head after a non-retryable rejection and bumps
// the consecutive-error counter, quarantining the account once the counter
// reaches faultThreshold. It reports true only on the call that quarantined.
func (a *Account) PopFailed(faultThreshold int) (quarantinedNow bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) > 0 {
		a.queue = a.queue[1:]
	}
	a.consecutiveErrors++
	if a.consecutiveErrors >= faultThreshold && !a.quarantined {
		a.quarantined = true
		quarantinedNow = true
	}
	return quarantinedNow
}

// Reset clears quarantine and the consecutive-error counter, returning the
// account to the rotation. This is the only operator-triggered mutation.
func (a *Account) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quarantined = false
	a.consecutiveErrors = 0
}
