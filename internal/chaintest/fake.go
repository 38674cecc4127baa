// Package chaintest provides an in-memory fake of chain.Client for the
// property tests described in spec.md §8, following the teacher's own
// convention of hand-rolled test fakes over mocking frameworks (see
// accounts/abi/bind's mockCaller).
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
)

// Fake is a deterministic, in-process chain.Client. Every exported field is
// safe to set before use and some are safe to mutate concurrently via the
// provided setters; direct mutation while workers are running races.
type Fake struct {
	mu sync.Mutex

	pendingNonce map[string]uint64
	submitted    map[string]chain.Call // hash -> call
	receipts     map[string]*chain.Receipt
	nextHash     uint64

	// NonceMismatchFor, if non-nil, reports whether the next Submit/Simulate
	// call for address should fail with NonceMismatch. It is consulted on
	// every such call; the Fake never clears it.
	NonceMismatchFor func(address string) bool
	// RejectFor, if non-nil, reports whether the next Submit/Simulate call
	// for address should fail with SubmissionRejected.
	RejectFor func(address string) bool

	heads chan uint64
}

// New builds an empty Fake; every address reports pending nonce 0 until
// SeedNonce sets it. Submit checks the nonce against the address
// AddressFromKey derives from the signer key ("0x" + key).
func New() *Fake {
	return &Fake{
		pendingNonce: make(map[string]uint64),
		submitted:    make(map[string]chain.Call),
		receipts:     make(map[string]*chain.Receipt),
		heads:        make(chan uint64, 16),
	}
}

// SeedNonce sets the chain-reported pending nonce for address.
func (f *Fake) SeedNonce(address string, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingNonce[address] = nonce
}

// DeliverHead pushes a new-block notification to any active subscriber.
func (f *Fake) DeliverHead(blockNumber uint64) {
	f.heads <- blockNumber
}

// ConfirmAll marks every submitted hash as confirmed at blockNumber.
func (f *Fake) ConfirmAll(blockNumber uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h := range f.submitted {
		f.receipts[h] = &chain.Receipt{BlockNumber: blockNumber, Success: true}
	}
}

// FailReceipt marks hash's receipt as a chain-level failure.
func (f *Fake) FailReceipt(hash string, blockNumber uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[hash] = &chain.Receipt{BlockNumber: blockNumber, Success: false}
}

func (f *Fake) AddressFromKey(signerKey string) (string, error) {
	return "0x" + signerKey, nil
}

func (f *Fake) PendingNonceAt(ctx context.Context, address string) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(uint256.Int).SetUint64(f.pendingNonce[address]), nil
}

func (f *Fake) Simulate(ctx context.Context, signerKey string, call chain.Call, nonce *uint256.Int) error {
	return f.classify(signerKey)
}

func (f *Fake) Submit(ctx context.Context, signerKey string, call chain.Call, nonce *uint256.Int) (string, error) {
	addr, _ := f.AddressFromKey(signerKey)
	if err := f.classify(signerKey); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if nonce.Uint64() != f.pendingNonce[addr] {
		return "", dispatchererr.Wrapf(dispatchererr.NonceMismatch, "fake: want nonce %d got %d", f.pendingNonce[addr], nonce.Uint64())
	}
	f.nextHash++
	hash := fmt.Sprintf("0x%064d", f.nextHash)
	f.submitted[hash] = call
	f.pendingNonce[addr] = nonce.Uint64() + 1
	return hash, nil
}

func (f *Fake) classify(signerKey string) error {
	addr, _ := f.AddressFromKey(signerKey)
	if f.NonceMismatchFor != nil && f.NonceMismatchFor(addr) {
		return dispatchererr.Wrapf(dispatchererr.NonceMismatch, "fake: injected nonce mismatch for %s", addr)
	}
	if f.RejectFor != nil && f.RejectFor(addr) {
		return dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "fake: injected rejection for %s", addr)
	}
	return nil
}

func (f *Fake) Receipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[hash], nil
}

func (f *Fake) SubscribeNewHead(ctx context.Context) (<-chan uint64, chain.Subscription, error) {
	return f.heads, &noopSub{}, nil
}

type noopSub struct{}

func (n *noopSub) Unsubscribe()        {}
func (n *noopSub) Err() <-chan error   { return make(chan error) }

var _ chain.Client = (*Fake)(nil)
