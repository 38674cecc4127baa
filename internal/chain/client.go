// Package chain wraps the go-ethereum client and contract-binding
// libraries behind a narrow interface, per the re-architecture guidance in
// spec.md §9: expose collaborators as constructor-injected interfaces so
// property tests can substitute deterministic fakes (internal/chaintest).
package chain

import (
	"context"

	"github.com/holiman/uint256"
)

// Call is one contract invocation, kind-tagged the way spec.md §3 tags an
// Intent, so the sender loop can build the right ABI call without a type
// switch leaking into every caller.
type Call struct {
	Kind     string // "jump", "gameover", "setplayer"
	Player   string // 0x-prefixed hex address
	GameID   string
	Score    *uint256.Int
	Height   *uint256.Int
	Username string
}

// Receipt is the minimal on-chain outcome the Confirmation Watcher needs.
type Receipt struct {
	BlockNumber uint64
	Success     bool
}

// Client is everything a Sender Loop, Confirmation Watcher or Recovery
// Dispatcher needs from the chain. Implementations classify submission
// failures into dispatchererr sentinels (NonceMismatch, SubmissionRejected)
// so callers never need to inspect provider-specific error strings; a
// mined-but-failed transaction is reported as a Receipt with Success false,
// not as an error.
type Client interface {
	// PendingNonceAt returns the pending-tag nonce for address, used both
	// to seed an unset next_nonce and to resync after a nonce mismatch.
	PendingNonceAt(ctx context.Context, address string) (*uint256.Int, error)

	// Simulate dry-runs call from the signer's address without submitting,
	// surfacing revert reasons before a real submission is attempted
	// (spec.md §4.3 step 4). The dry run is not pinned to nonce; EthClient
	// uses nonce only in the text of the error it returns.
	Simulate(ctx context.Context, signerKey string, call Call, nonce *uint256.Int) error

	// Submit signs call with signerKey at nonce and submits it, returning
	// the transaction hash on success.
	Submit(ctx context.Context, signerKey string, call Call, nonce *uint256.Int) (hash string, err error)

	// Receipt fetches the receipt for hash, returning (nil, nil) if the
	// transaction has not yet been mined (the watcher's "skip" case).
	Receipt(ctx context.Context, hash string) (*Receipt, error)

	// SubscribeNewHead delivers one notification per new block; it is the
	// Confirmation Watcher's tail-new-blocks suspension point.
	SubscribeNewHead(ctx context.Context) (<-chan uint64, Subscription, error)

	// AddressFromKey derives the signing address for signerKey, used at
	// pool construction time.
	AddressFromKey(signerKey string) (string, error)
}

// Subscription mirrors github.com/ethereum/go-ethereum/event.Subscription's
// shape so callers can use the same unsubscribe/error idiom uniformly.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}
