// Package dispatchererr defines the abstract error taxonomy shared by every
// dispatcher component: StoreUnavailable, NoAvailableAccount, NonceMismatch,
// SubmissionRejected, ReceiptFailed and ConfigInvalid. Callers classify
// concrete failures into one of these with errors.Is / errors.As, never by
// string matching.
package dispatchererr

import "github.com/pkg/errors"

// Sentinel kinds. Wrap a concrete cause with one of these via Wrap so the
// original error survives for logging while callers can still classify it.
var (
	// StoreUnavailable means the durable queue store is unreachable.
	// Admission fails back to the client; the background loops log it and
	// try again on their next tick. No caller applies a backoff of its own.
	StoreUnavailable = errors.New("store unavailable")

	// NoAvailableAccount means every account in the pool is quarantined.
	// Admission still inserts the pending row; scheduling is deferred to the
	// next tick once an account recovers.
	NoAvailableAccount = errors.New("no available account")

	// NonceMismatch means the chain rejected a submission because the nonce
	// is stale or already used. Recoverable in place: the sender resyncs
	// next_nonce from the chain and retries the same queue head.
	NonceMismatch = errors.New("nonce mismatch")

	// SubmissionRejected means simulation or submission reverted for reasons
	// unrelated to nonce ordering (bad input, unknown kind, contract
	// revert). The intent moves to failed; only recovery retries it.
	SubmissionRejected = errors.New("submission rejected")

	// ReceiptFailed means the chain included the transaction but the
	// receipt reports failure. Recovery resubmits from scratch with a new
	// nonce and hash.
	ReceiptFailed = errors.New("receipt failed")

	// ConfigInvalid means a startup configuration error. Always fatal.
	ConfigInvalid = errors.New("invalid configuration")
)

// Wrap attaches msg as context to cause while preserving cause's identity so
// errors.Is(wrapped, cause) still holds.
func Wrap(cause error, msg string) error {
	return errors.Wrap(cause, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

// Is reports whether err ultimately wraps one of the sentinel kinds above.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
