// Package store defines the Durable Queue Store: the single cross-process
// source of truth for Intent lifecycle state (spec.md §4.1). All operations
// must be idempotent on replay and fail with dispatchererr.StoreUnavailable
// on connectivity loss; there is no local write-ahead buffer, the store is
// the buffer.
package store

import (
	"context"
	"time"

	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

// Store is the durable queue store's interface. Implementations must make
// mark_sent / mark_failed / mark_confirmed atomic with respect to the
// current row status (serializable transitions), and next_recovery_batch
// must use a skip-locked read so concurrent recovery workers never collide
// on the same row.
type Store interface {
	// Insert writes a pending row and returns its assigned id. Must be
	// serializable with respect to the admission step of the caller.
	Insert(ctx context.Context, in *intent.Intent) (int64, error)

	// MarkSent transitions a row to sent. Allowed only when the current
	// status is pending, or failed when recovery is true.
	MarkSent(ctx context.Context, id int64, hash string, accountIndex int, recovery bool) error

	// MarkFailed increments retries and transitions a row to failed.
	// Allowed from pending or sent. When recovery is true the row is also
	// allowed to already be failed, so a resend attempted by the Recovery
	// Dispatcher still increments retries (status stays failed, a no-op
	// transition) instead of silently matching zero rows.
	MarkFailed(ctx context.Context, id int64, recovery bool) error

	// MarkConfirmed transitions a row from sent to a terminal status
	// (confirmed or failed) based on the on-chain receipt.
	MarkConfirmed(ctx context.Context, id int64, status intent.Status, blockNumber uint64) error

	// CountPending is a fast aggregate of rows still in pending.
	CountPending(ctx context.Context) (int64, error)

	// NextRecoveryBatch selects up to limit failed rows eligible for
	// another attempt: retries < maxRetries and a client timestamp
	// (client_ts_ms) later than ageCutoff, ordered by client timestamp
	// ascending, locked FOR UPDATE SKIP LOCKED
	// so multiple recovery workers never double-send the same row.
	NextRecoveryBatch(ctx context.Context, limit int, maxRetries uint32, ageCutoff time.Time) ([]*intent.Intent, error)

	// SentRows returns a bounded page of rows currently in sent, for the
	// Confirmation Watcher to match against new receipts.
	SentRows(ctx context.Context, limit int) ([]*intent.Intent, error)

	// Housekeeping promotes long-pending rows to failed and deletes
	// terminal rows older than the retention window.
	Housekeeping(ctx context.Context, pendingStale, retention time.Duration) error
}
