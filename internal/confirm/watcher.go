// Package confirm implements the Confirmation Watcher of spec.md §4.4: it
// tails new blocks and advances sent rows to confirmed/failed by matching
// hashes against receipts. It never resubmits — resubmission is exclusively
// the Recovery Dispatcher's job.
package confirm

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/metrics"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Watcher matches sent rows against on-chain receipts, page by page, on
// every new block.
type Watcher struct {
	store    store.Store
	chain    chain.Client
	notifier *notify.Notifier
	pageSize int
	log      log.Logger
}

// New builds a Watcher reading up to pageSize sent rows per block.
func New(s store.Store, c chain.Client, n *notify.Notifier, pageSize int) *Watcher {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Watcher{store: s, chain: c, notifier: n, pageSize: pageSize, log: log.New("component", "confirm")}
}

// Run subscribes to new block headers and processes each one until ctx is
// cancelled or the subscription errors.
func (w *Watcher) Run(ctx context.Context) error {
	heads, sub, err := w.chain.SubscribeNewHead(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case blockNumber, ok := <-heads:
			if !ok {
				return nil
			}
			w.processBlock(ctx, blockNumber)
		}
	}
}

// processBlock implements spec.md §4.4 steps 1-4 for a single new block.
func (w *Watcher) processBlock(ctx context.Context, blockNumber uint64) {
	rows, err := w.store.SentRows(ctx, w.pageSize)
	if err != nil {
		w.log.Error("confirm: failed to read sent rows", "err", err)
		return
	}
	for _, row := range rows {
		w.processRow(ctx, row, blockNumber)
	}
}

func (w *Watcher) processRow(ctx context.Context, row *intent.Intent, blockNumber uint64) {
	if row.Hash == "" {
		return
	}
	receipt, err := w.chain.Receipt(ctx, row.Hash)
	if err != nil {
		w.log.Error("confirm: receipt fetch failed", "id", row.ID, "hash", row.Hash, "err", err)
		return
	}
	if receipt == nil {
		// Not yet mined; the row stays sent. If the chain drops it
		// entirely, housekeeping/recovery handles that, never this watcher.
		return
	}

	final := intent.StatusFailed
	if receipt.Success {
		final = intent.StatusConfirmed
	}
	if err := w.store.MarkConfirmed(ctx, row.ID, final, receipt.BlockNumber); err != nil {
		w.log.Error("confirm: mark_confirmed failed", "id", row.ID, "err", err)
		return
	}
	metrics.ConfirmationsTotal.WithLabelValues(string(final)).Inc()

	bn := receipt.BlockNumber
	w.notifier.Publish(notify.Update{
		ID: row.ID, Player: row.Player, GameID: row.GameID,
		Kind: string(row.Kind), Status: string(final), Hash: row.Hash, BlockNumber: &bn,
	})
}
