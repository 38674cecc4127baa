// Package sender implements the Sender Loop of spec.md §4.3: one
// cooperative worker per account, driving that account's FIFO while
// preserving strict nonce order. Every RPC call and store call is a
// suspension point; nothing here ever touches another account's state.
package sender

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/metrics"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Config holds the Sender Loop's tunables (spec.md §6).
type Config struct {
	TickInterval    time.Duration // QUEUE_PROCESS_INTERVAL_MS, default 200ms
	Cooldown        time.Duration // TRANSACTION_COOLDOWN_MS, default 100ms
	FaultThreshold  int           // FAULT_THRESHOLD, default 5
	RefreshNonceTop bool          // true for the Recovery Dispatcher's pre-step (spec.md §4.5 step 2)
	Recovery        bool          // true when this loop runs the recovery submission path
}

// Loop drives a single Account's FIFO to completion, tick by tick.
type Loop struct {
	acc       *account.Account
	signerKey string
	store     store.Store
	chain     chain.Client
	notifier  *notify.Notifier
	cfg       Config
	log       log.Logger

	wake chan struct{}
}

// New builds a Loop for acc, signed by signerKey.
func New(acc *account.Account, signerKey string, s store.Store, c chain.Client, n *notify.Notifier, cfg Config) *Loop {
	return &Loop{
		acc:       acc,
		signerKey: signerKey,
		store:     s,
		chain:     c,
		notifier:  n,
		cfg:       cfg,
		log:       log.New("account", acc.Index),
		wake:      make(chan struct{}, 1),
	}
}

// Wake nudges the loop to re-check its FIFO before the next scheduled tick,
// the "activated on ... enqueue" half of spec.md §4.3's scheduling model.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run blocks, ticking at cfg.TickInterval and on every Wake, until ctx is
// cancelled. The outer tick guarantees progress under a lost wake-up.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		case <-l.wake:
			l.tick(ctx)
		}
	}
}

// tick is the per-tick procedure of spec.md §4.3 steps 1-8.
func (l *Loop) tick(ctx context.Context) {
	if l.acc.IsQuarantined() {
		return
	}
	head := l.acc.Peek()
	if head == nil {
		return
	}
	if !l.acc.TryStartSending() {
		return
	}

	l.submitHead(ctx, head)

	go func() {
		time.Sleep(l.cfg.Cooldown)
		l.acc.StopSending()
		l.Wake()
	}()
}

// submitHead runs steps 3-7 for the current FIFO head.
func (l *Loop) submitHead(ctx context.Context, head *intent.Intent) {
	nonce, seeded := l.acc.NextNonce()
	if !seeded || l.cfg.RefreshNonceTop {
		fresh, err := l.chain.PendingNonceAt(ctx, l.acc.Address)
		if err != nil {
			l.log.Error("sender: pending nonce lookup failed", "err", err)
			return
		}
		l.acc.SeedNonce(fresh)
		nonce, _ = l.acc.NextNonce()
	}

	call := callFromIntent(head)

	if err := l.chain.Simulate(ctx, l.signerKey, call, nonce); err != nil {
		l.handleFailure(ctx, head, nonce, err)
		return
	}

	hash, err := l.chain.Submit(ctx, l.signerKey, call, nonce)
	if err != nil {
		l.handleFailure(ctx, head, nonce, err)
		return
	}

	if err := l.store.MarkSent(ctx, head.ID, hash, l.acc.Index, l.cfg.Recovery); err != nil {
		l.log.Error("sender: mark_sent failed, leaving head in place for retry", "id", head.ID, "err", err)
		return
	}

	l.acc.AdvanceNonce()
	l.acc.PopSent(hash)
	head.Status = intent.StatusSent
	head.Hash = hash
	head.AccountIndex = l.acc.Index
	metrics.SubmissionsTotal.WithLabelValues("sent").Inc()
	l.notifier.Publish(notify.Update{
		ID: head.ID, Player: head.Player, GameID: head.GameID,
		Kind: string(head.Kind), Status: string(intent.StatusSent), Hash: hash,
	})
}

// handleFailure classifies err per spec.md §4.3's error table and applies
// the corresponding state transition.
func (l *Loop) handleFailure(ctx context.Context, head *intent.Intent, nonce *uint256.Int, err error) {
	if dispatchererr.Is(err, dispatchererr.NonceMismatch) {
		fresh, nerr := l.chain.PendingNonceAt(ctx, l.acc.Address)
		if nerr != nil {
			l.log.Error("sender: nonce resync lookup failed", "err", nerr)
			return
		}
		l.acc.SeedNonce(fresh)
		l.log.Warn("sender: nonce mismatch, resynced", "id", head.ID, "old_nonce", nonce.Uint64(), "new_nonce", fresh.Uint64())
		metrics.SubmissionsTotal.WithLabelValues("nonce_mismatch").Inc()
		return
	}

	// SubmissionRejected / transport failure: mark_failed, pop, bump
	// consecutive-error counter, quarantine if the threshold is reached.
	if merr := l.store.MarkFailed(ctx, head.ID, l.cfg.Recovery); merr != nil {
		l.log.Error("sender: mark_failed failed", "id", head.ID, "err", merr)
		return
	}
	metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
	quarantinedNow := l.acc.PopFailed(l.cfg.FaultThreshold)
	head.Status = intent.StatusFailed
	l.notifier.Publish(notify.Update{
		ID: head.ID, Player: head.Player, GameID: head.GameID,
		Kind: string(head.Kind), Status: string(intent.StatusFailed),
	})
	if quarantinedNow {
		metrics.QuarantineTransitionsTotal.Inc()
		l.log.Error("sender: account quarantined", "account", l.acc.Index, "consecutive_errors", l.cfg.FaultThreshold)
	}
}

func callFromIntent(in *intent.Intent) chain.Call {
	return chain.Call{
		Kind:     string(in.Kind),
		Player:   in.Player,
		GameID:   in.GameID,
		Score:    in.Score,
		Height:   in.Height,
		Username: in.Username,
	}
}
