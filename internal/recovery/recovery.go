// Package recovery implements the Recovery Dispatcher of spec.md §4.5: a
// lower-cadence loop that re-drains durably-failed intents using an
// independent account pool, so it can never contend with the live
// dispatcher's nonces.
package recovery

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/metrics"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/scheduler"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Config holds the Recovery Dispatcher's tunables (spec.md §6).
type Config struct {
	Interval    time.Duration // RECOVERY_INTERVAL_MS, default 5m
	Batch       int           // RECOVERY_BATCH, default 5
	MaxRetries  uint32        // MAX_RETRIES, default 5
	AgeLimit    time.Duration // TX_AGE_LIMIT_HOURS, default 48h
}

// KeyLookup resolves the signing key material for an account index in the
// recovery pool; kept separate from account.Pool since the pool itself
// only tracks derived addresses, not secrets.
type KeyLookup func(accountIndex int) string

// Dispatcher drains store.NextRecoveryBatch on a fixed cadence, using its
// own Scheduler over its own account.Pool.
type Dispatcher struct {
	store     store.Store
	chain     chain.Client
	pool      *account.Pool
	scheduler *scheduler.Scheduler
	keys      KeyLookup
	notifier  *notify.Notifier
	cfg       Config
	log       log.Logger
}

// New builds a recovery Dispatcher. pool must be configurationally disjoint
// from the live pool (see account.Pool.SharesKeysWith), enforced by the
// caller at wiring time.
func New(s store.Store, c chain.Client, pool *account.Pool, keys KeyLookup, n *notify.Notifier, cfg Config) *Dispatcher {
	if cfg.Batch <= 0 {
		cfg.Batch = 5
	}
	return &Dispatcher{
		store:     s,
		chain:     c,
		pool:      pool,
		scheduler: scheduler.New(pool),
		keys:      keys,
		notifier:  n,
		cfg:       cfg,
		log:       log.New("component", "recovery"),
	}
}

// Run ticks at cfg.Interval until ctx is cancelled, draining one recovery
// batch per tick.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce drains exactly one recovery batch, per spec.md §4.5 steps 1-3.
// Exported so it can be driven directly (and deterministically) by tests
// and by an operator-triggered manual recovery pass.
func (d *Dispatcher) RunOnce(ctx context.Context) {
	ageCutoff := time.Now().Add(-d.cfg.AgeLimit)
	batch, err := d.store.NextRecoveryBatch(ctx, d.cfg.Batch, d.cfg.MaxRetries, ageCutoff)
	if err != nil {
		d.log.Error("recovery: next_recovery_batch failed", "err", err)
		return
	}
	for _, in := range batch {
		d.attempt(ctx, in)
	}
}

// attempt implements spec.md §4.5 step 2-3 for a single eligible row: pick
// an account via the normal Scheduler rules, refresh next_nonce from the
// pending tag (this pool may have gone idle), then run the same
// submission path as the Sender Loop.
func (d *Dispatcher) attempt(ctx context.Context, in *intent.Intent) {
	acc, err := d.scheduler.Schedule(in)
	if err != nil {
		if dispatchererr.Is(err, dispatchererr.NoAvailableAccount) {
			d.log.Warn("recovery: no available account this pass", "id", in.ID)
			return
		}
		d.log.Error("recovery: schedule failed", "id", in.ID, "err", err)
		return
	}
	// The scheduler enqueued in onto acc's FIFO; recovery drains it
	// synchronously and immediately, it does not run a ticking loop.
	defer drain(acc)

	signerKey := d.keys(acc.Index)
	fresh, err := d.chain.PendingNonceAt(ctx, acc.Address)
	if err != nil {
		d.log.Error("recovery: pending nonce lookup failed", "id", in.ID, "err", err)
		return
	}
	acc.SeedNonce(fresh)
	nonce, _ := acc.NextNonce()

	call := callFromIntent(in)
	if err := d.chain.Simulate(ctx, signerKey, call, nonce); err != nil {
		d.onFailure(ctx, in, err)
		return
	}
	hash, err := d.chain.Submit(ctx, signerKey, call, nonce)
	if err != nil {
		d.onFailure(ctx, in, err)
		return
	}
	if err := d.store.MarkSent(ctx, in.ID, hash, acc.Index, true); err != nil {
		d.log.Error("recovery: mark_sent failed", "id", in.ID, "err", err)
		return
	}
	acc.AdvanceNonce()
	acc.PopSent(hash)
	metrics.RecoveryAttemptsTotal.WithLabelValues("sent").Inc()
	d.notifier.Publish(notify.Update{
		ID: in.ID, Player: in.Player, GameID: in.GameID,
		Kind: string(in.Kind), Status: string(intent.StatusSent), Hash: hash,
	})
}

// onFailure increments retries without changing state, per spec.md §4.5
// step 3's "On ... failure, increment retries ... so the next pass may
// retry" — re-running with no new events must be a no-op beyond this
// counter bump (the Recovery idempotence property of spec.md §8).
func (d *Dispatcher) onFailure(ctx context.Context, in *intent.Intent, err error) {
	if dispatchererr.Is(err, dispatchererr.NonceMismatch) {
		// A concurrent user of this address moved the nonce; let the next
		// pass re-seed and retry, don't burn a retry for it.
		d.log.Warn("recovery: nonce mismatch during resend", "id", in.ID, "err", err)
		metrics.RecoveryAttemptsTotal.WithLabelValues("nonce_mismatch").Inc()
		return
	}
	if merr := d.store.MarkFailed(ctx, in.ID, true); merr != nil {
		d.log.Error("recovery: mark_failed failed", "id", in.ID, "err", merr)
	}
	metrics.RecoveryAttemptsTotal.WithLabelValues("failed").Inc()
}

func drain(a *account.Account) {
	for a.Peek() != nil {
		a.PopSent("")
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
