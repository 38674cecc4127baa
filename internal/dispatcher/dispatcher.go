// Package dispatcher is the admission boundary of spec.md §6: it exposes
// the five operations an ingress transport calls (SubmitJump, SubmitGameOver,
// SubmitSetPlayer, PendingCount, AccountStatus), implementing the "insert
// durably, then best-effort schedule" rule that every admission call
// follows.
package dispatcher

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/metrics"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/scheduler"
	"github.com/Ash20pk/breakchain-sub000/internal/sideeffects"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Dispatcher is the single entry point ingress transports call into. It owns
// no chain connection and no goroutines of its own; wake nudges fan out to
// whichever sender.Loop picked up the newly-scheduled account.
type Dispatcher struct {
	store      store.Store
	pool       *account.Pool
	scheduler  *scheduler.Scheduler
	notifier   *notify.Notifier
	sideeffect sideeffects.SideEffectWriter
	wakers     map[int]func()
	log        log.Logger
}

// New builds a Dispatcher. wakers maps an account index to its sender.Loop's
// Wake func, so a successful schedule can nudge the right loop immediately
// instead of waiting for its next tick.
func New(s store.Store, pool *account.Pool, n *notify.Notifier, sfx sideeffects.SideEffectWriter, wakers map[int]func()) *Dispatcher {
	return &Dispatcher{
		store:      s,
		pool:       pool,
		scheduler:  scheduler.New(pool),
		notifier:   n,
		sideeffect: sfx,
		wakers:     wakers,
		log:        log.New("component", "dispatcher"),
	}
}

// SubmitJump admits a jump intent: player cleared `height`, wants `score`
// recorded on-chain.
func (d *Dispatcher) SubmitJump(ctx context.Context, player, gameID string, score, height *uint256.Int, clientTSMs *uint256.Int) (int64, error) {
	return d.admit(ctx, &intent.Intent{
		Player:     player,
		GameID:     gameID,
		Kind:       intent.KindJump,
		Score:      score,
		Height:     height,
		ClientTSMs: clientTSMs,
		Status:     intent.StatusPending,
	})
}

// SubmitGameOver admits a gameover intent: the final score for a finished
// run.
func (d *Dispatcher) SubmitGameOver(ctx context.Context, player, gameID string, score, clientTSMs *uint256.Int) (int64, error) {
	return d.admit(ctx, &intent.Intent{
		Player:     player,
		GameID:     gameID,
		Kind:       intent.KindGameOver,
		Score:      score,
		Height:     uint256.NewInt(0),
		ClientTSMs: clientTSMs,
		Status:     intent.StatusPending,
	})
}

// SubmitSetPlayer admits a setplayer intent: binds a display name to player.
func (d *Dispatcher) SubmitSetPlayer(ctx context.Context, player, gameID, username string, clientTSMs *uint256.Int) (int64, error) {
	return d.admit(ctx, &intent.Intent{
		Player:     player,
		GameID:     gameID,
		Kind:       intent.KindSetPlayer,
		Username:   username,
		Score:      uint256.NewInt(0),
		Height:     uint256.NewInt(0),
		ClientTSMs: clientTSMs,
		Status:     intent.StatusPending,
	})
}

// admit implements spec.md §6's two-step admission rule: insert durably
// first; scheduling failure (NoAvailableAccount) is logged and deferred, it
// never unwinds the insert.
func (d *Dispatcher) admit(ctx context.Context, in *intent.Intent) (int64, error) {
	id, err := d.store.Insert(ctx, in)
	if err != nil {
		return 0, err
	}
	in.ID = id

	d.sideeffect.RecordSession(ctx, in.Player)
	d.sideeffect.AppendGameEvent(ctx, in)
	if in.Kind != intent.KindSetPlayer {
		d.sideeffect.UpdateLeaderboard(ctx, in.Player, in.Score)
	}

	acc, serr := d.scheduler.Schedule(in)
	if serr != nil {
		if dispatchererr.Is(serr, dispatchererr.NoAvailableAccount) {
			d.log.Warn("dispatcher: no account available at admission, deferred", "id", id)
			return id, nil
		}
		d.log.Error("dispatcher: schedule failed", "id", id, "err", serr)
		return id, nil
	}
	if wake, ok := d.wakers[acc.Index]; ok {
		wake()
	}
	return id, nil
}

// PendingCount reports the store's current pending backlog and updates the
// pending-depth gauge as a side effect of being read, per spec.md §6.
func (d *Dispatcher) PendingCount(ctx context.Context) (int64, error) {
	n, err := d.store.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	metrics.PendingDepth.Set(float64(n))
	return n, nil
}

// AccountStatus returns a point-in-time snapshot of every account in the
// live pool, for the account_status() operation of spec.md §6.
func (d *Dispatcher) AccountStatus() []account.Snapshot {
	accounts := d.pool.All()
	out := make([]account.Snapshot, len(accounts))
	for i, a := range accounts {
		snap := a.Snapshot()
		out[i] = snap
		metrics.AccountQueueDepth.WithLabelValues(indexLabel(snap.Index)).Set(float64(snap.QueueLength))
		q := 0.0
		if snap.Quarantined {
			q = 1.0
		}
		metrics.AccountQuarantined.WithLabelValues(indexLabel(snap.Index)).Set(q)
	}
	return out
}

// ResetAccount clears quarantine on the live pool account at index, the
// operator-triggered reset(index) of spec.md §4.3.
func (d *Dispatcher) ResetAccount(index int) error {
	return d.pool.Reset(index)
}

func indexLabel(i int) string {
	return strconv.Itoa(i)
}
