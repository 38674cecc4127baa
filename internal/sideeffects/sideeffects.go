// Package sideeffects writes the non-load-bearing tables named in spec.md
// §6 (sessions, game_events, leaderboard). Failures here are logged and
// counted but never fail an admission call — only the intents table is
// load-bearing for the dispatcher.
package sideeffects

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

var sideEffectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dispatcher",
	Subsystem: "sideeffects",
	Name:      "failures_total",
	Help:      "Best-effort side-effect writes that failed, by table.",
}, []string{"table"})

func init() {
	prometheus.MustRegister(sideEffectFailures)
}

// SideEffectWriter is what internal/dispatcher needs from this package,
// named as an interface so admission-path tests can substitute a no-op
// writer instead of standing up a Postgres pool.
type SideEffectWriter interface {
	RecordSession(ctx context.Context, player string)
	AppendGameEvent(ctx context.Context, in *intent.Intent)
	UpdateLeaderboard(ctx context.Context, player string, score *uint256.Int)
}

// Writer persists session heartbeats, game events, and leaderboard updates.
type Writer struct {
	pool *pgxpool.Pool
	log  log.Logger
}

// New builds a side-effect Writer sharing the Durable Queue Store's pool.
func New(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool, log: log.New("component", "sideeffects")}
}

var _ SideEffectWriter = (*Writer)(nil)

// RecordSession upserts a connection heartbeat for player.
func (w *Writer) RecordSession(ctx context.Context, player string) {
	const q = `INSERT INTO sessions (player, last_seen_at) VALUES ($1, now())
	           ON CONFLICT (player) DO UPDATE SET last_seen_at = now()`
	if _, err := w.pool.Exec(ctx, q, player); err != nil {
		sideEffectFailures.WithLabelValues("sessions").Inc()
		w.log.Warn("sideeffects: session heartbeat failed", "player", player, "err", err)
	}
}

// AppendGameEvent inserts an immutable audit row mirroring an admitted
// Intent.
func (w *Writer) AppendGameEvent(ctx context.Context, in *intent.Intent) {
	const q = `INSERT INTO game_events (intent_id, player, game_id, kind) VALUES ($1, $2, $3, $4)`
	if _, err := w.pool.Exec(ctx, q, in.ID, in.Player, in.GameID, string(in.Kind)); err != nil {
		sideEffectFailures.WithLabelValues("game_events").Inc()
		w.log.Warn("sideeffects: game event append failed", "id", in.ID, "err", err)
	}
}

// UpdateLeaderboard keeps each player's best score, ignoring a lower score
// than what is already recorded.
func (w *Writer) UpdateLeaderboard(ctx context.Context, player string, score *uint256.Int) {
	const q = `INSERT INTO leaderboard (player, best_score, updated_at) VALUES ($1, $2, now())
	           ON CONFLICT (player) DO UPDATE
	           SET best_score = GREATEST(leaderboard.best_score, EXCLUDED.best_score), updated_at = now()`
	if _, err := w.pool.Exec(ctx, q, player, score.Dec()); err != nil {
		sideEffectFailures.WithLabelValues("leaderboard").Inc()
		w.log.Warn("sideeffects: leaderboard update failed", "player", player, "err", err)
	}
}
