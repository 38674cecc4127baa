package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the durable queue store backed by PostgreSQL, using
// FOR UPDATE SKIP LOCKED for recovery-batch selection so multiple recovery
// workers never double-send the same row. Grounded on the queue-repository
// and bulletprooftxmanager patterns in the reference pack: serializable
// single-row transitions guarded by a WHERE on current status, rather than
// optimistic-lock retries.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url with the given max pool size and applies the
// embedded schema. Every operation below wraps connectivity failures with
// dispatchererr.StoreUnavailable so callers can classify them uniformly.
func NewPostgres(ctx context.Context, url string, poolMax int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, dispatchererr.Wrap(err, "parse store url")
	}
	cfg.MaxConns = poolMax

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "ping: %v", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, dispatchererr.Wrap(err, "apply schema")
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool so side-effect writers can share
// the same connection pool instead of opening a second one.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func decStr(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func decParse(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int), nil
	}
	return v, nil
}

func (p *Postgres) Insert(ctx context.Context, in *intent.Intent) (int64, error) {
	const q = `
		INSERT INTO intents (player, game_id, kind, score, height, username, client_ts_ms, status, account_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', -1)
		RETURNING id`
	var id int64
	err := p.pool.QueryRow(ctx, q,
		in.Player, in.GameID, string(in.Kind),
		decStr(in.Score), decStr(in.Height), in.Username, decStr(in.ClientTSMs),
	).Scan(&id)
	if err != nil {
		return 0, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "insert intent: %v", err)
	}
	return id, nil
}

func (p *Postgres) MarkSent(ctx context.Context, id int64, hash string, accountIndex int, recovery bool) error {
	q := `UPDATE intents SET status = 'sent', hash = $2, account_index = $3
	      WHERE id = $1 AND status = 'pending'`
	if recovery {
		q = `UPDATE intents SET status = 'sent', hash = $2, account_index = $3
		     WHERE id = $1 AND status IN ('pending', 'failed')`
	}
	tag, err := p.pool.Exec(ctx, q, id, hash, accountIndex)
	if err != nil {
		return dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "mark_sent(%d): %v", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Replay of an already-applied transition: idempotent no-op.
		return nil
	}
	return nil
}

func (p *Postgres) MarkFailed(ctx context.Context, id int64, recovery bool) error {
	q := `UPDATE intents SET status = 'failed', retries = retries + 1
	      WHERE id = $1 AND status IN ('pending', 'sent')`
	if recovery {
		q = `UPDATE intents SET status = 'failed', retries = retries + 1
		     WHERE id = $1 AND status IN ('pending', 'sent', 'failed')`
	}
	if _, err := p.pool.Exec(ctx, q, id); err != nil {
		return dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "mark_failed(%d): %v", id, err)
	}
	return nil
}

func (p *Postgres) MarkConfirmed(ctx context.Context, id int64, status intent.Status, blockNumber uint64) error {
	const q = `UPDATE intents SET status = $2, block_number = $3
	           WHERE id = $1 AND status = 'sent'`
	if _, err := p.pool.Exec(ctx, q, id, string(status), int64(blockNumber)); err != nil {
		return dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "mark_confirmed(%d): %v", id, err)
	}
	return nil
}

func (p *Postgres) CountPending(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM intents WHERE status = 'pending'`
	var n int64
	if err := p.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "count_pending: %v", err)
	}
	return n, nil
}

func (p *Postgres) NextRecoveryBatch(ctx context.Context, limit int, maxRetries uint32, ageCutoff time.Time) ([]*intent.Intent, error) {
	const q = `
		SELECT id, player, game_id, kind, score::text, height::text, username,
		       client_ts_ms::text, status, hash, account_index, retries, created_at
		FROM intents
		WHERE status = 'failed' AND retries < $2 AND client_ts_ms::numeric > $3
		ORDER BY client_ts_ms ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`
	cutoffMs := ageCutoff.UnixMilli()
	rows, err := p.pool.Query(ctx, q, limit, maxRetries, cutoffMs)
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "next_recovery_batch: %v", err)
	}
	defer rows.Close()
	return scanIntents(rows)
}

func (p *Postgres) SentRows(ctx context.Context, limit int) ([]*intent.Intent, error) {
	const q = `
		SELECT id, player, game_id, kind, score::text, height::text, username,
		       client_ts_ms::text, status, hash, account_index, retries, created_at
		FROM intents
		WHERE status = 'sent'
		ORDER BY id ASC
		LIMIT $1`
	rows, err := p.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "sent_rows: %v", err)
	}
	defer rows.Close()
	return scanIntents(rows)
}

func (p *Postgres) Housekeeping(ctx context.Context, pendingStale, retention time.Duration) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE intents SET status = 'failed', retries = retries + 1
	             WHERE status = 'pending' AND created_at < now() - $1::interval`,
		pendingStale.String())
	batch.Queue(`DELETE FROM intents
	             WHERE status IN ('confirmed', 'failed') AND created_at < now() - $1::interval`,
		retention.String())
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "housekeeping: %v", err)
		}
	}
	return nil
}

func scanIntents(rows pgx.Rows) ([]*intent.Intent, error) {
	var out []*intent.Intent
	for rows.Next() {
		in := &intent.Intent{}
		var scoreS, heightS, tsS, kind, status string
		if err := rows.Scan(&in.ID, &in.Player, &in.GameID, &kind, &scoreS, &heightS,
			&in.Username, &tsS, &status, &in.Hash, &in.AccountIndex, &in.Retries, &in.CreatedAt); err != nil {
			return nil, dispatchererr.Wrap(err, "scan intent")
		}
		in.Kind = intent.Kind(kind)
		in.Status = intent.Status(status)
		var err error
		if in.Score, err = decParse(scoreS); err != nil {
			return nil, err
		}
		if in.Height, err = decParse(heightS); err != nil {
			return nil, err
		}
		if in.ClientTSMs, err = decParse(tsS); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, dispatchererr.Wrap(err, "iterate intents")
	}
	return out, nil
}
