package dispatcher

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

// noopSideEffects discards every side-effect write, for admission tests that
// only care about the durable intents row.
type noopSideEffects struct{ calls int }

func (n *noopSideEffects) RecordSession(ctx context.Context, player string)    { n.calls++ }
func (n *noopSideEffects) AppendGameEvent(ctx context.Context, in *intent.Intent) { n.calls++ }
func (n *noopSideEffects) UpdateLeaderboard(ctx context.Context, player string, score *uint256.Int) {
	n.calls++
}

func TestSubmitJumpInsertsAndSchedules(t *testing.T) {
	st := storetest.New()
	pool := account.NewPool([]string{"0xa", "0xb"})
	n := notify.New()
	sfx := &noopSideEffects{}
	var woke []int
	wakers := map[int]func(){
		0: func() { woke = append(woke, 0) },
		1: func() { woke = append(woke, 1) },
	}
	d := New(st, pool, n, sfx, wakers)

	id, err := d.SubmitJump(context.Background(), "0xplayer", "g1", uint256.NewInt(10), uint256.NewInt(3), uint256.NewInt(1000))
	require.NoError(t, err)
	require.NotZero(t, id)

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusPending, row.Status)
	require.Equal(t, intent.KindJump, row.Kind)

	a0, _ := pool.Get(0)
	require.Equal(t, 1, a0.QueueLen(), "an idle account must pick up the newly scheduled intent")
	require.Contains(t, woke, 0, "the scheduled account's sender loop must be woken")
	require.Equal(t, 3, sfx.calls, "RecordSession, AppendGameEvent and UpdateLeaderboard must all run for a jump")
}

func TestAdmitFailsClosedWhenStoreDown(t *testing.T) {
	st := storetest.New()
	st.Unavailable = true
	pool := account.NewPool([]string{"0xa"})
	n := notify.New()
	d := New(st, pool, n, &noopSideEffects{}, nil)

	_, err := d.SubmitGameOver(context.Background(), "0xplayer", "g1", uint256.NewInt(5), uint256.NewInt(1000))
	require.Error(t, err)
	require.True(t, dispatchererr.Is(err, dispatchererr.StoreUnavailable))
}

func TestAdmitSucceedsWhenEveryAccountQuarantined(t *testing.T) {
	st := storetest.New()
	pool := account.NewPool([]string{"0xa"})
	a0, _ := pool.Get(0)
	for i := 0; i < 5; i++ {
		a0.PopFailed(5)
	}
	n := notify.New()
	d := New(st, pool, n, &noopSideEffects{}, nil)

	id, err := d.SubmitSetPlayer(context.Background(), "0xplayer", "g1", "alice", uint256.NewInt(1000))
	require.NoError(t, err, "admission must succeed even with no schedulable account; scheduling is deferred, not fatal")
	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusPending, row.Status)
	require.Equal(t, intent.NoAccountIndex, row.AccountIndex)
}

func TestAccountStatusReportsSnapshots(t *testing.T) {
	st := storetest.New()
	pool := account.NewPool([]string{"0xa", "0xb"})
	n := notify.New()
	d := New(st, pool, n, &noopSideEffects{}, nil)

	snaps := d.AccountStatus()
	require.Len(t, snaps, 2)
	require.Equal(t, "0xa", snaps[0].Address)
}
