package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/chaintest"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

func u(v uint64) *uint256.Int { return new(uint256.Int).SetUint64(v) }

func TestRunOnceResubmitsEligibleFailedRow(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	fc.SeedNonce("0xrecovery", 3)
	pool := account.NewPool([]string{"0xrecovery"})
	n := notify.New()
	keys := func(index int) string { return "recovery" }

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump, ClientTSMs: u(100)}
	id, err := st.Insert(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, st.MarkFailed(context.Background(), id, false))

	d := New(st, fc, pool, keys, n, Config{Batch: 5, MaxRetries: 5, AgeLimit: time.Hour})
	d.RunOnce(context.Background())

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusSent, row.Status, "an eligible failed row must be resubmitted and marked sent")
	require.NotEmpty(t, row.Hash)
}

func TestRunOnceSkipsRowsPastMaxRetries(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	pool := account.NewPool([]string{"0xrecovery"})
	n := notify.New()
	keys := func(index int) string { return "recoverykey" }

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump, ClientTSMs: u(100)}
	id, _ := st.Insert(context.Background(), in)
	require.NoError(t, st.MarkFailed(context.Background(), id, false))
	for i := 0; i < 4; i++ {
		require.NoError(t, st.MarkFailed(context.Background(), id, true))
	}

	d := New(st, fc, pool, keys, n, Config{Batch: 5, MaxRetries: 5, AgeLimit: time.Hour})
	d.RunOnce(context.Background())

	row, _ := st.Get(id)
	require.Equal(t, intent.StatusFailed, row.Status, "a row at max_retries must never be resubmitted again")
	require.Empty(t, row.Hash, "max_retries rows must never reach submission")
}

func TestRunOnceIncrementsRetriesOnRecoveryFailure(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	fc.SeedNonce("0xrecovery", 3)
	fc.RejectFor = func(address string) bool { return true }
	pool := account.NewPool([]string{"0xrecovery"})
	n := notify.New()
	keys := func(index int) string { return "recoverykey" }

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump, ClientTSMs: u(100)}
	id, err := st.Insert(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, st.MarkFailed(context.Background(), id, false))
	before, _ := st.Get(id)
	require.EqualValues(t, 1, before.Retries)

	d := New(st, fc, pool, keys, n, Config{Batch: 5, MaxRetries: 5, AgeLimit: time.Hour})
	d.RunOnce(context.Background())

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusFailed, row.Status, "a resend failure during recovery must not change status")
	require.EqualValues(t, 2, row.Retries, "a resend failure during recovery must still increment retries")
	require.Empty(t, row.Hash, "a rejected resend must never record a hash")
}

func TestRunOnceIsIdempotentWhenNothingEligible(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	pool := account.NewPool([]string{"0xrecovery"})
	n := notify.New()
	keys := func(index int) string { return "recoverykey" }

	d := New(st, fc, pool, keys, n, Config{Batch: 5, MaxRetries: 5, AgeLimit: time.Hour})
	require.NotPanics(t, func() {
		d.RunOnce(context.Background())
		d.RunOnce(context.Background())
	})
}
