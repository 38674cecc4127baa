package housekeeping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

func TestRunnerInvokesHousekeepingOnTick(t *testing.T) {
	st := storetest.New()
	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, err := st.Insert(context.Background(), in)
	require.NoError(t, err)

	r := New(st, Config{Interval: 5 * time.Millisecond, PendingStale: time.Nanosecond, Retention: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusFailed, row.Status, "a pending row older than pending_stale must be promoted to failed")
}
