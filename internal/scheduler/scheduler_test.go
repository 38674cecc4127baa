package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
)

func newIntent(id int64) *intent.Intent {
	return &intent.Intent{ID: id, Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
}

func TestSchedulePrefersIdleThenShortestQueue(t *testing.T) {
	pool := account.NewPool([]string{"0xa", "0xb", "0xc"})
	s := New(pool)

	a0, _ := pool.Get(0)
	a1, _ := pool.Get(1)
	a0.Enqueue(newIntent(1))
	a1.TryStartSending()

	chosen, err := s.Schedule(newIntent(2))
	require.NoError(t, err)
	require.Equal(t, 2, chosen.Index, "account 2 is idle and empty, must win over a busy or already-queued account")
}

func TestScheduleExcludesQuarantinedAccounts(t *testing.T) {
	pool := account.NewPool([]string{"0xa", "0xb"})
	s := New(pool)

	a0, _ := pool.Get(0)
	for i := 0; i < 5; i++ {
		a0.PopFailed(5)
	}
	require.True(t, a0.IsQuarantined())

	chosen, err := s.Schedule(newIntent(1))
	require.NoError(t, err)
	require.Equal(t, 1, chosen.Index)
}

func TestScheduleReturnsNoAvailableAccountWhenAllQuarantined(t *testing.T) {
	pool := account.NewPool([]string{"0xa"})
	s := New(pool)

	a0, _ := pool.Get(0)
	for i := 0; i < 5; i++ {
		a0.PopFailed(5)
	}

	_, err := s.Schedule(newIntent(1))
	require.Error(t, err)
	require.True(t, dispatchererr.Is(err, dispatchererr.NoAvailableAccount))
}

func TestScheduleBreaksTiesByLowestIndex(t *testing.T) {
	pool := account.NewPool([]string{"0xa", "0xb", "0xc"})
	s := New(pool)

	chosen, err := s.Schedule(newIntent(1))
	require.NoError(t, err)
	require.Equal(t, 0, chosen.Index, "all idle and empty, lowest index must win")
}
