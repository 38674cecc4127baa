package sender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/chaintest"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

func testConfig() Config {
	return Config{
		TickInterval:   5 * time.Millisecond,
		Cooldown:       time.Millisecond,
		FaultThreshold: 3,
	}
}

func TestTickHappyPathAdvancesNonceAndMarksSent(t *testing.T) {
	acc := account.New(0, "0xaddr")
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 7)
	st := storetest.New()
	n := notify.New()

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, err := st.Insert(context.Background(), in)
	require.NoError(t, err)
	in.ID = id
	acc.Enqueue(in)

	loop := New(acc, "addr", st, fc, n, testConfig())
	loop.tick(context.Background())

	require.Equal(t, intent.StatusSent, in.Status)
	require.NotEmpty(t, in.Hash)

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusSent, row.Status)

	nonce, seeded := acc.NextNonce()
	require.True(t, seeded)
	require.Equal(t, uint64(8), nonce.Uint64(), "a successful submission must advance next_nonce by exactly one")
}

func TestTickNonceMismatchResyncsWithoutFailingIntent(t *testing.T) {
	acc := account.New(0, "0xaddr")
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 7)
	fc.NonceMismatchFor = func(addr string) bool { return true }
	st := storetest.New()
	n := notify.New()

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, _ := st.Insert(context.Background(), in)
	in.ID = id
	acc.Enqueue(in)

	loop := New(acc, "signerkey", st, fc, n, testConfig())
	loop.tick(context.Background())

	row, _ := st.Get(id)
	require.Equal(t, intent.StatusPending, row.Status, "a nonce mismatch must not transition the row at all")
	require.Equal(t, 1, acc.QueueLen(), "the head stays queued for retry on nonce mismatch")
}

func TestTickRejectionQuarantinesAfterFaultThreshold(t *testing.T) {
	acc := account.New(0, "0xaddr")
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 1)
	fc.RejectFor = func(addr string) bool { return true }
	st := storetest.New()
	n := notify.New()

	cfg := testConfig()
	cfg.FaultThreshold = 2
	loop := New(acc, "signerkey", st, fc, n, cfg)

	for i := 0; i < 2; i++ {
		in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
		id, _ := st.Insert(context.Background(), in)
		in.ID = id
		acc.Enqueue(in)
		loop.tick(context.Background())
		acc.StopSending()
	}

	require.True(t, acc.IsQuarantined(), "two consecutive rejections at threshold 2 must quarantine the account")
}
