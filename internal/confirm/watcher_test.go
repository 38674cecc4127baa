package confirm

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/chaintest"
	"github.com/Ash20pk/breakchain-sub000/internal/intent"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/storetest"
)

func chainCallFor(in *intent.Intent) chain.Call {
	return chain.Call{Kind: string(in.Kind), Player: in.Player, GameID: in.GameID, Score: zero(), Height: zero()}
}

func zero() *uint256.Int { return new(uint256.Int) }

func TestProcessBlockConfirmsMinedReceipts(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 0)
	n := notify.New()

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, _ := st.Insert(context.Background(), in)
	hash, err := fc.Submit(context.Background(), "signerkey", chainCallFor(in), zero())
	require.NoError(t, err)
	require.NoError(t, st.MarkSent(context.Background(), id, hash, 0, false))
	fc.ConfirmAll(42)

	w := New(st, fc, n, 100)
	w.processBlock(context.Background(), 42)

	row, ok := st.Get(id)
	require.True(t, ok)
	require.Equal(t, intent.StatusConfirmed, row.Status)
}

func TestProcessBlockLeavesUnminedRowsAlone(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 0)
	n := notify.New()

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, _ := st.Insert(context.Background(), in)
	hash, _ := fc.Submit(context.Background(), "signerkey", chainCallFor(in), zero())
	require.NoError(t, st.MarkSent(context.Background(), id, hash, 0, false))

	w := New(st, fc, n, 100)
	w.processBlock(context.Background(), 1)

	row, _ := st.Get(id)
	require.Equal(t, intent.StatusSent, row.Status, "an unmined receipt must not advance the row's status")
}

func TestProcessBlockMarksFailedOnChainRevert(t *testing.T) {
	st := storetest.New()
	fc := chaintest.New()
	fc.SeedNonce("0xaddr", 0)
	n := notify.New()

	in := &intent.Intent{Player: "0xplayer", GameID: "g1", Kind: intent.KindJump}
	id, _ := st.Insert(context.Background(), in)
	hash, _ := fc.Submit(context.Background(), "signerkey", chainCallFor(in), zero())
	require.NoError(t, st.MarkSent(context.Background(), id, hash, 0, false))
	fc.FailReceipt(hash, 7)

	w := New(st, fc, n, 100)
	w.processBlock(context.Background(), 7)

	row, _ := st.Get(id)
	require.Equal(t, intent.StatusFailed, row.Status)
}
