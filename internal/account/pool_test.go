package account

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func newU(v uint64) *uint256.Int { return new(uint256.Int).SetUint64(v) }

func TestNewPoolIndexesInOrder(t *testing.T) {
	p := NewPool([]string{"0xa", "0xb", "0xc"})
	require.Equal(t, 3, p.Len())
	for i, addr := range []string{"0xa", "0xb", "0xc"} {
		a, err := p.Get(i)
		require.NoError(t, err)
		require.Equal(t, i, a.Index)
		require.Equal(t, addr, a.Address)
	}
}

func TestPoolGetOutOfRange(t *testing.T) {
	p := NewPool([]string{"0xa"})
	_, err := p.Get(5)
	require.Error(t, err)
}

func TestPoolResetClearsQuarantine(t *testing.T) {
	p := NewPool([]string{"0xa"})
	a, _ := p.Get(0)
	for i := 0; i < 5; i++ {
		a.PopFailed(5)
	}
	require.True(t, a.IsQuarantined())

	require.NoError(t, p.Reset(0))
	require.False(t, a.IsQuarantined())
}

func TestSharesKeysWithDetectsOverlap(t *testing.T) {
	live := NewPool([]string{"0xa", "0xb"})
	recovery := NewPool([]string{"0xc", "0xb"})
	require.True(t, live.SharesKeysWith(recovery))

	disjoint := NewPool([]string{"0xd", "0xe"})
	require.False(t, live.SharesKeysWith(disjoint))
}

func TestAccountNonceLifecycle(t *testing.T) {
	a := New(0, "0xa")
	_, seeded := a.NextNonce()
	require.False(t, seeded)

	a.SeedNonce(newU(42))
	n, seeded := a.NextNonce()
	require.True(t, seeded)
	require.Equal(t, uint64(42), n.Uint64())

	a.AdvanceNonce()
	n, _ = a.NextNonce()
	require.Equal(t, uint64(43), n.Uint64())
}

func TestTryStartSendingIsExclusive(t *testing.T) {
	a := New(0, "0xa")
	require.True(t, a.TryStartSending())
	require.False(t, a.TryStartSending(), "a second concurrent submission must be refused")
	a.StopSending()
	require.True(t, a.TryStartSending())
}
