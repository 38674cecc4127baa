package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeKeyedFiltersByPlayerOrGameID(t *testing.T) {
	n := New()

	byPlayer := n.SubscribeKeyed("0xplayer1", "")
	defer byPlayer.Unsubscribe()
	byGame := n.SubscribeKeyed("", "game42")
	defer byGame.Unsubscribe()

	n.Publish(Update{ID: 1, Player: "0xplayer1", GameID: "game42", Status: "sent"})
	n.Publish(Update{ID: 2, Player: "0xother", GameID: "gameXX", Status: "sent"})

	select {
	case u := <-byPlayer.C():
		require.Equal(t, int64(1), u.ID)
	case <-time.After(time.Second):
		t.Fatal("expected player-keyed subscriber to receive update 1")
	}
	select {
	case u := <-byGame.C():
		require.Equal(t, int64(1), u.ID)
	case <-time.After(time.Second):
		t.Fatal("expected game-keyed subscriber to receive update 1")
	}

	select {
	case u := <-byPlayer.C():
		t.Fatalf("unexpected extra update delivered to player subscriber: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := New()
	sub := n.SubscribeKeyed("0xplayer1", "")
	sub.Unsubscribe()

	n.Publish(Update{ID: 1, Player: "0xplayer1", Status: "sent"})

	_, ok := <-sub.C()
	require.False(t, ok, "channel must be closed after Unsubscribe")
}
