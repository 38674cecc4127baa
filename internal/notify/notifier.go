// Package notify fans out Intent transition events to subscribers keyed by
// player address and game id (spec.md §6 "Notifications"), built on
// github.com/ethereum/go-ethereum/event's Feed/Subscription — the
// teacher's own pub/sub primitive.
package notify

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// Update is one Intent transition, delivered to every subscriber whose key
// matches either the player address or the game id.
type Update struct {
	ID          int64
	Player      string
	GameID      string
	Kind        string
	Status      string
	Hash        string  `json:"hash,omitempty"`
	Score       string  `json:"score,omitempty"`
	BlockNumber *uint64 `json:"block_number,omitempty"`
}

// Notifier fans Updates out along two independent keys: player address and
// game id. A single Update can reach two distinct subscribers (one per
// key) — spec.md §8 scenario S5.
type Notifier struct {
	mu     sync.Mutex
	feed   event.Feed
}

// New builds an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe returns a channel that receives every Update published,
// regardless of key; callers filter by Player/GameID themselves. This
// mirrors the teacher's event.Feed idiom: one Feed, many typed
// subscriptions, filtering left to the consumer.
func (n *Notifier) Subscribe(ch chan<- Update) event.Subscription {
	return n.feed.Subscribe(ch)
}

// Publish sends u to every subscriber. Per event.Feed's contract this
// blocks until all subscribed channels have received it, so callers on the
// hot submission path should subscribe with a sufficiently buffered
// channel to avoid backpressure onto the Sender Loop.
func (n *Notifier) Publish(u Update) int {
	return n.feed.Send(u)
}

// KeyedSubscription is a convenience subscriber that only sees Updates
// whose Player or GameID matches one of the registered keys, implementing
// the "subscribers are identified by player address and game id" fan-out
// rule of spec.md §6 without requiring every consumer to re-implement the
// filter.
type KeyedSubscription struct {
	out    chan Update
	sub    event.Subscription
	source chan Update
	quit   chan struct{}
}

// SubscribeKeyed returns a KeyedSubscription delivering only Updates whose
// Player equals player or whose GameID equals gameID (either may be empty
// to mean "don't match on this key").
func (n *Notifier) SubscribeKeyed(player, gameID string) *KeyedSubscription {
	source := make(chan Update, 64)
	sub := n.Subscribe(source)
	k := &KeyedSubscription{
		out:    make(chan Update, 64),
		sub:    sub,
		source: source,
		quit:   make(chan struct{}),
	}
	go k.pump(player, gameID)
	return k
}

func (k *KeyedSubscription) pump(player, gameID string) {
	defer close(k.out)
	for {
		select {
		case u, ok := <-k.source:
			if !ok {
				return
			}
			if (player != "" && u.Player == player) || (gameID != "" && u.GameID == gameID) {
				select {
				case k.out <- u:
				case <-k.quit:
					return
				}
			}
		case <-k.quit:
			return
		}
	}
}

// C is the filtered channel of matching Updates.
func (k *KeyedSubscription) C() <-chan Update { return k.out }

// Unsubscribe stops delivery and releases the underlying event.Feed
// subscription.
func (k *KeyedSubscription) Unsubscribe() {
	close(k.quit)
	k.sub.Unsubscribe()
}
