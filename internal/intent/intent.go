// Package intent defines the durable queue record (Intent) and its
// lifecycle state machine: pending -> sent -> {confirmed, failed}, with
// pending -> failed allowed on pre-submission rejection and failed -> sent
// allowed only through the recovery path.
package intent

import (
	"time"

	"github.com/holiman/uint256"
)

// Kind is the admitted intent's payload shape.
type Kind string

const (
	KindJump      Kind = "jump"
	KindGameOver  Kind = "gameover"
	KindSetPlayer Kind = "setplayer"
)

// Status is a position in the Intent state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// transitions enumerates the DAG edges spec.md §3 allows. recoveryOnly edges
// are additionally gated on the caller identifying itself as recovery.
var transitions = map[Status]map[Status]bool{
	StatusPending: {StatusSent: true, StatusFailed: true},
	StatusSent:    {StatusConfirmed: true, StatusFailed: true},
}

var recoveryOnlyTransitions = map[Status]map[Status]bool{
	StatusFailed: {StatusSent: true},
}

// CanTransition reports whether moving an Intent from `from` to `to` is
// legal. Pass recovery=true only for the Recovery Dispatcher's resend path.
func CanTransition(from, to Status, recovery bool) bool {
	if transitions[from][to] {
		return true
	}
	if recovery && recoveryOnlyTransitions[from][to] {
		return true
	}
	return false
}

// Intent is a single durable submission request bound for the chain.
type Intent struct {
	ID           int64
	Player       string // 20-byte address, lower-case hex, 0x-prefixed
	GameID       string
	Kind         Kind
	Score        *uint256.Int
	Height       *uint256.Int // only meaningful for KindJump
	Username     string       // only meaningful for KindSetPlayer
	ClientTSMs   *uint256.Int
	Status       Status
	Hash         string // empty until first successful submission
	AccountIndex int    // -1 until a sender actually submits
	Retries      uint32
	CreatedAt    time.Time
}

// NoAccountIndex is the sentinel AccountIndex value before any submission.
const NoAccountIndex = -1

// HasSubmitted reports whether this Intent has ever been accepted by the
// chain client for submission, i.e. Hash and AccountIndex are both set.
// Per spec.md §3 this is required for status in {sent, confirmed} and for
// failed rows that reached failed after a submission attempt.
func (i *Intent) HasSubmitted() bool {
	return i.Hash != "" && i.AccountIndex != NoAccountIndex
}
