package intent

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		recovery bool
		want     bool
	}{
		{StatusPending, StatusSent, false, true},
		{StatusPending, StatusFailed, false, true},
		{StatusSent, StatusConfirmed, false, true},
		{StatusSent, StatusFailed, false, true},
		{StatusFailed, StatusSent, false, false},
		{StatusFailed, StatusSent, true, true},
		{StatusConfirmed, StatusSent, true, false},
		{StatusPending, StatusConfirmed, false, false},
	}
	for _, c := range cases {
		got := CanTransition(c.from, c.to, c.recovery)
		if got != c.want {
			t.Errorf("CanTransition(%s, %s, recovery=%v) = %v, want %v", c.from, c.to, c.recovery, got, c.want)
		}
	}
}

func TestHasSubmitted(t *testing.T) {
	in := &Intent{}
	if in.HasSubmitted() {
		t.Fatal("a fresh intent must not report HasSubmitted")
	}
	in.Hash = "0xabc"
	in.AccountIndex = 0
	if !in.HasSubmitted() {
		t.Fatal("an intent with a hash and account index must report HasSubmitted")
	}
}
