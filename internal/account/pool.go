package account

import "fmt"

// Pool is a fixed, ordered set of Accounts. Size is fixed at construction
// from configuration (one key per account); individual accounts may be
// quarantined but the set's identity never changes across a run.
type Pool struct {
	accounts []*Account
}

// NewPool builds a Pool from addresses, one Account per address, indexed in
// the order given (stable 0-based ordinal, per spec.md §3).
func NewPool(addresses []string) *Pool {
	p := &Pool{accounts: make([]*Account, len(addresses))}
	for i, addr := range addresses {
		p.accounts[i] = New(i, addr)
	}
	return p
}

// Len is the pool's fixed size.
func (p *Pool) Len() int { return len(p.accounts) }

// All returns every Account in index order. Callers must not mutate the
// slice; individual Accounts remain owned by their own Sender Loop.
func (p *Pool) All() []*Account {
	out := make([]*Account, len(p.accounts))
	copy(out, p.accounts)
	return out
}

// Get returns the Account at index, or an error if index is out of range.
func (p *Pool) Get(index int) (*Account, error) {
	if index < 0 || index >= len(p.accounts) {
		return nil, fmt.Errorf("account index %d out of range [0,%d)", index, len(p.accounts))
	}
	return p.accounts[index], nil
}

// Reset clears quarantine on the account at index, returning it to
// rotation (the operator-facing reset(index) of spec.md §4.3).
func (p *Pool) Reset(index int) error {
	a, err := p.Get(index)
	if err != nil {
		return err
	}
	a.Reset()
	return nil
}

// SharesKeysWith reports whether any address in p also appears in other,
// used at startup to reject a live/recovery pool misconfiguration that
// would corrupt nonce tracking (spec.md §4.5).
func (p *Pool) SharesKeysWith(other *Pool) bool {
	seen := make(map[string]bool, len(p.accounts))
	for _, a := range p.accounts {
		seen[a.Address] = true
	}
	for _, a := range other.accounts {
		if seen[a.Address] {
			return true
		}
	}
	return false
}
