// Package accounts maintains the settlement state of the ledger: account
// balances and unspent outputs.
package accounts

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
)

// Accounts manages the balances and outputs transactions settle against.
type Accounts struct {
	genesis genesis.Genesis
	state   transaction.State
	mu      sync.RWMutex
}

// New constructs the accounts seeded from the genesis information.
func New(genesis genesis.Genesis) *Accounts {
	return &Accounts{
		genesis: genesis,
		state:   genesis.State(),
	}
}

// Reset re-initalizes the accounts back to the genesis information.
func (act *Accounts) Reset() {
	act.mu.Lock()
	defer act.mu.Unlock()

	act.state = act.genesis.State()
}

// Balance returns the balance for the specified address.
func (act *Accounts) Balance(address string) int64 {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return act.state.Balances[address]
}

// Copy makes a copy of the current settlement state.
func (act *Accounts) Copy() transaction.State {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return act.state.Clone()
}

// Validate reports whether the transaction holds against the current
// state at the specified time. Nothing is changed.
func (act *Accounts) Validate(tx transaction.Tx, now time.Time) bool {
	act.mu.RLock()
	defer act.mu.RUnlock()

	st := act.state
	st.Now = now

	return tx.Validate(st)
}

// ApplyTransaction applies the transaction to a copy of the state and
// commits the copy only when the transaction succeeds, so a failure never
// leaves a partial update behind.
func (act *Accounts) ApplyTransaction(tx transaction.Tx, now time.Time) error {
	act.mu.Lock()
	defer act.mu.Unlock()

	st := act.state.Clone()
	st.Now = now

	st, err := tx.Apply(st)
	if err != nil {
		return fmt.Errorf("applying %s: %w", tx.Kind(), err)
	}

	st.Now = time.Time{}
	act.state = st

	return nil
}
