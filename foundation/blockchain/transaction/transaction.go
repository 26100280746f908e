// Package transaction implements the closed set of transaction models the
// ledger supports. Each model validates and applies itself against a
// settlement state made of account balances and unspent outputs.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Apply when the transaction does not hold against
// the provided state. The state is left untouched when this is returned.
var ErrInvalid = errors.New("transaction invalid")

// Kind identifies the transaction model.
type Kind string

// Set of transaction models.
const (
	KindAccount      Kind = "account"
	KindUTXO         Kind = "utxo"
	KindConfidential Kind = "confidential"
	KindMultiSig     Kind = "multisig"
	KindAtomicSwap   Kind = "atomic_swap"
	KindTimeLocked   Kind = "time_locked"
)

// KindTransfer marks a plain record submitted without a transaction model.
// It is kept in the chain as a descriptor and never settles.
const KindTransfer Kind = "transfer"


// =============================================================================

// Balances maps an address to its balance. A balance can become negative
// only when Apply is driven outside of this package's guards.
type Balances map[string]int64

// OutPoint references an output created by a prior transaction.
type OutPoint struct {
	TxID  string `json:"txid"`
	Index int    `json:"index"`
}

// Output is an amount assigned to an address.
type Output struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// Outputs is the set of unspent outputs.
type Outputs map[OutPoint]Output

// State is the settlement state transactions operate on. The maps are
// mutated in place by Apply. A zero Now means the wall clock is used.
type State struct {
	Balances Balances
	Outputs  Outputs
	Now      time.Time
}

// Clone makes a deep copy of the state.
func (st State) Clone() State {
	cpy := State{
		Balances: make(Balances, len(st.Balances)),
		Outputs:  make(Outputs, len(st.Outputs)),
		Now:      st.Now,
	}
	for addr, bal := range st.Balances {
		cpy.Balances[addr] = bal
	}
	for op, out := range st.Outputs {
		cpy.Outputs[op] = out
	}
	return cpy
}

func (st State) now() time.Time {
	if st.Now.IsZero() {
		return time.Now()
	}
	return st.Now
}

// =============================================================================

// Tx is the behavior every transaction model implements. Validate must not
// change the state. Apply re-checks the model's own precondition, returns
// ErrInvalid without touching the state when it fails, and otherwise
// applies the effect once. Apply is not idempotent.
type Tx interface {
	Kind() Kind
	Validate(st State) bool
	Apply(st State) (State, error)
	isTx()
}

// =============================================================================

// Record is the serializable description of a transaction as it is
// recorded in the pending pool and inside a block.
type Record struct {
	Kind      Kind           `json:"kind"`
	Sender    string         `json:"sender,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	Amount    int64          `json:"amount"`
	Contract  string         `json:"contract,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewRecord constructs the record for a plain transfer between two parties.
func NewRecord(sender string, recipient string, amount int64, contract string) Record {
	return Record{
		Kind:      KindTransfer,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Contract:  contract,
	}
}

// String implements the fmt.Stringer interface and produces the canonical
// form stored in a block.
func (r Record) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%s:%s:%s:%d", r.Kind, r.Sender, r.Recipient, r.Amount)
	}
	return string(data)
}

// Describe produces the record for any transaction model as it stands at
// the time of the call. FromRecord rebuilds the model from it.
func Describe(tx Tx) Record {
	switch tx := tx.(type) {
	case Account:
		return Record{
			Kind:      KindAccount,
			Sender:    tx.sender,
			Recipient: tx.recipient,
			Amount:    tx.amount,
		}

	case UTXO:
		return Record{
			Kind: KindUTXO,
			Details: map[string]any{
				"id":      tx.id,
				"inputs":  tx.Inputs(),
				"outputs": tx.Outputs(),
			},
		}

	case Confidential:
		return Record{
			Kind:      KindConfidential,
			Sender:    tx.sender,
			Recipient: tx.recipient,
			Details: map[string]any{
				"commitment": tx.commitment,
			},
		}

	case *MultiSig:
		return Record{
			Kind:      KindMultiSig,
			Sender:    tx.sender,
			Recipient: tx.recipient,
			Amount:    tx.amount,
			Details: map[string]any{
				"signers":    tx.Signers(),
				"required":   tx.required,
				"signatures": tx.Signatures(),
			},
		}

	case *AtomicSwap:
		return Record{
			Kind:      KindAtomicSwap,
			Sender:    tx.sender,
			Recipient: tx.recipient,
			Amount:    tx.amount,
			Details: map[string]any{
				"secret_hash": tx.secretHash,
				"expiry":      tx.expiry.UTC(),
				"status":      tx.Status().String(),
			},
		}

	case TimeLocked:
		return Record{
			Kind:      KindTimeLocked,
			Sender:    tx.sender,
			Recipient: tx.recipient,
			Amount:    tx.amount,
			Details: map[string]any{
				"unlock": tx.unlock.UTC(),
			},
		}
	}

	panic(fmt.Sprintf("transaction: unknown model %T", tx))
}

// =============================================================================

// canTransfer checks the sender holds at least amount.
func canTransfer(st State, sender string, amount int64) bool {
	if amount < 0 {
		return false
	}
	return st.Balances[sender] >= amount
}

// transfer moves amount from sender to recipient.
func transfer(st State, sender string, recipient string, amount int64) State {
	if st.Balances == nil {
		st.Balances = make(Balances)
	}

	st.Balances[sender] -= amount
	st.Balances[recipient] += amount

	return st
}

// invalid wraps ErrInvalid with the model and the reason.
func invalid(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", kind, fmt.Sprintf(format, args...), ErrInvalid)
}
