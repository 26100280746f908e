package transaction

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// UTXO spends a set of unspent outputs and creates new ones. The new
// outputs are keyed by the transaction id, a content hash of the inputs
// and outputs computed at construction.
type UTXO struct {
	id      string
	inputs  []OutPoint
	outputs []Output
}

// NewUTXO constructs an unspent output transaction.
func NewUTXO(inputs []OutPoint, outputs []Output) UTXO {
	tx := UTXO{
		inputs:  append([]OutPoint(nil), inputs...),
		outputs: append([]Output(nil), outputs...),
	}

	tx.id = signature.Hash(struct {
		Inputs  []OutPoint `json:"inputs"`
		Outputs []Output   `json:"outputs"`
	}{
		Inputs:  tx.inputs,
		Outputs: tx.outputs,
	})

	return tx
}

// ID returns the identifier the new outputs are recorded under.
func (tx UTXO) ID() string {
	return tx.id
}

// Inputs returns a copy of the outputs being spent.
func (tx UTXO) Inputs() []OutPoint {
	return append([]OutPoint(nil), tx.inputs...)
}

// Outputs returns a copy of the outputs being created.
func (tx UTXO) Outputs() []Output {
	return append([]Output(nil), tx.outputs...)
}

// OutPoint returns the reference to the output at the specified index
// once this transaction is applied.
func (tx UTXO) OutPoint(index int) OutPoint {
	return OutPoint{TxID: tx.id, Index: index}
}

// Kind implements the Tx interface.
func (tx UTXO) Kind() Kind {
	return KindUTXO
}

// Validate checks every input exists in the unspent set, no input is
// spent twice and none of the outputs being created already exist.
func (tx UTXO) Validate(st State) bool {
	seen := make(map[OutPoint]struct{}, len(tx.inputs))
	for _, in := range tx.inputs {
		if _, exists := st.Outputs[in]; !exists {
			return false
		}
		if _, dup := seen[in]; dup {
			return false
		}
		seen[in] = struct{}{}
	}

	for i, out := range tx.outputs {
		if out.Amount < 0 {
			return false
		}
		if _, exists := st.Outputs[tx.OutPoint(i)]; exists {
			return false
		}
	}

	return true
}

// Apply removes the spent inputs and records the new outputs.
func (tx UTXO) Apply(st State) (State, error) {
	if !tx.Validate(st) {
		return st, invalid(KindUTXO, "missing or already spent input, tx %s", tx.id)
	}

	if st.Outputs == nil {
		st.Outputs = make(Outputs)
	}

	for _, in := range tx.inputs {
		delete(st.Outputs, in)
	}

	for i, out := range tx.outputs {
		st.Outputs[tx.OutPoint(i)] = out
	}

	return st, nil
}

func (UTXO) isTx() {}
