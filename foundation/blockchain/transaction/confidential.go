package transaction

// Confidential carries an opaque commitment in place of an amount. There is
// no cryptographic verification of the commitment: every confidential
// transaction is accepted and settles nothing.
type Confidential struct {
	sender     string
	recipient  string
	commitment string
}

// NewConfidential constructs a confidential transaction.
func NewConfidential(sender string, recipient string, commitment string) Confidential {
	return Confidential{
		sender:     sender,
		recipient:  recipient,
		commitment: commitment,
	}
}

// Kind implements the Tx interface.
func (tx Confidential) Kind() Kind {
	return KindConfidential
}

// Validate always accepts.
func (tx Confidential) Validate(st State) bool {
	return true
}

// Apply leaves the state as is.
func (tx Confidential) Apply(st State) (State, error) {
	return st, nil
}

func (Confidential) isTx() {}
