package transaction

// Account is a transfer between two account balances.
type Account struct {
	sender    string
	recipient string
	amount    int64
}

// NewAccount constructs an account transfer.
func NewAccount(sender string, recipient string, amount int64) Account {
	return Account{
		sender:    sender,
		recipient: recipient,
		amount:    amount,
	}
}

// Kind implements the Tx interface.
func (tx Account) Kind() Kind {
	return KindAccount
}

// Validate checks the sender can cover the amount.
func (tx Account) Validate(st State) bool {
	return canTransfer(st, tx.sender, tx.amount)
}

// Apply moves the amount from the sender to the recipient.
func (tx Account) Apply(st State) (State, error) {
	if !tx.Validate(st) {
		return st, invalid(KindAccount, "insufficient funds, bal %d, needed %d", st.Balances[tx.sender], tx.amount)
	}

	return transfer(st, tx.sender, tx.recipient, tx.amount), nil
}

func (Account) isTx() {}
