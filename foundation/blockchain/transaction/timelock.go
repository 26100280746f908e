package transaction

import "time"

// TimeLocked is an account transfer that can't settle before its unlock time.
type TimeLocked struct {
	sender    string
	recipient string
	amount    int64
	unlock    time.Time
}

// NewTimeLocked constructs a time locked transfer.
func NewTimeLocked(sender string, recipient string, amount int64, unlock time.Time) TimeLocked {
	return TimeLocked{
		sender:    sender,
		recipient: recipient,
		amount:    amount,
		unlock:    unlock,
	}
}

// Kind implements the Tx interface.
func (tx TimeLocked) Kind() Kind {
	return KindTimeLocked
}

// Validate checks the unlock time has been reached and the sender can
// cover the amount.
func (tx TimeLocked) Validate(st State) bool {
	if st.now().Before(tx.unlock) {
		return false
	}
	return canTransfer(st, tx.sender, tx.amount)
}

// Apply moves the amount from the sender to the recipient.
func (tx TimeLocked) Apply(st State) (State, error) {
	if !tx.Validate(st) {
		return st, invalid(KindTimeLocked, "locked until %s or insufficient funds", tx.unlock.UTC().Format(time.RFC3339))
	}

	return transfer(st, tx.sender, tx.recipient, tx.amount), nil
}

func (TimeLocked) isTx() {}
