package transaction

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// SwapStatus represents where an atomic swap is in its lifecycle.
type SwapStatus int32

// Set of swap states. A swap moves Open -> Redeemed -> Settled and
// never moves back.
const (
	Open SwapStatus = iota
	Redeemed
	Settled
)

// String implements the fmt.Stringer interface.
func (s SwapStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Redeemed:
		return "redeemed"
	case Settled:
		return "settled"
	}
	return fmt.Sprintf("SwapStatus(%d)", int32(s))
}

// AtomicSwap is a hash locked transfer. The transfer settles only after the
// secret matching the stored secret hash is revealed through Redeem.
type AtomicSwap struct {
	sender     string
	recipient  string
	amount     int64
	secretHash string
	expiry     time.Time
	status     atomic.Int32
}

// NewAtomicSwap constructs a hash locked transfer. The secretHash must be
// produced by signature.HashSecret.
func NewAtomicSwap(sender string, recipient string, amount int64, secretHash string, expiry time.Time) *AtomicSwap {
	return &AtomicSwap{
		sender:     sender,
		recipient:  recipient,
		amount:     amount,
		secretHash: secretHash,
		expiry:     expiry,
	}
}

// Redeem reveals the secret. It returns true only for the one call that
// moves the swap from Open to Redeemed.
func (tx *AtomicSwap) Redeem(secret []byte) bool {
	if signature.HashSecret(secret) != tx.secretHash {
		return false
	}

	return tx.status.CompareAndSwap(int32(Open), int32(Redeemed))
}

// MarkSettled moves a redeemed swap to Settled without moving any funds.
// It is used once a copy of the swap was applied elsewhere so this value
// can't settle a second time. It reports whether this call made the move.
func (tx *AtomicSwap) MarkSettled() bool {
	return tx.status.CompareAndSwap(int32(Redeemed), int32(Settled))
}

// Status returns the current swap state.
func (tx *AtomicSwap) Status() SwapStatus {
	return SwapStatus(tx.status.Load())
}

// Kind implements the Tx interface.
func (tx *AtomicSwap) Kind() Kind {
	return KindAtomicSwap
}

// Validate checks the swap is still open, not expired and the sender can
// cover the amount.
func (tx *AtomicSwap) Validate(st State) bool {
	if tx.Status() != Open {
		return false
	}

	if !st.now().Before(tx.expiry) {
		return false
	}

	return canTransfer(st, tx.sender, tx.amount)
}

// Apply moves the amount once the swap has been redeemed. Applying an open
// or already settled swap leaves the state as is.
func (tx *AtomicSwap) Apply(st State) (State, error) {
	if !canTransfer(st, tx.sender, tx.amount) {
		if tx.Status() != Redeemed {
			return st, nil
		}
		return st, invalid(KindAtomicSwap, "insufficient funds, bal %d, needed %d", st.Balances[tx.sender], tx.amount)
	}

	if !tx.status.CompareAndSwap(int32(Redeemed), int32(Settled)) {
		return st, nil
	}

	return transfer(st, tx.sender, tx.recipient, tx.amount), nil
}

func (*AtomicSwap) isTx() {}
