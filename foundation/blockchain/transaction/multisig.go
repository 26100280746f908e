package transaction

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// SigStatus represents where a multi-signature transaction is in
// collecting its signatures.
type SigStatus int

// Set of signature collection states.
const (
	Unsigned SigStatus = iota
	PartiallySigned
	Ready
)

// String implements the fmt.Stringer interface.
func (s SigStatus) String() string {
	switch s {
	case Unsigned:
		return "unsigned"
	case PartiallySigned:
		return "partially_signed"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("SigStatus(%d)", int(s))
}

// Set of errors returned when adding signer signatures.
var (
	ErrNotSigner       = errors.New("address is not in the signer set")
	ErrAlreadyApproved = errors.New("signer already approved")
)

// MultiSig is an account transfer that requires a threshold of signatures.
// Signatures added with AddSignature are opaque tokens and are not verified
// against any key. AddSignerSignature verifies an ECDSA signature and
// records it only for members of the signer set.
type MultiSig struct {
	signers   []string
	required  int
	sender    string
	recipient string
	amount    int64

	mu         sync.RWMutex
	signatures []string
	seen       map[string]struct{}
	approved   map[string]struct{}
}

// NewMultiSig constructs a multi-signature transfer.
func NewMultiSig(signers []string, required int, sender string, recipient string, amount int64) *MultiSig {
	return &MultiSig{
		signers:   append([]string(nil), signers...),
		required:  required,
		sender:    sender,
		recipient: recipient,
		amount:    amount,
		seen:      make(map[string]struct{}),
		approved:  make(map[string]struct{}),
	}
}

// AddSignature records an opaque signature token. Empty and duplicate
// tokens are not recorded and false is returned.
func (tx *MultiSig) AddSignature(sig string) bool {
	if sig == "" {
		return false
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if _, exists := tx.seen[sig]; exists {
		return false
	}

	tx.seen[sig] = struct{}{}
	tx.signatures = append(tx.signatures, sig)

	return true
}

// SigningPayload returns the value a signer signs to approve this transfer.
func (tx *MultiSig) SigningPayload() any {
	return struct {
		Signers   []string `json:"signers"`
		Required  int      `json:"required"`
		Sender    string   `json:"sender"`
		Recipient string   `json:"recipient"`
		Amount    int64    `json:"amount"`
	}{
		Signers:   tx.signers,
		Required:  tx.required,
		Sender:    tx.sender,
		Recipient: tx.recipient,
		Amount:    tx.amount,
	}
}

// AddSignerSignature verifies the signature over the signing payload,
// recovers the signer's address and records the signature when that
// address belongs to the signer set. Each signer can approve once.
func (tx *MultiSig) AddSignerSignature(sig string) error {
	if err := signature.VerifySignature(sig); err != nil {
		return err
	}

	addr, err := signature.FromAddress(tx.SigningPayload(), sig)
	if err != nil {
		return err
	}

	signer, ok := tx.lookupSigner(addr)
	if !ok {
		return fmt.Errorf("%s: %w", addr, ErrNotSigner)
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if _, exists := tx.approved[signer]; exists {
		return fmt.Errorf("%s: %w", signer, ErrAlreadyApproved)
	}

	tx.approved[signer] = struct{}{}
	tx.seen[sig] = struct{}{}
	tx.signatures = append(tx.signatures, sig)

	return nil
}

// Signatures returns a copy of the collected signatures.
func (tx *MultiSig) Signatures() []string {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	return append([]string(nil), tx.signatures...)
}

// Signers returns a copy of the signer set.
func (tx *MultiSig) Signers() []string {
	return append([]string(nil), tx.signers...)
}

// Status reports the signature collection state.
func (tx *MultiSig) Status() SigStatus {
	tx.mu.RLock()
	n := len(tx.signatures)
	tx.mu.RUnlock()

	switch {
	case n >= tx.required:
		return Ready
	case n == 0:
		return Unsigned
	default:
		return PartiallySigned
	}
}

// Kind implements the Tx interface.
func (tx *MultiSig) Kind() Kind {
	return KindMultiSig
}

// Validate checks enough signatures were collected and the sender can
// cover the amount.
func (tx *MultiSig) Validate(st State) bool {
	if tx.Status() != Ready {
		return false
	}
	return canTransfer(st, tx.sender, tx.amount)
}

// Apply moves the amount from the sender to the recipient.
func (tx *MultiSig) Apply(st State) (State, error) {
	if !tx.Validate(st) {
		return st, invalid(KindMultiSig, "signatures %d of %d or insufficient funds", len(tx.Signatures()), tx.required)
	}

	return transfer(st, tx.sender, tx.recipient, tx.amount), nil
}

func (*MultiSig) isTx() {}

// lookupSigner finds the signer entry matching the address. Addresses are
// compared without regard to checksum casing.
func (tx *MultiSig) lookupSigner(addr string) (string, bool) {
	for _, signer := range tx.signers {
		if strings.EqualFold(signer, addr) {
			return signer, true
		}
	}
	return "", false
}
