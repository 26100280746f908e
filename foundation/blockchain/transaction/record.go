package transaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoModel is returned by FromRecord for a plain transfer record.
var ErrNoModel = errors.New("record carries no transaction model")

// ParseRecord decodes the canonical form of a record stored in a block.
// Numbers inside the details are kept exact.
func ParseRecord(data string) (Record, error) {
	dec := json.NewDecoder(bytes.NewBufferString(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}

	return rec, nil
}

// FromRecord rebuilds the transaction model described by the record,
// including its signatures and swap status. Applying the rebuilt model has
// the same effect as applying the model the record was taken from.
func FromRecord(rec Record) (Tx, error) {
	switch rec.Kind {
	case KindTransfer:
		return nil, ErrNoModel

	case KindAccount:
		return NewAccount(rec.Sender, rec.Recipient, rec.Amount), nil

	case KindUTXO:
		var d struct {
			ID      string     `json:"id"`
			Inputs  []OutPoint `json:"inputs"`
			Outputs []Output   `json:"outputs"`
		}
		if err := decodeDetails(rec, &d); err != nil {
			return nil, err
		}

		tx := NewUTXO(d.Inputs, d.Outputs)
		if tx.ID() != d.ID {
			return nil, fmt.Errorf("%s: recorded id %s does not match content id %s", KindUTXO, d.ID, tx.ID())
		}
		return tx, nil

	case KindConfidential:
		var d struct {
			Commitment string `json:"commitment"`
		}
		if err := decodeDetails(rec, &d); err != nil {
			return nil, err
		}
		return NewConfidential(rec.Sender, rec.Recipient, d.Commitment), nil

	case KindMultiSig:
		var d struct {
			Signers    []string `json:"signers"`
			Required   int      `json:"required"`
			Signatures []string `json:"signatures"`
		}
		if err := decodeDetails(rec, &d); err != nil {
			return nil, err
		}

		tx := NewMultiSig(d.Signers, d.Required, rec.Sender, rec.Recipient, rec.Amount)
		for _, sig := range d.Signatures {
			tx.AddSignature(sig)
		}
		return tx, nil

	case KindAtomicSwap:
		var d struct {
			SecretHash string    `json:"secret_hash"`
			Expiry     time.Time `json:"expiry"`
			Status     string    `json:"status"`
		}
		if err := decodeDetails(rec, &d); err != nil {
			return nil, err
		}

		status, err := parseSwapStatus(d.Status)
		if err != nil {
			return nil, err
		}

		tx := NewAtomicSwap(rec.Sender, rec.Recipient, rec.Amount, d.SecretHash, d.Expiry)
		tx.status.Store(int32(status))
		return tx, nil

	case KindTimeLocked:
		var d struct {
			Unlock time.Time `json:"unlock"`
		}
		if err := decodeDetails(rec, &d); err != nil {
			return nil, err
		}
		return NewTimeLocked(rec.Sender, rec.Recipient, rec.Amount, d.Unlock), nil
	}

	return nil, fmt.Errorf("unknown kind %q", rec.Kind)
}

// =============================================================================

// decodeDetails moves the loosely typed details into the model's shape.
func decodeDetails(rec Record, v any) error {
	data, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("%s: encoding details: %w", rec.Kind, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: decoding details: %w", rec.Kind, err)
	}

	return nil
}

// parseSwapStatus maps the recorded status back to its value.
func parseSwapStatus(s string) (SwapStatus, error) {
	for _, status := range []SwapStatus{Open, Redeemed, Settled} {
		if status.String() == s {
			return status, nil
		}
	}
	return Open, fmt.Errorf("%s: unknown status %q", KindAtomicSwap, s)
}
