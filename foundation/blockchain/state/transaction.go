package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
)

// SubmitTransaction adds a plain transfer to the pending pool. Nothing is
// validated at submission. The transfer is recorded in its block as a
// descriptor and does not change the settlement state.
func (s *State) SubmitTransaction(sender string, recipient string, amount int64, contract string) string {
	return s.submit(mempool.NewEntry(transaction.NewRecord(sender, recipient, amount, contract)))
}

// SubmitTx adds a transaction model to the pending pool. The model is
// recorded as it stands when its block is mined and settled against the
// accounts once the block is accepted.
func (s *State) SubmitTx(tx transaction.Tx) string {
	return s.submit(mempool.NewTxEntry(tx))
}

// ValidateTx reports whether the transaction model holds against the
// current settlement state.
func (s *State) ValidateTx(tx transaction.Tx) bool {
	return s.accounts.Validate(tx, time.Now().UTC())
}

// PublishContract hands the contract code to the configured deployer and
// returns what the deployer reports.
func (s *State) PublishContract(ctx context.Context, bytecode []byte, abi string, sender string) (string, error) {
	if s.deployer == nil {
		return "", ErrNoBackend
	}

	s.evHandler("state: PublishContract: sender[%s] size[%d]", sender, len(bytecode))

	result, err := s.deployer.Deploy(ctx, bytecode, abi, sender)
	if err != nil {
		return "", fmt.Errorf("publishing contract: %w", err)
	}

	return result, nil
}

// =============================================================================

// submit appends the entry to the pool and signals the worker.
func (s *State) submit(entry mempool.Entry) string {
	n := s.mempool.Add(entry)
	s.metrics.mempoolSize.Set(float64(n))

	s.evHandler("state: submit: tx[%s] kind[%s] pool[%d]", entry.ID, entry.Record.Kind, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return entry.ID
}
