package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
)

// Status reports what happened to a mining attempt.
type Status int

// Set of mining outcomes.
const (
	Rejected Status = iota
	Accepted
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	if s == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Outcome is the result of a mining attempt. Block is only set when the
// block was accepted.
type Outcome struct {
	Status Status
	Block  database.Block
}

// =============================================================================

// MineBlock builds a candidate block from every pending transaction and
// submits it to the consensus hook. A rejected candidate is discarded and
// leaves the chain and the pool as they were. An accepted candidate is
// written to the chain and its transactions are removed from the pool.
// Empty blocks are allowed.
func (s *State) MineBlock(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineBlock: MINING: started")
	defer s.evHandler("state: MineBlock: MINING: completed")

	// Snapshot the pool. Transactions submitted from here on wait for the
	// next block.
	entries := s.mempool.Copy()
	trans := describe(entries)

	latest := s.db.LatestBlock()
	block := database.NewBlock(database.BlockArgs{
		Index:        latest.Index() + 1,
		PreviousHash: latest.Hash(),
		Transactions: trans,
	})

	chain := s.db.Blocks()

	s.evHandler("state: MineBlock: MINING: validate: hook[%s] blk[%s] txs[%d]", s.hook.Name(), block, len(trans))

	if !s.hook.ValidateBlock(block, chain) {
		s.metrics.blocksRejected.Inc()
		s.evHandler("state: MineBlock: MINING: rejected: blk[%s]", block)
		return Outcome{Status: Rejected}, nil
	}

	// Just check one more time we were not cancelled.
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	s.evHandler("state: MineBlock: MINING: write to chain")

	if err := s.db.Write(block); err != nil {
		return Outcome{}, fmt.Errorf("writing block %d: %w", block.Index(), err)
	}

	s.mempool.Remove(entries)

	s.hook.OnBlockMined(block, chain)

	s.evHandler("state: MineBlock: MINING: settle transactions")

	// Settlement works from the records in the block, the same way a
	// restart rebuilds it. A swap that settled is marked on the submitted
	// value so it can't settle again from a later block.
	applied := s.settle(block)
	for i, entry := range entries {
		live, ok := entry.Tx.(*transaction.AtomicSwap)
		if !ok {
			continue
		}
		if swap, ok := applied[i].(*transaction.AtomicSwap); ok && swap.Status() == transaction.Settled {
			live.MarkSettled()
		}
	}

	s.metrics.blocksMined.Inc()
	s.metrics.chainHeight.Set(float64(s.db.Length()))
	s.metrics.mempoolSize.Set(float64(s.mempool.Count()))

	s.evHandler("viewer: block mined: blk[%s] txs[%d]", block, len(trans))

	return Outcome{Status: Accepted, Block: block}, nil
}

// =============================================================================

// describe records every entry as it stands at the snapshot. A swap queued
// more than once is recorded as redeemed only once per block.
func describe(entries []mempool.Entry) []string {
	trans := make([]string, len(entries))
	claimed := make(map[*transaction.AtomicSwap]struct{})

	for i, entry := range entries {
		if entry.Tx == nil {
			trans[i] = entry.Record.String()
			continue
		}

		rec := transaction.Describe(entry.Tx)

		if swap, ok := entry.Tx.(*transaction.AtomicSwap); ok && rec.Details["status"] == transaction.Redeemed.String() {
			if _, exists := claimed[swap]; exists {
				rec.Details["status"] = transaction.Settled.String()
			}
			claimed[swap] = struct{}{}
		}

		trans[i] = rec.String()
	}

	return trans
}

// settle applies the transaction models recorded in the block to the
// accounts at the block timestamp. Plain transfers are skipped. A record
// that fails is reported and stays in the block. The returned slice holds
// the applied model at the index of its record.
func (s *State) settle(block database.Block) []transaction.Tx {
	now := time.Unix(block.TimeStamp(), 0).UTC()

	trans := block.Transactions()
	applied := make([]transaction.Tx, len(trans))

	for i, data := range trans {
		rec, err := transaction.ParseRecord(data)
		if err != nil {
			s.evHandler("state: settle: WARNING: blk[%d] tx[%d]: %s", block.Index(), i, err)
			continue
		}

		tx, err := transaction.FromRecord(rec)
		if err != nil {
			if !errors.Is(err, transaction.ErrNoModel) {
				s.evHandler("state: settle: WARNING: blk[%d] tx[%d]: %s", block.Index(), i, err)
			}
			continue
		}

		if err := s.accounts.ApplyTransaction(tx, now); err != nil {
			s.evHandler("state: settle: WARNING: blk[%d] tx[%d]: %s", block.Index(), i, err)
			continue
		}

		applied[i] = tx
	}

	return applied
}
