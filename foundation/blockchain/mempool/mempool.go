// Package mempool maintains the pool of pending transactions waiting to be
// mined into a block.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
	"github.com/google/uuid"
)

// Entry represents a pending transaction. Tx is nil when the entry was
// submitted as a plain record.
type Entry struct {
	ID     string
	Record transaction.Record
	Tx     transaction.Tx
}

// NewEntry constructs an entry for a plain record.
func NewEntry(record transaction.Record) Entry {
	return Entry{
		ID:     uuid.NewString(),
		Record: record,
	}
}

// NewTxEntry constructs an entry for a transaction model.
func NewTxEntry(tx transaction.Tx) Entry {
	return Entry{
		ID:     uuid.NewString(),
		Record: transaction.Describe(tx),
		Tx:     tx,
	}
}

// =============================================================================

// Mempool represents the ordered set of pending transactions. Entries are
// kept in submission order.
type Mempool struct {
	mu   sync.RWMutex
	pool []Entry
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends an entry to the pool and returns the new count.
func (mp *Mempool) Add(entry Entry) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, entry)

	return len(mp.pool)
}

// Copy returns a snapshot of the pool in submission order.
func (mp *Mempool) Copy() []Entry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	entries := make([]Entry, len(mp.pool))
	copy(entries, mp.pool)

	return entries
}

// Remove deletes the specified entries from the pool, keeping the order of
// what remains. Entries not in the pool are ignored.
func (mp *Mempool) Remove(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	ids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		ids[entry.ID] = struct{}{}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := make([]Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		if _, exists := ids[entry.ID]; !exists {
			pool = append(pool, entry)
		}
	}

	mp.pool = pool
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
