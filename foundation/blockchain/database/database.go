// Package database maintains the ordered sequence of blocks that makes up
// the chain and hands every block to a storage implementation for
// persistence.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBlockNotFound is returned when a block is requested that doesn't exist.
var ErrBlockNotFound = errors.New("block not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks, starting with the
// genesis block.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// Database manages the chain of blocks. Blocks are only appended and are
// readable concurrently.
type Database struct {
	mu      sync.RWMutex
	blocks  []Block
	storage Storage
}

// New constructs a database and loads every block found in storage,
// verifying the chain linkage while loading.
func New(storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	db := Database{
		storage: storage,
	}

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := db.validate(block); err != nil {
			return nil, fmt.Errorf("loading block %d: %w", block.Index(), err)
		}

		ev("database: New: loaded: blk[%s]", block)

		db.blocks = append(db.blocks, block)
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset clears the chain in memory and in storage.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Reset(); err != nil {
		return err
	}

	db.blocks = nil

	return nil
}

// Write validates the block against the current tail, persists it and
// appends it to the chain. Nothing changes if any step fails.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.validate(block); err != nil {
		return err
	}

	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// Length returns the number of blocks in the chain.
func (db *Database) Length() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return uint64(len(db.blocks))
}

// LatestBlock returns the tail of the chain. The zero Block is returned
// when the chain is empty.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}
	}

	return db.blocks[len(db.blocks)-1]
}

// GetBlock returns the block at the specified index.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d: %w", num, ErrBlockNotFound)
	}

	return db.blocks[num], nil
}

// Blocks returns a copy of the sequence of blocks. Blocks are immutable so
// only the slice is copied.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// validate checks the block can become the next block of the chain. The
// caller must hold the lock or own the database exclusively.
func (db *Database) validate(block Block) error {
	if len(db.blocks) == 0 {
		return block.ValidateGenesis()
	}

	return block.ValidateNextBlock(db.blocks[len(db.blocks)-1])
}
