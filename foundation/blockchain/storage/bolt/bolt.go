// Package bolt implements the ability to read and write blocks to an
// embedded bbolt key/value file.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"go.etcd.io/bbolt"
)

// bucket holds every block keyed by its big-endian index.
var bucket = []byte("blocks")

// Bolt represents the storage implementation for reading and storing
// blocks in a bbolt database file. This implements the database.Storage
// interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the database file at the specified path.
func New(filePath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("could not create dir for bolt: %w", err)
	}

	db, err := bbolt.Open(filePath, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("could not create root bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close closes the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block. Blocks must be written in order starting with
// the genesis block.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucket)

		var exp uint64
		if k, _ := bkt.Cursor().Last(); k != nil {
			exp = binary.BigEndian.Uint64(k) + 1
		}

		if blockData.Index != exp {
			return fmt.Errorf("block is out of order, got %d, exp %d", blockData.Index, exp)
		}

		return bkt.Put(key(blockData.Index), data)
	})
}

// GetBlock locates and returns the contents of the specified block by
// number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(key(num))
		if data == nil {
			return fmt.Errorf("block %d: %w", num, database.ErrBlockNotFound)
		}

		// The slice is only valid inside the transaction so it is decoded here.
		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{storage: b}
}

// Reset will clear out the blockchain.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket(bucket)
		return err
	})
}

// key converts a block number into a key that sorts in block order.
func key(num uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, num)
	return k
}

// =============================================================================

// boltIterator represents the iteration implementation for walking
// through and reading blocks from the bbolt file. This implements the
// database Iterator interface.
type boltIterator struct {
	storage *Bolt  // Access to the storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the file.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, database.ErrBlockNotFound
	}

	blockData, err := bi.storage.GetBlock(bi.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		bi.eoc = true
		return database.BlockData{}, nil
	}
	if err != nil {
		return database.BlockData{}, err
	}

	bi.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
