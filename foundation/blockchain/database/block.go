package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// ErrHashMismatch is returned when a stored block's hash doesn't match the
// hash computed from its fields.
var ErrHashMismatch = errors.New("block hash does not match block contents")

// =============================================================================

// BlockArgs represents the set of arguments required to construct a block.
type BlockArgs struct {
	Index        uint64
	PreviousHash string
	Transactions []string
	TimeStamp    int64 // Seconds since epoch. Zero means now.
	Nonce        uint64
}

// Block represents one step of the ledger. The hash is computed once at
// construction and a block is never changed afterwards.
type Block struct {
	index        uint64
	previousHash string
	transactions []string
	timeStamp    int64
	nonce        uint64
	hash         string
}

// NewBlock constructs a block and computes its hash. No validation is
// performed, that is the job of the chain and the consensus hook.
func NewBlock(args BlockArgs) Block {
	ts := args.TimeStamp
	if ts == 0 {
		ts = time.Now().UTC().Unix()
	}

	trans := make([]string, len(args.Transactions))
	copy(trans, args.Transactions)

	return Block{
		index:        args.Index,
		previousHash: args.PreviousHash,
		transactions: trans,
		timeStamp:    ts,
		nonce:        args.Nonce,
		hash:         ComputeHash(args.Index, args.PreviousHash, trans, ts, args.Nonce),
	}
}

// ComputeHash returns the hash for the specified block fields. The fields
// are concatenated in their canonical string form and hashed with sha256.
func ComputeHash(index uint64, previousHash string, transactions []string, timeStamp int64, nonce uint64) string {
	if transactions == nil {
		transactions = []string{}
	}

	// Marshaling a slice of strings can't fail.
	trans, _ := json.Marshal(transactions)

	var b strings.Builder
	b.WriteString(strconv.FormatUint(index, 10))
	b.WriteString(previousHash)
	b.Write(trans)
	b.WriteString(strconv.FormatInt(timeStamp, 10))
	b.WriteString(strconv.FormatUint(nonce, 10))

	return signature.HashString(b.String())
}

// Index returns the position of the block in the chain.
func (b Block) Index() uint64 {
	return b.index
}

// PreviousHash returns the hash of the parent block.
func (b Block) PreviousHash() string {
	return b.previousHash
}

// Transactions returns a copy of the serialized transaction records.
func (b Block) Transactions() []string {
	trans := make([]string, len(b.transactions))
	copy(trans, b.transactions)
	return trans
}

// TimeStamp returns the seconds since epoch the block was built.
func (b Block) TimeStamp() int64 {
	return b.timeStamp
}

// Nonce returns the nonce hashed into the block.
func (b Block) Nonce() uint64 {
	return b.nonce
}

// Hash returns the hash computed when the block was constructed.
func (b Block) Hash() string {
	return b.hash
}

// IsZero reports whether this is the zero value and not a constructed block.
func (b Block) IsZero() bool {
	return b.hash == ""
}

// MarshalJSON implements the json.Marshaler interface.
func (b Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewBlockData(b))
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.index, b.hash)
}

// ValidateNextBlock checks the block can be appended after the specified
// previous block.
func (b Block) ValidateNextBlock(previousBlock Block) error {
	nextIndex := previousBlock.index + 1
	if b.index != nextIndex {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.index, nextIndex)
	}

	if b.previousHash != previousBlock.hash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.previousHash, previousBlock.hash)
	}

	return nil
}

// ValidateGenesis checks the block can be the first block of a chain.
func (b Block) ValidateGenesis() error {
	if b.index != 0 {
		return fmt.Errorf("genesis block has index %d", b.index)
	}

	if b.previousHash != signature.ZeroHash {
		return fmt.Errorf("genesis block previous hash is %q, exp %q", b.previousHash, signature.ZeroHash)
	}

	return nil
}

// =============================================================================

// BlockData represents what is serialized to storage and to presentation
// layers.
type BlockData struct {
	Index        uint64   `json:"index"`
	PreviousHash string   `json:"previous_hash"`
	Transactions []string `json:"transactions"`
	TimeStamp    int64    `json:"timestamp"`
	Nonce        uint64   `json:"nonce"`
	Hash         string   `json:"hash"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Index:        block.index,
		PreviousHash: block.previousHash,
		Transactions: block.Transactions(),
		TimeStamp:    block.timeStamp,
		Nonce:        block.nonce,
		Hash:         block.hash,
	}
}

// ToBlock converts BlockData into a Block, recomputing the hash and
// checking it against the stored hash.
func ToBlock(blockData BlockData) (Block, error) {
	block := NewBlock(BlockArgs{
		Index:        blockData.Index,
		PreviousHash: blockData.PreviousHash,
		Transactions: blockData.Transactions,
		TimeStamp:    blockData.TimeStamp,
		Nonce:        blockData.Nonce,
	})

	if block.hash != blockData.Hash {
		return Block{}, fmt.Errorf("block %d: got %s, exp %s: %w", blockData.Index, blockData.Hash, block.hash, ErrHashMismatch)
	}

	return block, nil
}

// Verify checks the chain linkage invariants over the full sequence of
// blocks: the first block is a genesis block and every other block links
// to its parent.
func Verify(blocks []Block) error {
	for i, block := range blocks {
		if i == 0 {
			if err := block.ValidateGenesis(); err != nil {
				return err
			}
			continue
		}

		if err := block.ValidateNextBlock(blocks[i-1]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}
