// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/accounts"
	"github.com/ardanlabs/ledger/foundation/blockchain/consensus"
	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/prometheus/client_golang/prometheus"
)

// Set of error variables for configuring and operating the chain.
var (
	ErrNoHook    = errors.New("no consensus hook configured")
	ErrNoBackend = errors.New("no contract backend configured")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining in the background.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis    genesis.Genesis
	Storage    database.Storage
	Hook       consensus.Hook
	Deployer   contract.Deployer
	Registerer prometheus.Registerer
	EvHandler  EventHandler
}

// State manages the chain, the pending pool and the settlement state.
type State struct {
	mu sync.Mutex

	evHandler EventHandler
	genesis   genesis.Genesis
	hook      consensus.Hook
	deployer  contract.Deployer
	metrics   *metrics

	mempool  *mempool.Mempool
	db       *database.Database
	accounts *accounts.Accounts

	Worker Worker
}

// New constructs the ledger, loading the chain from storage and creating
// the genesis block when the storage is empty.
func New(cfg Config) (*State, error) {
	if cfg.Hook == nil {
		return nil, ErrNoHook
	}

	if cfg.Storage == nil {
		return nil, errors.New("no storage configured")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("validating genesis: %w", err)
	}

	// Load all existing blocks from storage into memory for processing.
	db, err := database.New(cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		hook:      cfg.Hook,
		deployer:  cfg.Deployer,
		metrics:   m,

		mempool:  mempool.New(),
		db:       db,
		accounts: accounts.New(cfg.Genesis),
	}

	if db.Length() == 0 {
		if err := state.createGenesis(); err != nil {
			return nil, err
		}
	}

	// Rebuild the settlement state from the blocks already stored.
	for _, block := range db.Blocks()[1:] {
		state.settle(block)
	}

	state.metrics.chainHeight.Set(float64(db.Length()))

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all chain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the storage is properly closed.
	return s.db.Close()
}

// Truncate resets the chain back to the genesis block and clears the
// pending pool and the settlement state.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()
	s.accounts.Reset()

	if err := s.db.Reset(); err != nil {
		return err
	}

	if err := s.createGenesis(); err != nil {
		return err
	}

	s.metrics.chainHeight.Set(float64(s.db.Length()))
	s.metrics.mempoolSize.Set(0)

	return nil
}

// HookName returns the name of the consensus hook in use.
func (s *State) HookName() string {
	return s.hook.Name()
}

// =============================================================================

// createGenesis writes the first block of the chain. The caller must hold
// the lock or own the state exclusively.
func (s *State) createGenesis() error {
	block := database.NewBlock(database.BlockArgs{
		Index:        0,
		PreviousHash: signature.ZeroHash,
		TimeStamp:    s.genesis.Date.Unix(),
	})

	if err := s.db.Write(block); err != nil {
		return fmt.Errorf("writing genesis: %w", err)
	}

	s.evHandler("state: createGenesis: blk[%s]", block)

	return nil
}
