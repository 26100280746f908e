// Package consensus provides the pluggable policies that decide whether a
// candidate block may join the chain.
package consensus

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/validate"
)

// List of the different consensus kinds.
const (
	KindDefault   = "default"
	KindPOW       = "pow"
	KindDelegated = "dpos"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// Hook is the behavior the chain requires to validate candidate blocks and
// to observe mined blocks. ValidateBlock must not change anything.
type Hook interface {
	Name() string
	ValidateBlock(block database.Block, chain []database.Block) bool
	OnBlockMined(block database.Block, chain []database.Block)
}

// Config represents the settings used to select and construct a hook.
type Config struct {
	Kind       string   `json:"kind" yaml:"kind" validate:"required,oneof=default pow dpos"`
	Difficulty uint     `json:"difficulty" yaml:"difficulty" validate:"lte=64"`
	Validators []string `json:"validators" yaml:"validators" validate:"omitempty,dive,required"`
}

// constructor defines a function that builds a hook from its config.
type constructor func(cfg Config, ev EventHandler) Hook

// Map of the different consensus kinds with their constructors.
var kinds = map[string]constructor{
	KindDefault: func(cfg Config, ev EventHandler) Hook {
		return Default{}
	},
	KindPOW: func(cfg Config, ev EventHandler) Hook {
		return POW{Difficulty: cfg.Difficulty, EvHandler: ev}
	},
	KindDelegated: func(cfg Config, ev EventHandler) Hook {
		validators := make([]string, len(cfg.Validators))
		copy(validators, cfg.Validators)
		return Delegated{Validators: validators, EvHandler: ev}
	},
}

// New validates the config and returns the hook for the specified kind.
func New(cfg Config, ev EventHandler) (Hook, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("validating consensus config: %w", err)
	}

	fn, exists := kinds[cfg.Kind]
	if !exists {
		return nil, fmt.Errorf("consensus kind %q does not exist", cfg.Kind)
	}

	return fn(cfg, ev), nil
}

// =============================================================================

// Default accepts every block and does nothing when a block is mined.
type Default struct{}

// Name returns the kind of this hook.
func (Default) Name() string {
	return KindDefault
}

// ValidateBlock accepts every block.
func (Default) ValidateBlock(block database.Block, chain []database.Block) bool {
	return true
}

// OnBlockMined does nothing.
func (Default) OnBlockMined(block database.Block, chain []database.Block) {}
