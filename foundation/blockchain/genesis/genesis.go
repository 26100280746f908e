// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/consensus"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
	"github.com/ardanlabs/ledger/foundation/validate"
	"gopkg.in/yaml.v3"
)

// Output represents an unspent output that exists when the chain starts.
type Output struct {
	TxID    string `json:"txid" yaml:"txid" validate:"required"`
	Index   int    `json:"index" yaml:"index" validate:"gte=0"`
	Address string `json:"address" yaml:"address" validate:"required"`
	Amount  int64  `json:"amount" yaml:"amount" validate:"gte=0"`
}

// Genesis represents the genesis file.
type Genesis struct {
	Date      time.Time        `json:"date" yaml:"date" validate:"required"`
	ChainID   uint16           `json:"chain_id" yaml:"chain_id" validate:"required"` // The chain id represents an unique id for this running instance.
	Consensus consensus.Config `json:"consensus" yaml:"consensus"`
	Balances  map[string]int64 `json:"balances" yaml:"balances" validate:"dive,keys,required,endkeys,gte=0"`
	Outputs   []Output         `json:"outputs" yaml:"outputs" validate:"dive"`
}

// Default returns a genesis for a chain with no funds using the default
// consensus hook.
func Default() Genesis {
	return Genesis{
		Date:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:   1,
		Consensus: consensus.Config{Kind: consensus.KindDefault},
		Balances:  map[string]int64{},
	}
}

// State returns the settlement state the chain starts with.
func (g Genesis) State() transaction.State {
	st := transaction.State{
		Balances: make(transaction.Balances, len(g.Balances)),
		Outputs:  make(transaction.Outputs, len(g.Outputs)),
	}

	for addr, balance := range g.Balances {
		st.Balances[addr] = balance
	}

	for _, out := range g.Outputs {
		op := transaction.OutPoint{TxID: out.TxID, Index: out.Index}
		st.Outputs[op] = transaction.Output{Address: out.Address, Amount: out.Amount}
	}

	return st
}

// Validate checks the genesis values.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	seen := make(map[transaction.OutPoint]bool, len(g.Outputs))
	for _, out := range g.Outputs {
		op := transaction.OutPoint{TxID: out.TxID, Index: out.Index}
		if seen[op] {
			return fmt.Errorf("duplicate output %s:%d", out.TxID, out.Index)
		}
		seen[op] = true
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file. Files ending in .yaml or .yml
// are decoded as YAML, anything else as JSON.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	default:
		err = json.Unmarshal(content, &genesis)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating %s: %w", path, err)
	}

	return genesis, nil
}
