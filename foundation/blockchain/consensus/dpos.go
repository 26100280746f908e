package consensus

import (
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Delegated accepts every block and reports the configured validator set
// when a block is mined. Validator signatures are not checked.
type Delegated struct {
	Validators []string
	EvHandler  EventHandler
}

// Name returns the kind of this hook.
func (Delegated) Name() string {
	return KindDelegated
}

// ValidateBlock accepts every block.
func (d Delegated) ValidateBlock(block database.Block, chain []database.Block) bool {
	return true
}

// OnBlockMined reports the validators for the mined block.
func (d Delegated) OnBlockMined(block database.Block, chain []database.Block) {
	if d.EvHandler != nil {
		d.EvHandler("consensus: dpos: block mined: blk[%d] validators[%s]", block.Index(), strings.Join(d.Validators, ","))
	}
}
