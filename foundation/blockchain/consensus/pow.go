package consensus

import (
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// POW accepts a block when its hash starts with Difficulty zero
// characters. A difficulty of zero accepts every block.
type POW struct {
	Difficulty uint
	EvHandler  EventHandler
}

// Name returns the kind of this hook.
func (POW) Name() string {
	return KindPOW
}

// ValidateBlock checks the block hash against the difficulty.
func (p POW) ValidateBlock(block database.Block, chain []database.Block) bool {
	return IsHashSolved(p.Difficulty, block.Hash())
}

// OnBlockMined reports the hash of the mined block.
func (p POW) OnBlockMined(block database.Block, chain []database.Block) {
	if p.EvHandler != nil {
		p.EvHandler("consensus: pow: block mined: blk[%d] hash[%s]", block.Index(), block.Hash())
	}
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	return strings.HasPrefix(hash, strings.Repeat("0", int(difficulty)))
}
