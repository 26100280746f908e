package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/consensus"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

func verifyCmd(opts *options) *cobra.Command {
	var difficulty uint

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every block hash and link in the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			blocks := db.Blocks()
			if err := database.Verify(blocks); err != nil {
				return err
			}

			// Genesis is not mined so it is not held to the difficulty.
			for _, block := range blocks[min(1, len(blocks)):] {
				if !consensus.IsHashSolved(difficulty, block.Hash()) {
					return fmt.Errorf("block %d: hash %s does not meet difficulty %d", block.Index(), block.Hash(), difficulty)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "chain ok: blocks[%d] tail[%s]\n", len(blocks), db.LatestBlock().Hash())

			return nil
		},
	}

	cmd.Flags().UintVar(&difficulty, "difficulty", 0, "Proof of work difficulty every mined block must meet.")

	return cmd
}
