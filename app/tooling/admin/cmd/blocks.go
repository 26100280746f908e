package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func blocksCmd(opts *options) *cobra.Command {
	var from uint64

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print the blocks of the chain as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			for _, block := range db.Blocks() {
				if block.Index() < from {
					continue
				}
				if err := enc.Encode(block); err != nil {
					return fmt.Errorf("encoding block %d: %w", block.Index(), err)
				}
			}

			return nil
		},
	}

	cmd.Flags().Uint64VarP(&from, "from", "f", 0, "First block to print.")

	return cmd
}
