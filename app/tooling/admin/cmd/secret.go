package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

func secretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret <value>",
		Short: "Print the hash used to lock an atomic swap to a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), signature.HashSecret([]byte(args[0])))
			return nil
		},
	}
}
