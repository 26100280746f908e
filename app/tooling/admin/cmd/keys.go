package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

func genkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey <path>",
		Short: "Generate a new private key for a multi-signature signer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				return err
			}

			if err := crypto.SaveECDSA(args[0], privateKey); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	var (
		keyPath   string
		signers   []string
		required  int
		sender    string
		recipient string
		amount    int64
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a multi-signature transfer as one of its signers",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := crypto.LoadECDSA(keyPath)
			if err != nil {
				return fmt.Errorf("loading key: %w", err)
			}

			tx := transaction.NewMultiSig(signers, required, sender, recipient, amount)

			sig, err := signature.Sign(tx.SigningPayload(), privateKey)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "Path to the signer's private key.")
	cmd.Flags().StringSliceVar(&signers, "signers", nil, "Addresses allowed to sign.")
	cmd.Flags().IntVar(&required, "required", 1, "Number of signatures required.")
	cmd.Flags().StringVar(&sender, "sender", "", "Sending account.")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Receiving account.")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount to transfer.")
	cmd.MarkFlagRequired("key")

	return cmd
}
