// Package cmd contains the admin commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	storage string
	dbPath  string
}

// NewRootCmd constructs the admin command tree writing to out.
func NewRootCmd(build string, out io.Writer) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the ledger",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVarP(&opts.storage, "storage", "s", "disk", "Storage kind: disk|bolt.")
	rootCmd.PersistentFlags().StringVarP(&opts.dbPath, "db-path", "d", "zblock/blocks", "Path to the chain storage.")

	rootCmd.AddCommand(
		blocksCmd(&opts),
		verifyCmd(&opts),
		secretCmd(),
		genkeyCmd(),
		signCmd(),
	)

	return rootCmd
}

// Execute runs the command line.
func Execute(build string, out io.Writer) error {
	return NewRootCmd(build, out).Execute()
}

// openDatabase loads the chain, validating every block.
func openDatabase(opts *options) (*database.Database, error) {
	var strg database.Storage
	var err error

	switch opts.storage {
	case "disk":
		strg, err = disk.New(opts.dbPath)
	case "bolt":
		strg, err = bolt.New(opts.dbPath + ".db")
	default:
		return nil, fmt.Errorf("storage %q does not exist", opts.storage)
	}
	if err != nil {
		return nil, err
	}

	db, err := database.New(strg, nil)
	if err != nil {
		strg.Close()
		return nil, err
	}

	return db, nil
}
