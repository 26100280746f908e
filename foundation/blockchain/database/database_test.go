package database_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_BlockHash(t *testing.T) {
	type table struct {
		name string
		args database.BlockArgs
	}

	tt := []table{
		{
			name: "genesis",
			args: database.BlockArgs{PreviousHash: signature.ZeroHash, TimeStamp: 1700000000},
		},
		{
			name: "transactions",
			args: database.BlockArgs{
				Index:        7,
				PreviousHash: "ab12",
				Transactions: []string{`{"kind":"account"}`, `{"kind":"utxo"}`},
				TimeStamp:    1700000123,
				Nonce:        42,
			},
		},
	}

	t.Log("Given the need to hash blocks deterministically.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s block.", testID, tst.name)
			{
				f := func(t *testing.T) {
					block := database.NewBlock(tst.args)

					if len(block.Hash()) != 64 || strings.ToLower(block.Hash()) != block.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould get a 64 char lower-case hex hash: %q", failed, testID, block.Hash())
					}
					t.Logf("\t%s\tTest %d:\tShould get a 64 char lower-case hex hash.", success, testID)

					exp := database.ComputeHash(block.Index(), block.PreviousHash(), block.Transactions(), block.TimeStamp(), block.Nonce())
					if block.Hash() != exp {
						t.Fatalf("\t%s\tTest %d:\tShould recompute the same hash from the fields: got %s, exp %s", failed, testID, block.Hash(), exp)
					}
					t.Logf("\t%s\tTest %d:\tShould recompute the same hash from the fields.", success, testID)

					again := database.NewBlock(tst.args)
					if again.Hash() != block.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould get the same hash for the same fields.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the same hash for the same fields.", success, testID)

					args := tst.args
					args.Nonce++
					if database.NewBlock(args).Hash() == block.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould get a different hash when the nonce changes.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get a different hash when the nonce changes.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_BlockImmutable(t *testing.T) {
	t.Log("Given the need to keep a block from being changed.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen changing the returned transactions.", testID)
		{
			block := database.NewBlock(database.BlockArgs{
				PreviousHash: signature.ZeroHash,
				Transactions: []string{"a", "b"},
				TimeStamp:    1700000000,
			})

			trans := block.Transactions()
			trans[0] = "changed"

			if block.Transactions()[0] != "a" {
				t.Fatalf("\t%s\tTest %d:\tShould not change the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change the block.", success, testID)
		}
	}
}

func Test_ToBlock(t *testing.T) {
	t.Log("Given the need to load blocks from storage.")
	{
		block := database.NewBlock(database.BlockArgs{
			PreviousHash: signature.ZeroHash,
			Transactions: []string{"a"},
			TimeStamp:    1700000000,
		})

		testID := 0
		t.Logf("\tTest %d:\tWhen the stored data is untouched.", testID)
		{
			got, err := database.ToBlock(database.NewBlockData(block))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to convert the data: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to convert the data.", success, testID)

			if got.Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould get the same hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the same hash.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the stored data was tampered with.", testID)
		{
			blockData := database.NewBlockData(block)
			blockData.Transactions = []string{"b"}

			_, err := database.ToBlock(blockData)
			if !errors.Is(err, database.ErrHashMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould get a hash mismatch: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a hash mismatch.", success, testID)
		}
	}
}

func Test_Database(t *testing.T) {
	t.Log("Given the need to maintain a linked chain of blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen writing blocks to the database.", testID)
		{
			storage, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %v", failed, testID, err)
			}

			db, err := database.New(storage, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the database: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the database.", success, testID)

			if !db.LatestBlock().IsZero() {
				t.Fatalf("\t%s\tTest %d:\tShould start with an empty chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould start with an empty chain.", success, testID)

			bad := database.NewBlock(database.BlockArgs{Index: 1, PreviousHash: signature.ZeroHash})
			if err := db.Write(bad); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not accept a genesis block with index 1.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not accept a genesis block with index 1.", success, testID)

			prevHash := signature.ZeroHash
			for i := uint64(0); i < 5; i++ {
				block := database.NewBlock(database.BlockArgs{Index: i, PreviousHash: prevHash, TimeStamp: 1700000000 + int64(i)})
				if err := db.Write(block); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, i, err)
				}
				prevHash = block.Hash()
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write 5 blocks.", success, testID)

			if err := database.Verify(db.Blocks()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould have a verified chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould have a verified chain.", success, testID)

			latest := db.LatestBlock()
			wrongParent := database.NewBlock(database.BlockArgs{Index: 5, PreviousHash: "ff"})
			if err := db.Write(wrongParent); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not accept a block with the wrong parent hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not accept a block with the wrong parent hash.", success, testID)

			skipped := database.NewBlock(database.BlockArgs{Index: 7, PreviousHash: latest.Hash()})
			if err := db.Write(skipped); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not accept a block with a skipped index.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not accept a block with a skipped index.", success, testID)

			if db.Length() != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould still have 5 blocks: got %d", failed, testID, db.Length())
			}
			t.Logf("\t%s\tTest %d:\tShould still have 5 blocks.", success, testID)

			reloaded, err := database.New(storage, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reload the chain: %v", failed, testID, err)
			}
			if reloaded.LatestBlock().Hash() != latest.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould reload the same tail block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reload the same tail block.", success, testID)

			if _, err := db.GetBlock(9); !errors.Is(err, database.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get block not found: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get block not found.", success, testID)
		}
	}
}

func Test_Verify(t *testing.T) {
	t.Log("Given the need to verify a sequence of blocks.")
	{
		genesis := database.NewBlock(database.BlockArgs{PreviousHash: signature.ZeroHash, TimeStamp: 1700000000})
		next := database.NewBlock(database.BlockArgs{Index: 1, PreviousHash: genesis.Hash(), TimeStamp: 1700000001})
		orphan := database.NewBlock(database.BlockArgs{Index: 1, PreviousHash: "00", TimeStamp: 1700000001})

		testID := 0
		t.Logf("\tTest %d:\tWhen a block doesn't link to its parent.", testID)
		{
			if err := database.Verify([]database.Block{genesis, next}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify a linked chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify a linked chain.", success, testID)

			if err := database.Verify([]database.Block{genesis, orphan}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail an unlinked chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail an unlinked chain.", success, testID)
		}
	}
}
