package transaction_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/transaction"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Account(t *testing.T) {
	t.Log("Given the need to transfer between account balances.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen applying the same transfer twice.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 100, "B": 50}}
			tx := transaction.NewAccount("A", "B", 30)

			if !tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould validate the transfer.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the transfer.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply the transfer: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 70, "B": 80})

			st, err = tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply the transfer again: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 40, "B": 110})
		}

		testID++
		t.Logf("\tTest %d:\tWhen the sender can't cover the amount.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 10}}
			tx := transaction.NewAccount("A", "B", 30)

			if tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould not validate the transfer.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate the transfer.", success, testID)

			_, err := tx.Apply(st)
			if !errors.Is(err, transaction.ErrInvalid) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to apply the transfer: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 10})
		}
	}
}

func Test_UTXO(t *testing.T) {
	t.Log("Given the need to spend unspent outputs.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen spending an existing output.", testID)
		{
			spent := transaction.OutPoint{TxID: "tx0", Index: 0}
			st := transaction.State{Outputs: transaction.Outputs{spent: {Address: "A", Amount: 50}}}

			tx := transaction.NewUTXO([]transaction.OutPoint{spent}, []transaction.Output{{Address: "C", Amount: 50}})
			if !tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould validate the spend.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the spend.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply the spend: %v", failed, testID, err)
			}

			if _, exists := st.Outputs[spent]; exists {
				t.Fatalf("\t%s\tTest %d:\tShould remove the spent input.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould remove the spent input.", success, testID)

			if len(st.Outputs) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould add exactly one output, got %d.", failed, testID, len(st.Outputs))
			}
			out, exists := st.Outputs[tx.OutPoint(0)]
			if !exists || out.Address != "C" || out.Amount != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould map the new output to C:50, got %v.", failed, testID, out)
			}
			t.Logf("\t%s\tTest %d:\tShould add exactly one output for C:50.", success, testID)

			if tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould not validate a double spend.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate a double spend.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen two transactions create outputs.", testID)
		{
			tx1 := transaction.NewUTXO(nil, []transaction.Output{{Address: "A", Amount: 1}})
			tx2 := transaction.NewUTXO(nil, []transaction.Output{{Address: "B", Amount: 1}})
			if tx1.ID() == tx2.ID() {
				t.Fatalf("\t%s\tTest %d:\tShould produce different ids.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce different ids.", success, testID)

			st, err := tx1.Apply(transaction.State{})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}

			if _, err := tx1.Apply(st); !errors.Is(err, transaction.ErrInvalid) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to overwrite existing outputs: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to overwrite existing outputs.", success, testID)
		}
	}
}

func Test_Confidential(t *testing.T) {
	t.Log("Given the need to accept confidential transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the sender holds nothing.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 0}}
			tx := transaction.NewConfidential("A", "B", "commitment")

			if !tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould always validate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould always validate.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 0})
		}
	}
}

func Test_MultiSig(t *testing.T) {
	t.Log("Given the need to require a threshold of signatures.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen collecting two of two opaque signatures.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"C": 20, "A": 70}}
			tx := transaction.NewMultiSig([]string{"C", "B"}, 2, "C", "A", 10)

			if tx.Validate(st) || tx.Status() != transaction.Unsigned {
				t.Fatalf("\t%s\tTest %d:\tShould not validate without signatures.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate without signatures.", success, testID)

			tx.AddSignature("sigC")
			if tx.Validate(st) || tx.Status() != transaction.PartiallySigned {
				t.Fatalf("\t%s\tTest %d:\tShould not validate with one signature.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate with one signature.", success, testID)

			if tx.AddSignature("sigC") {
				t.Fatalf("\t%s\tTest %d:\tShould not count the same signature twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not count the same signature twice.", success, testID)

			tx.AddSignature("sigB")
			if !tx.Validate(st) || tx.Status() != transaction.Ready {
				t.Fatalf("\t%s\tTest %d:\tShould validate with two signatures.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould validate with two signatures.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"C": 10, "A": 80})
		}

		testID++
		t.Logf("\tTest %d:\tWhen signers approve with ECDSA signatures.", testID)
		{
			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}
			signer := crypto.PubkeyToAddress(pk.PublicKey).String()

			other, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}

			tx := transaction.NewMultiSig([]string{signer}, 1, signer, "B", 5)

			sig, err := signature.Sign(tx.SigningPayload(), other)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}
			if err := tx.AddSignerSignature(sig); !errors.Is(err, transaction.ErrNotSigner) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a signature from outside the signer set: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a signature from outside the signer set.", success, testID)

			sig, err = signature.Sign(tx.SigningPayload(), pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}
			if err := tx.AddSignerSignature(sig); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the signer's signature: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the signer's signature.", success, testID)

			if err := tx.AddSignerSignature(sig); !errors.Is(err, transaction.ErrAlreadyApproved) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a second approval: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a second approval.", success, testID)

			if tx.Status() != transaction.Ready {
				t.Fatalf("\t%s\tTest %d:\tShould be ready, got %s.", failed, testID, tx.Status())
			}
			t.Logf("\t%s\tTest %d:\tShould be ready.", success, testID)
		}
	}
}

func Test_AtomicSwap(t *testing.T) {
	t.Log("Given the need to settle a hash locked transfer.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the secret is revealed.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 10, "B": 0}}
			tx := transaction.NewAtomicSwap("A", "B", 5, signature.HashSecret([]byte("secret")), time.Now().Add(100*time.Second))

			if !tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould validate an open swap.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould validate an open swap.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 10, "B": 0})

			if tx.Redeem([]byte("wrong")) {
				t.Fatalf("\t%s\tTest %d:\tShould not redeem with the wrong secret.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not redeem with the wrong secret.", success, testID)

			if !tx.Redeem([]byte("secret")) {
				t.Fatalf("\t%s\tTest %d:\tShould redeem with the secret.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould redeem with the secret.", success, testID)

			if tx.Redeem([]byte("secret")) {
				t.Fatalf("\t%s\tTest %d:\tShould not redeem twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not redeem twice.", success, testID)

			if tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould not validate a redeemed swap.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate a redeemed swap.", success, testID)

			st, err = tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 5, "B": 5})

			st, err = tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 5, "B": 5})
		}

		testID++
		t.Logf("\tTest %d:\tWhen the swap has expired.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 10}}
			tx := transaction.NewAtomicSwap("A", "B", 5, signature.HashSecret([]byte("secret")), time.Now().Add(-time.Second))

			if tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould not validate an expired swap.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate an expired swap.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen many callers race to redeem.", testID)
		{
			tx := transaction.NewAtomicSwap("A", "B", 5, signature.HashSecret([]byte("secret")), time.Now().Add(time.Minute))

			const callers = 50
			results := make(chan bool, callers)

			var wg sync.WaitGroup
			wg.Add(callers)
			for range callers {
				go func() {
					defer wg.Done()
					results <- tx.Redeem([]byte("secret"))
				}()
			}
			wg.Wait()
			close(results)

			var wins int
			for ok := range results {
				if ok {
					wins++
				}
			}

			if wins != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould redeem exactly once, got %d.", failed, testID, wins)
			}
			t.Logf("\t%s\tTest %d:\tShould redeem exactly once.", success, testID)
		}
	}
}

func Test_TimeLocked(t *testing.T) {
	t.Log("Given the need to hold a transfer until an unlock time.")
	{
		unlock := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		tx := transaction.NewTimeLocked("A", "B", 5, unlock)

		testID := 0
		t.Logf("\tTest %d:\tWhen the unlock time has not been reached.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 10}, Now: unlock.Add(-time.Second)}
			if tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould not validate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not validate.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the unlock time has been reached.", testID)
		{
			st := transaction.State{Balances: transaction.Balances{"A": 10, "B": 0}, Now: unlock}
			if !tx.Validate(st) {
				t.Fatalf("\t%s\tTest %d:\tShould validate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould validate.", success, testID)

			st, err := tx.Apply(st)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply: %v", failed, testID, err)
			}
			checkBalances(t, testID, st.Balances, transaction.Balances{"A": 5, "B": 5})
		}
	}
}

func Test_Describe(t *testing.T) {
	t.Log("Given the need to record every transaction model.")
	{
		txs := []transaction.Tx{
			transaction.NewAccount("A", "B", 1),
			transaction.NewUTXO(nil, []transaction.Output{{Address: "A", Amount: 1}}),
			transaction.NewConfidential("A", "B", "c"),
			transaction.NewMultiSig([]string{"A"}, 1, "A", "B", 1),
			transaction.NewAtomicSwap("A", "B", 1, "h", time.Now()),
			transaction.NewTimeLocked("A", "B", 1, time.Now()),
		}

		for testID, tx := range txs {
			t.Logf("\tTest %d:\tWhen describing a %s transaction.", testID, tx.Kind())
			{
				rec := transaction.Describe(tx)
				if rec.Kind != tx.Kind() {
					t.Fatalf("\t%s\tTest %d:\tShould record the kind, got %s.", failed, testID, rec.Kind)
				}
				if rec.String() == "" {
					t.Fatalf("\t%s\tTest %d:\tShould produce a canonical string.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould record the kind and a canonical string.", success, testID)
			}
		}
	}
}

func Test_FromRecord(t *testing.T) {
	t.Log("Given the need to rebuild transaction models from block records.")
	{
		unlock := time.Date(2024, time.March, 1, 10, 0, 0, 500, time.UTC)

		ms := transaction.NewMultiSig([]string{"A", "C"}, 2, "A", "B", 4)
		ms.AddSignature("sig-a")
		ms.AddSignature("sig-c")

		redeemed := transaction.NewAtomicSwap("A", "B", 3, signature.HashSecret([]byte("secret")), unlock)
		redeemed.Redeem([]byte("secret"))

		utxo := transaction.NewUTXO([]transaction.OutPoint{{TxID: "genesis", Index: 0}}, []transaction.Output{{Address: "B", Amount: 6}, {Address: "A", Amount: 4}})

		start := transaction.State{
			Balances: transaction.Balances{"A": 10, "B": 0},
			Outputs:  transaction.Outputs{{TxID: "genesis", Index: 0}: {Address: "A", Amount: 10}},
			Now:      unlock,
		}

		txs := []transaction.Tx{
			transaction.NewAccount("A", "B", 1),
			utxo,
			transaction.NewConfidential("A", "B", "c"),
			ms,
			redeemed,
			transaction.NewAtomicSwap("A", "B", 3, "h", unlock),
			transaction.NewTimeLocked("A", "B", 2, unlock),
		}

		for testID, tx := range txs {
			t.Logf("\tTest %d:\tWhen rebuilding a %s transaction.", testID, tx.Kind())
			{
				rec := transaction.Describe(tx)

				parsed, err := transaction.ParseRecord(rec.String())
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to parse the record: %v", failed, testID, err)
				}

				rebuilt, err := transaction.FromRecord(parsed)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to rebuild the model: %v", failed, testID, err)
				}

				if got := transaction.Describe(rebuilt).String(); got != rec.String() {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, rec.String())
					t.Fatalf("\t%s\tTest %d:\tShould record the same model.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould record the same model.", success, testID)

				if rebuilt.Validate(start.Clone()) != tx.Validate(start.Clone()) {
					t.Fatalf("\t%s\tTest %d:\tShould validate the same way.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould validate the same way.", success, testID)
			}
		}

		testID := len(txs)
		t.Logf("\tTest %d:\tWhen rebuilding a plain transfer.", testID)
		{
			rec := transaction.NewRecord("A", "B", 1, "")
			if rec.Kind != transaction.KindTransfer {
				t.Fatalf("\t%s\tTest %d:\tShould be recorded as a transfer, got %s.", failed, testID, rec.Kind)
			}

			if _, err := transaction.FromRecord(rec); !errors.Is(err, transaction.ErrNoModel) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrNoModel: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not rebuild a model.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the recorded utxo id does not match its content.", testID)
		{
			rec := transaction.Describe(utxo)
			rec.Details["id"] = "0xbad"

			if _, err := transaction.FromRecord(rec); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the record.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the record.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a redeemed swap is marked settled.", testID)
		{
			swap := transaction.NewAtomicSwap("A", "B", 3, signature.HashSecret([]byte("s")), unlock)
			if swap.MarkSettled() {
				t.Fatalf("\t%s\tTest %d:\tShould not settle an open swap.", failed, testID)
			}

			swap.Redeem([]byte("s"))
			if !swap.MarkSettled() || swap.Status() != transaction.Settled {
				t.Fatalf("\t%s\tTest %d:\tShould settle a redeemed swap.", failed, testID)
			}

			st, err := swap.Apply(start.Clone())
			if err != nil || st.Balances["A"] != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould not move funds once settled: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould settle once without moving funds.", success, testID)
		}
	}
}

// =============================================================================

func checkBalances(t *testing.T, testID int, got transaction.Balances, exp transaction.Balances) {
	t.Helper()

	for addr, bal := range exp {
		if got[addr] != bal {
			t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
			t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, exp)
			t.Fatalf("\t%s\tTest %d:\tShould have correct balance for %s.", failed, testID, addr)
		}
	}
	t.Logf("\t%s\tTest %d:\tShould have correct balances.", success, testID)
}
