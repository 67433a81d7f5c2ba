package core

import "testing"

// assertTransactionCountConsistent walks the full "/transactions/" prefix
// and checks its cardinality against the stored counter (I3): the original
// ledger never asserts this explicitly, but the spec directs it be tested
// here.
func assertTransactionCountConsistent(t *testing.T, e *Engine) {
	t.Helper()
	want, err := e.NbTransactions()
	if err != nil {
		t.Fatalf("NbTransactions: %v", err)
	}
	it, err := e.Iter(TIDRange{}, Ascending)
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	defer it.Close()
	var got uint64
	for it.Next() {
		got++
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if got != want {
		t.Fatalf("transaction log has %d entries but counter reports %d", got, want)
	}
}

func TestTransactionCountMatchesLogCardinality(t *testing.T) {
	dir := t.TempDir()
	idA := NewIdentity([]byte("alice"))
	idB := NewIdentity([]byte("bob"))
	e := newGenesisEngine(t, dir, mfkSymbols(), []InitialBalance{{Identity: idA, Symbol: symMFK, Amount: NewTokenAmount(100)}})

	assertTransactionCountConsistent(t, e)
	for i := 0; i < 7; i++ {
		if err := e.Send(idA, idB, symMFK, NewTokenAmount(1)); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	assertTransactionCountConsistent(t, e)

	// A rejected send must not move the counter either.
	if err := e.Send(idA, idB, symMFK, NewTokenAmount(10_000)); !IsCode(err, CodeInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	assertTransactionCountConsistent(t, e)
}

// I3 regression: an auto-executing multisig submission writes two log
// entries (submit, then execute) into a single uncommitted batch. The
// counter must account for both, not just the last one written.
func TestTransactionCountAcrossAutoExecutingMultisigBatch(t *testing.T) {
	dir := t.TempDir()
	funder := NewIdentity([]byte("funder"))
	owner := NewIdentity([]byte("owner-a"))
	appC := NewIdentity([]byte("approver-c"))
	appD := NewIdentity([]byte("approver-d"))
	recipient := NewIdentity([]byte("recipient-b"))

	e := newGenesisEngine(t, dir, mfkSymbols(), []InitialBalance{{Identity: funder, Symbol: symMFK, Amount: NewTokenAmount(1000)}})
	groupID := groupAccountWithApprovers(t, e, funder, owner, appC, appD, NewIdentity([]byte("submit-only")))
	if err := e.Send(funder, groupID, symMFK, NewTokenAmount(100)); err != nil {
		t.Fatalf("fund group account: %v", err)
	}
	assertTransactionCountConsistent(t, e)
	before, err := e.NbTransactions()
	if err != nil {
		t.Fatalf("NbTransactions: %v", err)
	}

	threshold := uint64(1)
	execAuto := true
	_, err = e.CreateMultisigTransaction(owner, MultisigTxArg{
		Account: groupID,
		Transaction: TransactionRecord{
			Kind:   KindSend,
			From:   groupID.Bytes(),
			To:     recipient.Bytes(),
			Symbol: string(symMFK),
			Amount: NewTokenAmount(10).Bytes(),
		},
		Threshold:            &threshold,
		ExecuteAutomatically: &execAuto,
	})
	if err != nil {
		t.Fatalf("CreateMultisigTransaction: %v", err)
	}

	after, err := e.NbTransactions()
	if err != nil {
		t.Fatalf("NbTransactions: %v", err)
	}
	if after != before+2 {
		t.Fatalf("expected submit+execute to log two transactions, counter moved from %d to %d", before, after)
	}
	assertTransactionCountConsistent(t, e)
}
