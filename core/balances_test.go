package core

import (
	"bytes"
	"testing"
)

// §9 batching discipline: send sorts its two balance writes by key itself
// (the adapter does not sort), so a transfer in either direction, whichever
// identity's key sorts first, must give the same root hash each time it is
// replayed.
func TestSendBatchOrderIndependence(t *testing.T) {
	build := func(firstIsLower bool) []byte {
		dir := t.TempDir()
		// Pick identities so that balanceKey(lo) < balanceKey(hi) is fixed,
		// then call Send with from/to in both relative orders.
		lo := NewIdentity([]byte("aaa-lo"))
		hi := NewIdentity([]byte("zzz-hi"))
		e := newGenesisEngine(t, dir, mfkSymbols(), []InitialBalance{
			{Identity: lo, Symbol: symMFK, Amount: NewTokenAmount(100)},
			{Identity: hi, Symbol: symMFK, Amount: NewTokenAmount(100)},
		})
		if firstIsLower {
			if err := e.Send(lo, hi, symMFK, NewTokenAmount(10)); err != nil {
				t.Fatalf("Send: %v", err)
			}
		} else {
			if err := e.Send(hi, lo, symMFK, NewTokenAmount(10)); err != nil {
				t.Fatalf("Send: %v", err)
			}
		}
		return e.Hash()
	}

	h1 := build(true)
	h2 := build(false)
	// Different transfers (opposite direction) so the hashes need not match
	// each other, but each must be internally consistent across repeats of
	// the same direction regardless of which identity happens to sort first.
	h1b := build(true)
	if !bytes.Equal(h1, h1b) {
		t.Fatalf("repeating the same direction produced different hashes: %x != %x", h1, h1b)
	}
	h2b := build(false)
	if !bytes.Equal(h2, h2b) {
		t.Fatalf("repeating the same direction produced different hashes: %x != %x", h2, h2b)
	}
}

func TestGetMultipleAndAllBalances(t *testing.T) {
	dir := t.TempDir()
	idA := NewIdentity([]byte("alice"))
	e := newGenesisEngine(t, dir, map[Symbol]string{"MFK": "MyFirstKoin", "OMN": "Omni"}, []InitialBalance{
		{Identity: idA, Symbol: "MFK", Amount: NewTokenAmount(5)},
		{Identity: idA, Symbol: "OMN", Amount: NewTokenAmount(7)},
	})

	multi, err := e.GetMultipleBalances(idA, []Symbol{"MFK", "OMN", "NOPE"})
	if err != nil {
		t.Fatalf("GetMultipleBalances: %v", err)
	}
	if multi["MFK"].Uint64() != 5 || multi["OMN"].Uint64() != 7 || !multi["NOPE"].IsZero() {
		t.Fatalf("unexpected multi balances: %+v", multi)
	}

	all, err := e.GetAllBalances(idA)
	if err != nil {
		t.Fatalf("GetAllBalances: %v", err)
	}
	if len(all) != 2 || all["MFK"].Uint64() != 5 || all["OMN"].Uint64() != 7 {
		t.Fatalf("unexpected all balances: %+v", all)
	}
}

// §4.5: an empty filter behaves as GetAllBalances, not as an empty result.
func TestGetMultipleBalancesEmptyFilterMeansAll(t *testing.T) {
	dir := t.TempDir()
	idA := NewIdentity([]byte("alice"))
	e := newGenesisEngine(t, dir, map[Symbol]string{"MFK": "MyFirstKoin", "OMN": "Omni"}, []InitialBalance{
		{Identity: idA, Symbol: "MFK", Amount: NewTokenAmount(5)},
		{Identity: idA, Symbol: "OMN", Amount: NewTokenAmount(7)},
	})

	got, err := e.GetMultipleBalances(idA, nil)
	if err != nil {
		t.Fatalf("GetMultipleBalances: %v", err)
	}
	if len(got) != 2 || got["MFK"].Uint64() != 5 || got["OMN"].Uint64() != 7 {
		t.Fatalf("expected empty filter to behave as all balances, got %+v", got)
	}
}

func TestZeroBalanceIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	idA := NewIdentity([]byte("alice"))
	idB := NewIdentity([]byte("bob"))
	e := newGenesisEngine(t, dir, mfkSymbols(), []InitialBalance{{Identity: idA, Symbol: symMFK, Amount: NewTokenAmount(10)}})

	if err := e.Send(idA, idB, symMFK, NewTokenAmount(10)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	all, err := e.GetAllBalances(idA)
	if err != nil {
		t.Fatalf("GetAllBalances: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected a fully-drained balance to be absent, not zero-valued: %+v", all)
	}
	bal, err := e.GetBalance(idA, symMFK)
	if err != nil || !bal.IsZero() {
		t.Fatalf("GetBalance must still report zero for an absent key: %v, %v", bal.Uint64(), err)
	}
}

func TestUnknownSymbolRejected(t *testing.T) {
	dir := t.TempDir()
	idA := NewIdentity([]byte("alice"))
	idB := NewIdentity([]byte("bob"))
	e := newGenesisEngine(t, dir, mfkSymbols(), []InitialBalance{{Identity: idA, Symbol: symMFK, Amount: NewTokenAmount(10)}})

	err := e.Send(idA, idB, "NOPE", NewTokenAmount(1))
	if !IsCode(err, CodeUnknownSymbol) {
		t.Fatalf("expected UnknownSymbol, got %v", err)
	}
}
