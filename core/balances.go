package core

import (
	"bytes"
	"sort"
)

// C5: balance engine, grounded on the teacher's AccountManager.Transfer —
// same debit/credit/invariant shape, generalised to the arbitrary-precision
// TokenAmount and multi-symbol ledger this engine maintains.

// GetSymbols returns the genesis-configured symbol table, identifier to
// display name (§3 supplemented: introspection endpoint absent from the
// distilled spec but present in the original ledger configuration).
func (e *Engine) GetSymbols() (map[Symbol]string, error) {
	raw, err := e.store.Get([]byte(keyConfigSymbols))
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "read symbols")
	}
	if raw == nil {
		return nil, nil
	}
	var syms map[Symbol]string
	if err := unmarshalCBOR(raw, &syms); err != nil {
		return nil, err
	}
	return syms, nil
}

func (e *Engine) validateSymbol(sym Symbol) error {
	syms, err := e.GetSymbols()
	if err != nil {
		return err
	}
	if _, ok := syms[sym]; !ok {
		return newErr(CodeUnknownSymbol, "unknown symbol %q", sym)
	}
	return nil
}

// GetBalance reads the balance of id in sym, defaulting to zero when no
// entry exists (§4.5).
func (e *Engine) GetBalance(id Identity, sym Symbol) (TokenAmount, error) {
	raw, err := e.store.Get(balanceKey(id, sym))
	if err != nil {
		return TokenAmount{}, wrapErr(CodeUnknown, err, "read balance")
	}
	return decodeAmount(raw), nil
}

// GetMultipleBalances reads a caller-supplied subset of symbols for id. An
// empty filter behaves as GetAllBalances (§4.5).
func (e *Engine) GetMultipleBalances(id Identity, syms []Symbol) (map[Symbol]TokenAmount, error) {
	if len(syms) == 0 {
		return e.GetAllBalances(id)
	}
	out := make(map[Symbol]TokenAmount, len(syms))
	for _, sym := range syms {
		bal, err := e.GetBalance(id, sym)
		if err != nil {
			return nil, err
		}
		out[sym] = bal
	}
	return out, nil
}

// GetAllBalances scans the full "/balances/<id>/" prefix, returning every
// symbol id holds a non-zero entry for (§4.5). A zero balance is never
// persisted, per putBalance below, so every entry found here is non-zero.
func (e *Engine) GetAllBalances(id Identity) (map[Symbol]TokenAmount, error) {
	lower := balanceKeyPrefix(id)
	upper := append([]byte(nil), lower...)
	upper[len(upper)-1]++

	it, err := e.store.IterOpt(lower, upper, true)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make(map[Symbol]TokenAmount)
	for it.Next() {
		sym := symbolFromBalanceKey(it.Key(), lower)
		out[sym] = decodeAmount(it.Value())
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func balanceKeyPrefix(id Identity) []byte {
	return []byte(prefixBalances + id.Text() + "/")
}

func symbolFromBalanceKey(key, prefix []byte) Symbol {
	return Symbol(key[len(prefix):])
}

// putBalance queues bal's new value for id/sym, deleting the key entirely
// when the result is zero so "absent ≡ zero" stays true of the actual
// keyspace, not just of the decode path.
func putBalance(batch *WriteBatch, id Identity, sym Symbol, bal TokenAmount) {
	key := balanceKey(id, sym)
	if bal.IsZero() {
		batch.Delete(key)
		return
	}
	batch.Put(key, encodeAmount(bal))
}

// Send debits from and credits to by amount in sym, queuing both writes
// into batch in ascending key order per the adapter's batching discipline
// (§4.3, §9). It never touches the store directly: the caller (Engine.Send)
// owns the commit boundary.
func (e *Engine) send(batch *WriteBatch, from, to Identity, sym Symbol, amount TokenAmount) error {
	if amount.IsZero() || from.Equal(to) {
		return nil
	}
	if from.IsAnonymous() || to.IsAnonymous() {
		return newErr(CodeAnonymousCannotHoldFunds, "anonymous identity cannot hold funds")
	}
	if err := e.validateSymbol(sym); err != nil {
		return err
	}

	fromBal, err := e.GetBalance(from, sym)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return newErr(CodeInsufficientFunds, "insufficient funds: have %s, need %s", fromBal.v, amount.v)
	}
	toBal, err := e.GetBalance(to, sym)
	if err != nil {
		return err
	}

	newFrom := fromBal.Sub(amount)
	newTo := toBal.Add(amount)

	type pendingWrite struct {
		id  Identity
		bal TokenAmount
	}
	writes := []pendingWrite{{from, newFrom}, {to, newTo}}
	sort.Slice(writes, func(i, j int) bool {
		return bytes.Compare(balanceKey(writes[i].id, sym), balanceKey(writes[j].id, sym)) < 0
	})
	for _, w := range writes {
		putBalance(batch, w.id, sym, w.bal)
	}
	return nil
}
