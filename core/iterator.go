package core

// C9: the range iterator over the transaction log, grounded on the
// teacher's InMemoryIterator/memIter shape, rebuilt here over the Pebble
// iterator the KV adapter already exposes (§4.9).

// SortOrder selects iteration direction.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// BoundKind discriminates a CborRange endpoint (§4.9, §8 P6).
type BoundKind int

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one endpoint of a TIDRange.
type Bound struct {
	Kind BoundKind
	TID  TransactionID
}

// IncludedBound builds an inclusive bound at t.
func IncludedBound(t TransactionID) Bound { return Bound{Kind: Included, TID: t} }

// ExcludedBound builds an exclusive bound at t.
func ExcludedBound(t TransactionID) Bound { return Bound{Kind: Excluded, TID: t} }

// UnboundedBound is the open endpoint.
func UnboundedBound() Bound { return Bound{Kind: Unbounded} }

// TIDRange bounds a scan of the transaction log (§4.9's CborRange<TID>).
type TIDRange struct {
	Lower Bound
	Upper Bound
}

// lowerKey resolves r's lower bound to the concrete inclusive storage key to
// start the scan at.
func (r TIDRange) lowerKey() []byte {
	switch r.Lower.Kind {
	case Included:
		return transactionKey(r.Lower.TID)
	case Excluded:
		return transactionKey(r.Lower.TID.Next())
	default:
		return []byte(prefixTransactions)
	}
}

// upperKey resolves r's upper bound to the concrete exclusive storage key to
// stop the scan at.
func (r TIDRange) upperKey() []byte {
	switch r.Upper.Kind {
	case Included:
		return transactionKey(r.Upper.TID.Next())
	case Excluded:
		return transactionKey(r.Upper.TID)
	default:
		return transactionsPrefixUpperBound()
	}
}

// TransactionIterator walks a bounded, ordered slice of the transaction
// log, decoding each record on demand.
type TransactionIterator struct {
	kv *kvIterator
}

// Iter opens a scan over r in the given order (§4.9). Bounds are resolved
// to concrete transaction keys up front; the underlying KV adapter does the
// actual ordered walk.
func (e *Engine) Iter(r TIDRange, order SortOrder) (*TransactionIterator, error) {
	kv, err := e.store.IterOpt(r.lowerKey(), r.upperKey(), order != Descending)
	if err != nil {
		return nil, err
	}
	return &TransactionIterator{kv: kv}, nil
}

// Next advances the iterator. It must be called before the first Record.
func (it *TransactionIterator) Next() bool { return it.kv.Next() }

// TID returns the transaction id of the current entry.
func (it *TransactionIterator) TID() TransactionID {
	key := it.kv.Key()
	return NewTransactionID(key[len(prefixTransactions):])
}

// Record decodes the current entry's transaction record.
func (it *TransactionIterator) Record() (*TransactionRecord, error) {
	var rec TransactionRecord
	if err := unmarshalCBOR(it.kv.Value(), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Error reports any iteration error encountered so far.
func (it *TransactionIterator) Error() error { return it.kv.Error() }

// Close releases the underlying store iterator.
func (it *TransactionIterator) Close() error { return it.kv.Close() }
