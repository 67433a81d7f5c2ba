package core

// C6: the append-only transaction log. Every state-mutating operation
// writes one TransactionRecord under /transactions/<tid> in the same batch
// that carries its effects, so the log and the state it describes commit
// atomically together (§4.6).

// Kind discriminates the transaction log's content union (§3). New kinds
// can be added without touching old records, since each is CBOR-decoded on
// its own.
type Kind string

const (
	KindSend                    Kind = "send"
	KindAccountCreate           Kind = "accountCreate"
	KindAccountMultisigSubmit   Kind = "accountMultisigSubmit"
	KindAccountMultisigApprove  Kind = "accountMultisigApprove"
	KindAccountMultisigRevoke   Kind = "accountMultisigRevoke"
	KindAccountMultisigExecute  Kind = "accountMultisigExecute"
	KindAccountMultisigWithdraw Kind = "accountMultisigWithdraw"
)

// TransactionRecord is the content stored at a transaction id. Fields
// unused by a given Kind are left zero and omitted from the wire encoding.
type TransactionRecord struct {
	Kind      Kind   `cbor:"1,keyasint"`
	Timestamp uint64 `cbor:"2,keyasint"`
	From      []byte `cbor:"3,keyasint,omitempty"`
	To        []byte `cbor:"4,keyasint,omitempty"`
	Symbol    string `cbor:"5,keyasint,omitempty"`
	Amount    []byte `cbor:"6,keyasint,omitempty"`
	Token     []byte `cbor:"7,keyasint,omitempty"`
	Memo      string `cbor:"8,keyasint,omitempty"`
}

// loadTransactionsCount reads the committed transaction counter, defaulting
// to zero for a freshly-opened store.
func loadTransactionsCount(store *Store) (uint64, error) {
	raw, err := store.Get([]byte(keyTransactionsCount))
	if err != nil {
		return 0, wrapErr(CodeUnknown, err, "read transactions_count")
	}
	return decodeU64(raw), nil
}

// appendTransaction queues rec at tid and bumps the running transaction
// count in the same batch (§4.6's consistency invariant: the counter and
// the log entry it counts are never split across commits). The count is
// tracked in memory on the Engine (e.txCount) rather than re-read from the
// store on every call: a single batch can carry more than one appended
// transaction (e.g. a multisig submit that auto-executes inline), and
// Store.Get's read-through-batch semantics only make a later read see an
// earlier write in the same batch once that write has actually been
// applied — reusing e.txCount sidesteps needing a Get per append at all.
func (e *Engine) appendTransaction(batch *WriteBatch, tid TransactionID, rec TransactionRecord) error {
	raw, err := marshalCBOR(&rec)
	if err != nil {
		return err
	}
	batch.Put(transactionKey(tid), raw)

	e.txCount++
	batch.Put([]byte(keyTransactionsCount), encodeU64(e.txCount))
	return nil
}

// GetTransaction looks up a logged transaction by id. Unlike GetAccount, a
// missing transaction is itself an error (§4.6, §7): a TID that has never
// been issued has nothing sensible to default to.
func (e *Engine) GetTransaction(tid TransactionID) (*TransactionRecord, error) {
	raw, err := e.store.Get(transactionKey(tid))
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "read transaction")
	}
	if raw == nil {
		return nil, newErr(CodeTransactionCannotBeFound, "transaction not found")
	}
	var rec TransactionRecord
	if err := unmarshalCBOR(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// NbTransactions reports the number of transactions logged so far, read
// through the pending batch, so in consensus mode it also counts entries of
// the current block not yet committed (§4.6, §8 consistency property: must
// always equal the number of distinct keys under /transactions/).
func (e *Engine) NbTransactions() (uint64, error) {
	raw, err := e.store.Get([]byte(keyTransactionsCount))
	if err != nil {
		return 0, wrapErr(CodeUnknown, err, "read transactions_count")
	}
	return decodeU64(raw), nil
}
