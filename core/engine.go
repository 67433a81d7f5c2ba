package core

import (
	"time"

	"github.com/sirupsen/logrus"
)

// C10: the commit coordinator. Engine is the single entry point consumed by
// the wire RPC dispatcher (external, out of scope here): it owns the one
// open Store handle and the block-local fields described in §5 (current
// time, current hash, the in-block TID allocator, the account-id counter
// lives in the store itself). Grounded on the teacher's NewLedger/OpenLedger/
// applyBlock/Close lifecycle in core/storage.go.
type Engine struct {
	store      *Store
	accounts   *AccountRegistry
	allocator  *tidAllocator
	blockchain bool
	now        *time.Time
	logger     *logrus.Logger
	txCount    uint64
}

// CommitResult is returned by Commit: RetainHeight = 0 means this core never
// prunes historical state (§4.10, §6).
type CommitResult struct {
	RetainHeight uint64
	Hash         []byte
}

// InitialBalance seeds a genesis balance for identity/symbol pair.
type InitialBalance struct {
	Identity Identity
	Symbol   Symbol
	Amount   TokenAmount
}

// Load opens an existing engine at path. blockchain selects consensus mode
// (mutating APIs only Apply; an external driver calls Commit) versus
// standalone mode (every mutating API commits its own one-transaction
// block), per §4.10.
func Load(path string, blockchain bool) (*Engine, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	height, err := loadHeight(store)
	if err != nil {
		return nil, err
	}
	txCount, err := loadTransactionsCount(store)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	return &Engine{
		store:      store,
		accounts:   newAccountRegistry(store, logger),
		allocator:  newTIDAllocator(height),
		blockchain: blockchain,
		logger:     logger,
		txCount:    txCount,
	}, nil
}

// New initialises a fresh engine at path: writes the closed symbol table,
// the genesis identity, and any initial balances, then commits once to
// produce the genesis root hash. Any initial balance naming a symbol absent
// from symbols fails UnknownSymbol (§3 "rejected at genesis time").
func New(symbols map[Symbol]string, initialBalances []InitialBalance, path string, identity Identity, blockchain bool) (*Engine, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	e := &Engine{
		store:      store,
		accounts:   newAccountRegistry(store, logger),
		allocator:  newTIDAllocator(0),
		blockchain: blockchain,
		logger:     logger,
	}

	symsRaw, err := marshalCBOR(symbols)
	if err != nil {
		return nil, err
	}

	batch := NewWriteBatch()
	batch.Put([]byte(keyConfigIdentity), identity.Bytes())
	batch.Put([]byte(keyConfigSymbols), symsRaw)

	for _, ib := range initialBalances {
		if _, ok := symbols[ib.Symbol]; !ok {
			return nil, newErr(CodeUnknownSymbol, "genesis balance references unknown symbol %q", ib.Symbol)
		}
		putBalance(batch, ib.Identity, ib.Symbol, ib.Amount)
	}

	if err := store.Apply(batch); err != nil {
		return nil, err
	}
	if err := store.Commit(); err != nil {
		return nil, err
	}
	logger.WithField("path", path).Info("ledger genesis committed")
	return e, nil
}

// Close releases the engine's store handle (§5: scoped acquisition with
// guaranteed release on drop).
func (e *Engine) Close() error {
	return e.store.Close()
}

// SetTime sets the wall-clock time used by subsequent operations in the
// current block (§4.10). Consensus mode callers set this once per block
// before issuing any mutating call; standalone callers may set it per call
// or leave it unset, in which case nowOrInjected falls back to time.Now.
func (e *Engine) SetTime(t time.Time) {
	e.now = &t
}

// nowOrInjected returns the injected block time, or the process clock if
// none was set. The core never reads the system clock for anything other
// than this fallback (§1: "time synchronisation... wall-clock time is
// injected" is a Non-goal; this default only serves standalone convenience).
func (e *Engine) nowOrInjected() time.Time {
	if e.now != nil {
		return *e.now
	}
	return time.Now().UTC()
}

// GetHeight reports the last committed block height (§6).
func (e *Engine) GetHeight() (uint64, error) {
	return loadHeight(e.store)
}

// Hash returns the latest committed root hash (§6).
func (e *Engine) Hash() []byte {
	return e.store.RootHash()
}

// Commit implements the block lifecycle of §4.10: increment height, flush
// the batch (including every Apply since the last Commit) to the store,
// recompute the root hash, then reserve the next block's TID space.
func (e *Engine) Commit() (CommitResult, error) {
	height, err := loadHeight(e.store)
	if err != nil {
		return CommitResult{}, err
	}
	newHeight := height + 1

	batch := NewWriteBatch()
	setHeight(batch, newHeight)
	if err := e.store.Apply(batch); err != nil {
		return CommitResult{}, err
	}
	if err := e.store.Commit(); err != nil {
		return CommitResult{}, err
	}
	e.allocator = newTIDAllocator(newHeight)
	e.logger.WithFields(logrus.Fields{"height": newHeight}).Info("block committed")
	return CommitResult{RetainHeight: 0, Hash: e.store.RootHash()}, nil
}

// autocommit flushes batch and, in standalone mode, runs the full commit
// protocol immediately (§4.10 "every mutating API commits after its own
// batch"). In consensus mode the batch stays buffered for the external
// driver's eventual Commit call.
func (e *Engine) autocommit(batch *WriteBatch) error {
	if err := e.store.Apply(batch); err != nil {
		return err
	}
	if !e.blockchain {
		if _, err := e.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Send debits from and credits to by amount in sym (§4.5). A zero amount or
// from == to is a pure no-op (§4.5, P3): no TID is allocated and no batch is
// built, so state is byte-identical before and after.
func (e *Engine) Send(from, to Identity, sym Symbol, amount TokenAmount) error {
	if amount.IsZero() || from.Equal(to) {
		return nil
	}
	if from.IsAnonymous() {
		return newErr(CodeAnonymousCannotHoldFunds, "anonymous identity cannot hold funds")
	}

	batch := NewWriteBatch()
	if err := e.send(batch, from, to, sym, amount); err != nil {
		return err
	}
	tid := e.allocator.Next()
	if err := e.appendTransaction(batch, tid, TransactionRecord{
		Kind:      KindSend,
		Timestamp: uint64(e.nowOrInjected().Unix()),
		From:      from.Bytes(),
		To:        to.Bytes(),
		Symbol:    string(sym),
		Amount:    encodeAmount(amount),
	}); err != nil {
		return err
	}
	return e.autocommit(batch)
}

// AddAccount allocates a fresh account identity under parent and persists
// acc (§4.7).
func (e *Engine) AddAccount(parent Identity, acc Account) (Identity, error) {
	batch := NewWriteBatch()
	id, err := e.accounts.AddAccount(batch, parent, acc)
	if err != nil {
		return Identity{}, err
	}
	if err := e.appendTransaction(batch, e.allocator.Next(), TransactionRecord{
		Kind:      KindAccountCreate,
		Timestamp: uint64(e.nowOrInjected().Unix()),
		From:      id.Bytes(),
	}); err != nil {
		return Identity{}, err
	}
	if err := e.autocommit(batch); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// GetAccount reads an account by identity (§4.7); nil, nil means absent.
func (e *Engine) GetAccount(id Identity) (*Account, error) {
	return e.accounts.GetAccount(id)
}

// CommitAccount overwrites the stored record for id. Authorisation is the
// caller's responsibility (§4.7).
func (e *Engine) CommitAccount(id Identity, acc Account) error {
	batch := NewWriteBatch()
	if err := e.accounts.CommitAccount(batch, id, acc); err != nil {
		return err
	}
	return e.autocommit(batch)
}
