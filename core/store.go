package core

import (
	"crypto/sha256"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// opKind distinguishes a Put from a Delete inside a WriteBatch.
type opKind int

const (
	opPut opKind = iota
	opDelete
)

type writeOp struct {
	key  []byte
	kind opKind
	val  []byte
}

// WriteBatch is an ordered sequence of Put/Delete entries (§4.3). Store.Apply
// copies the entries into the pending Pebble batch in the order they were
// appended; the adapter itself does not sort (§4.3, §9 batching discipline).
// Send queues its two balance writes in ascending key order, and
// appendTransaction queues the log entry before the counter, but a batch is
// not kept sorted as a whole: New, AddAccount and the multisig operations
// append keys out of ascending order. Pebble orders keys itself, so for
// distinct keys the committed state and root hash do not depend on the order
// of entries in a batch; for a repeated key the last entry appended wins.
type WriteBatch struct {
	ops []writeOp
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch { return &WriteBatch{} }

// Put appends an ordered write. Callers append in the key order they intend
// the batch to be applied in.
func (b *WriteBatch) Put(key, value []byte) {
	b.ops = append(b.ops, writeOp{key: key, kind: opPut, val: value})
}

// Delete appends an ordered tombstone.
func (b *WriteBatch) Delete(key []byte) {
	b.ops = append(b.ops, writeOp{key: key, kind: opDelete})
}

// Len reports the number of queued operations.
func (b *WriteBatch) Len() int { return len(b.ops) }

// Store is the façade over the Merkle KV engine (C3). It is backed by
// Pebble, the production-grade LSM store also benchmarked in this pack's
// tclemos-pebble-bench example: Pebble's native sorted iteration and batch
// type map directly onto the adapter contract in §4.3.
type Store struct {
	db      *pebble.DB
	pending *pebble.Batch
	hash    []byte
	log     *zap.SugaredLogger
}

// OpenStore opens (creating if absent) a Pebble instance rooted at dir.
func OpenStore(dir string) (*Store, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "init storage logger")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		logger.Sugar().Errorw("open pebble store failed", "dir", dir, "error", err)
		return nil, wrapErr(CodeUnknown, err, "open store at %s", dir)
	}
	s := &Store{db: db, pending: db.NewIndexedBatch(), log: logger.Sugar()}
	s.log.Infow("store opened", "dir", dir)
	if err := s.recomputeHash(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get reads through the pending batch (an indexed batch, so an uncommitted
// Put/Delete shadows the last-committed value) to the durable store
// underneath. §5 requires operations to observe their own prior writes
// within the current block ("iff the adapter reads through the batch,
// required") — two Sends touching the same balance key in one consensus
// block must see each other's effect, not just the pre-block value.
func (s *Store) Get(key []byte) ([]byte, error) {
	v, closer, err := s.pending.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "get %q", key)
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, nil
}

// Apply buffers batch into the in-memory write set (§4.3). It is not
// flushed to durable storage until Commit.
func (s *Store) Apply(batch *WriteBatch) error {
	for _, op := range batch.ops {
		switch op.kind {
		case opPut:
			if err := s.pending.Set(op.key, op.val, nil); err != nil {
				return wrapErr(CodeUnknown, err, "buffer put %q", op.key)
			}
		case opDelete:
			if err := s.pending.Delete(op.key, nil); err != nil {
				return wrapErr(CodeUnknown, err, "buffer delete %q", op.key)
			}
		}
	}
	return nil
}

// Commit flushes the pending write set to durable storage and recomputes
// the Merkle root (§4.3). All adapter errors here are fatal to the current
// block (§4.3, §7): callers must not call Commit again after one fails.
func (s *Store) Commit() error {
	if err := s.db.Apply(s.pending, pebble.Sync); err != nil {
		s.log.Errorw("commit failed", "error", err)
		return wrapErr(CodeUnknown, err, "apply batch")
	}
	s.pending = s.db.NewIndexedBatch()
	if err := s.recomputeHash(); err != nil {
		return err
	}
	s.log.Infow("store committed", "root_hash", s.hash)
	return nil
}

// RootHash returns the Merkle root over the committed key space, stable
// between commits (§4.3).
func (s *Store) RootHash() []byte {
	out := make([]byte, len(s.hash))
	copy(out, s.hash)
	return out
}

// recomputeHash streams every committed key/value, in the lexicographic
// order Pebble already maintains, through a running SHA-256 chain. This is
// the same sorted-keys-then-hash technique the teacher's Ledger.StateRoot
// used over an in-memory map; here the sort is free because the backing
// store is already ordered, and committed entries alone (never the pending
// batch) determine the result, satisfying I1.
func (s *Store) recomputeHash() error {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return wrapErr(CodeUnknown, err, "open hash iterator")
	}
	defer iter.Close()

	h := sha256.New()
	for valid := iter.First(); valid; valid = iter.Next() {
		h.Write(iter.Key())
		h.Write(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return wrapErr(CodeUnknown, err, "iterate store for hash")
	}
	s.hash = h.Sum(nil)
	return nil
}

// kvIterator wraps a Pebble iterator scoped to [lower, upper).
type kvIterator struct {
	it        *pebble.Iterator
	started   bool
	ascending bool
}

// IterOpt opens a bounded, ordered scan over the store (§4.3). Bounds are
// half-open: lower-inclusive, upper-exclusive, matching pebble.IterOptions
// directly. Like Get, this reads through the pending batch so an in-block
// scan (e.g. GetAllBalances) observes the block's own uncommitted writes
// (§5).
func (s *Store) IterOpt(lower, upper []byte, ascending bool) (*kvIterator, error) {
	it, err := s.pending.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "open range iterator")
	}
	return &kvIterator{it: it, ascending: ascending}, nil
}

// Next advances the iterator, moving forward for an ascending scan or
// backward for a descending one (§4.9).
func (it *kvIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.ascending {
			return it.it.First()
		}
		return it.it.Last()
	}
	if it.ascending {
		return it.it.Next()
	}
	return it.it.Prev()
}

func (it *kvIterator) Key() []byte {
	return append([]byte(nil), it.it.Key()...)
}

func (it *kvIterator) Value() []byte {
	return append([]byte(nil), it.it.Value()...)
}

func (it *kvIterator) Error() error {
	if err := it.it.Error(); err != nil {
		return wrapErr(CodeUnknown, err, "iterator error")
	}
	return nil
}

func (it *kvIterator) Close() error {
	return it.it.Close()
}

// Close releases the underlying Pebble handle (§5: scoped acquisition with
// guaranteed release on drop).
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	_ = s.log.Sync()
	return err
}
