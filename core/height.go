package core

import "math/big"

// C4: height-derived transaction id allocation (§4.4). A block's
// transaction ids occupy the half-open range [height<<32, (height+1)<<32);
// the low 32 bits are a per-block counter that resets to zero when the
// height advances. The height itself is the only persisted piece of this
// state (/height); the in-block counter lives only in the Engine for the
// duration of the current block and is never written until the height that
// owns it is committed.

// loadHeight reads the current committed height, defaulting to zero for a
// freshly-opened store.
func loadHeight(store *Store) (uint64, error) {
	raw, err := store.Get([]byte(keyHeight))
	if err != nil {
		return 0, wrapErr(CodeUnknown, err, "read height")
	}
	return decodeU64(raw), nil
}

// setHeight queues the new height for the batch committing it.
func setHeight(batch *WriteBatch, height uint64) {
	batch.Put([]byte(keyHeight), encodeU64(height))
}

// tidAt computes the canonical id of the counter-th transaction of the
// given block height: (height << 32) + counter.
func tidAt(height, counter uint64) TransactionID {
	v := new(big.Int).Lsh(new(big.Int).SetUint64(height), 32)
	v.Add(v, new(big.Int).SetUint64(counter))
	return TransactionID{v: v}
}

// tidAllocator hands out sequential transaction ids within a single block.
// It is purely in-memory: the Engine creates one per block (or once, for
// standalone mode, where every operation is its own one-transaction block)
// and discards it on commit.
type tidAllocator struct {
	height  uint64
	counter uint64
}

func newTIDAllocator(height uint64) *tidAllocator {
	return &tidAllocator{height: height}
}

// Next advances the counter and returns the id it now points to, so the
// first transaction of a block is counter 1, not 0 (§4.4).
func (a *tidAllocator) Next() TransactionID {
	a.counter++
	return tidAt(a.height, a.counter)
}

// Height reports the block height this allocator is issuing ids for.
func (a *tidAllocator) Height() uint64 { return a.height }
