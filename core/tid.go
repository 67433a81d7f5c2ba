package core

import "math/big"

// tidKeySize is the canonical on-disk width of a transaction id, per §4.1.
// Fixed at 32 bytes regardless of the logical id's length.
const tidKeySize = 32

// TransactionID is a variable-length byte string with strict big-integer
// ordering semantics. Internally it is kept as a big.Int so increment and
// comparison are exact regardless of magnitude; EncodeFixed32 is what
// actually hits the keyspace.
type TransactionID struct {
	v *big.Int
}

// NewTransactionID wraps raw big-endian bytes as a TransactionID.
func NewTransactionID(raw []byte) TransactionID {
	return TransactionID{v: new(big.Int).SetBytes(raw)}
}

// TransactionIDFromUint64 builds a TransactionID from a plain integer. The
// height/TID allocator builds its ids with tidAt instead (§4.4).
func TransactionIDFromUint64(n uint64) TransactionID {
	return TransactionID{v: new(big.Int).SetUint64(n)}
}

// Next returns t+1. TransactionID has big-integer increment semantics (§3).
func (t TransactionID) Next() TransactionID {
	return TransactionID{v: new(big.Int).Add(t.v, big.NewInt(1))}
}

// Compare returns -1, 0 or 1 comparing t to other as big integers. This
// matches ordering by bytewise compare of the canonical 32-byte encoding
// (§4.1): EncodeFixed32 is monotone in the underlying integer.
func (t TransactionID) Compare(other TransactionID) int {
	return t.v.Cmp(other.v)
}

// Bytes returns the minimal big-endian encoding of the id (no fixed-width
// padding/truncation).
func (t TransactionID) Bytes() []byte {
	return t.v.Bytes()
}

// EncodeFixed32 returns the canonical 32-byte on-disk encoding (§4.1):
// left-zero-padded if the minimal encoding is shorter than 32 bytes,
// truncated to the first 32 bytes if longer. Truncation operates on the
// minimal big-endian byte string, not on the padded one, so it only ever
// bites ids requiring more than 256 bits — values no allocator in this
// engine produces, but callers handed arbitrary TID bytes (§3, "variable
// length") must still get a stable-width key.
func (t TransactionID) EncodeFixed32() [tidKeySize]byte {
	var out [tidKeySize]byte
	raw := t.v.Bytes()
	if len(raw) > tidKeySize {
		copy(out[:], raw[:tidKeySize])
		return out
	}
	copy(out[tidKeySize-len(raw):], raw)
	return out
}

// HeightOf extracts h = t >> 32, the block height a TID was minted in
// (§3 I2): every transaction record committed at TID t must have been
// committed while the engine was at height h.
func (t TransactionID) HeightOf() uint64 {
	h := new(big.Int).Rsh(t.v, 32)
	return h.Uint64()
}
