package core

import (
	"encoding/binary"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Scalar codec (§4.2): big-endian fixed-width encodings for heights and
// counters, arbitrary-precision minimal-bytes amounts, and canonical CBOR
// for structured records.

// encodeU64 encodes a height or transaction counter as 8-byte big-endian.
func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// decodeU64 decodes an 8-byte big-endian counter. A missing/empty value
// decodes as zero, matching "absent key ≡ zero" throughout this engine.
func decodeU64(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// encodeU32 encodes the account sub-id counter as 4-byte big-endian.
func encodeU32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func decodeU32(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// TokenAmount is an arbitrary-precision, non-negative token quantity. The
// zero value is the zero amount.
type TokenAmount struct {
	v *big.Int
}

// NewTokenAmount wraps a non-negative integer amount.
func NewTokenAmount(n uint64) TokenAmount {
	return TokenAmount{v: new(big.Int).SetUint64(n)}
}

// ZeroAmount is the canonical zero token amount.
func ZeroAmount() TokenAmount { return TokenAmount{v: big.NewInt(0)} }

// IsZero reports whether the amount is exactly zero.
func (a TokenAmount) IsZero() bool { return a.v == nil || a.v.Sign() == 0 }

// Cmp compares two amounts as unsigned big integers.
func (a TokenAmount) Cmp(other TokenAmount) int {
	return a.bigOrZero().Cmp(other.bigOrZero())
}

func (a TokenAmount) bigOrZero() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// Add returns a+b.
func (a TokenAmount) Add(b TokenAmount) TokenAmount {
	return TokenAmount{v: new(big.Int).Add(a.bigOrZero(), b.bigOrZero())}
}

// Sub returns a-b. Callers are responsible for checking a >= b beforehand
// (§4.5 InsufficientFunds); Sub itself does not clamp at zero.
func (a TokenAmount) Sub(b TokenAmount) TokenAmount {
	return TokenAmount{v: new(big.Int).Sub(a.bigOrZero(), b.bigOrZero())}
}

// Uint64 returns the amount truncated to a uint64, for callers (tests,
// genesis config) that know the value fits.
func (a TokenAmount) Uint64() uint64 { return a.bigOrZero().Uint64() }

// Bytes returns the minimal big-endian wire encoding used inside
// TransactionRecord.Amount, for callers (e.g. cmd/ledgerctl) constructing a
// record directly rather than through Engine.Send.
func (a TokenAmount) Bytes() []byte { return encodeAmount(a) }

// encodeAmount returns the big-endian minimal byte encoding of the amount.
// Zero encodes as an empty slice; decodeAmount treats both empty and a
// single zero byte as zero (§4.2's round-trip requirement).
func encodeAmount(a TokenAmount) []byte {
	if a.IsZero() {
		return nil
	}
	return a.bigOrZero().Bytes()
}

// decodeAmount is the inverse of encodeAmount.
func decodeAmount(b []byte) TokenAmount {
	if len(b) == 0 {
		return ZeroAmount()
	}
	return TokenAmount{v: new(big.Int).SetBytes(b)}
}

// cborEncMode is shared across all structured-value encodes so field
// ordering and canonical form stay consistent (§4.2 "canonical CBOR").
var cborEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

func marshalCBOR(v any) ([]byte, error) {
	b, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, wrapErr(CodeSerialization, err, "cbor marshal")
	}
	return b, nil
}

func unmarshalCBOR(b []byte, v any) error {
	if err := cbor.Unmarshal(b, v); err != nil {
		return wrapErr(CodeDeserialization, err, "cbor unmarshal")
	}
	return nil
}
