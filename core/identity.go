package core

import (
	"encoding/base32"
	"encoding/binary"
)

// identityTextEncoding renders identity bytes into the canonical textual form
// used inside keys (§4.1). Base32 keeps the text ASCII and slash-free so it
// composes safely with the "/"-delimited key families in keys.go.
var identityTextEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Identity is an opaque byte-encoded principal. The zero value is the
// distinguished "anonymous" identity, which is never permitted to hold
// funds (§3).
type Identity struct {
	raw []byte
}

// AnonymousIdentity is the distinguished principal forbidden from holding
// balances.
var AnonymousIdentity = Identity{}

// NewIdentity wraps raw principal bytes. An empty or nil slice yields the
// anonymous identity.
func NewIdentity(raw []byte) Identity {
	if len(raw) == 0 {
		return Identity{}
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Identity{raw: cp}
}

// IsAnonymous reports whether id is the distinguished anonymous principal.
func (id Identity) IsAnonymous() bool { return len(id.raw) == 0 }

// Bytes returns the identity's raw encoding. Callers must not mutate it.
func (id Identity) Bytes() []byte { return id.raw }

// Equal reports whether two identities denote the same principal.
func (id Identity) Equal(other Identity) bool {
	if len(id.raw) != len(other.raw) {
		return false
	}
	for i := range id.raw {
		if id.raw[i] != other.raw[i] {
			return false
		}
	}
	return true
}

// Text returns the canonical textual form used inside storage keys (§4.1).
// Anonymous renders as the literal string "anonymous" so it still produces a
// valid, collision-free key segment.
func (id Identity) Text() string {
	if id.IsAnonymous() {
		return "anonymous"
	}
	return identityTextEncoding.EncodeToString(id.raw)
}

// WithSubresourceID derives a fresh sub-identity from a parent identity and a
// 32-bit counter, used by the account registry (§4.7) to mint account ids
// from a single root identity.
func (id Identity) WithSubresourceID(counter uint32) Identity {
	out := make([]byte, len(id.raw)+4)
	copy(out, id.raw)
	binary.BigEndian.PutUint32(out[len(id.raw):], counter)
	return NewIdentity(out)
}
