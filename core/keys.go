package core

import "fmt"

// Key families, ASCII and slash-delimited (§4.1). These are the only byte
// strings this engine ever writes through the KV adapter; every other
// component builds its keys by calling one of these helpers so the layout
// stays centralised and auditable.
const (
	prefixBalances       = "/balances/"
	prefixAccounts       = "/accounts/"
	prefixTransactions   = "/transactions/"
	prefixMultisig       = "/multisig/"
	keyConfigSymbols     = "/config/symbols"
	keyConfigIdentity    = "/config/identity"
	keyConfigAccountID   = "/config/account_id"
	keyHeight            = "/height"
	keyTransactionsCount = "/transactions_count"
)

// Symbol identifies a fungible token type, e.g. "MFK".
type Symbol string

// balanceKey builds "/balances/<identity-text>/<symbol-text>".
func balanceKey(id Identity, sym Symbol) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", prefixBalances, id.Text(), sym))
}

// accountKey builds "/accounts/<identity-text>".
func accountKey(id Identity) []byte {
	return []byte(prefixAccounts + id.Text())
}

// transactionKey builds "/transactions/" ++ tid32. The TID is encoded as raw
// bytes (not text) per §4.1, so the key space sorts in TID order.
func transactionKey(tid TransactionID) []byte {
	enc := tid.EncodeFixed32()
	key := make([]byte, len(prefixTransactions)+tidKeySize)
	copy(key, prefixTransactions)
	copy(key[len(prefixTransactions):], enc[:])
	return key
}

// multisigKey builds "/multisig/" ++ token, where token is the raw TID bytes
// of the pending transaction's creation (§4.8).
func multisigKey(token []byte) []byte {
	key := make([]byte, len(prefixMultisig)+len(token))
	copy(key, prefixMultisig)
	copy(key[len(prefixMultisig):], token)
	return key
}

// transactionsPrefixUpperBound returns the exclusive upper bound of the
// entire "/transactions/" key prefix, used by the range iterator's
// Unbounded case (§4.9): the prefix with its final byte incremented.
func transactionsPrefixUpperBound() []byte {
	b := []byte(prefixTransactions)
	out := make([]byte, len(b))
	copy(out, b)
	out[len(out)-1]++
	return out
}
