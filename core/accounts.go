package core

import (
	"github.com/sirupsen/logrus"
)

// Role names drawn from a closed vocabulary (§3). Additional roles may be
// added by callers that embed this engine; the three below are the ones the
// multisig engine itself consults.
type Role string

const (
	RoleOwner           Role = "owner"
	RoleMultisigSubmit  Role = "canMultisigSubmit"
	RoleMultisigApprove Role = "canMultisigApprove"
)

// MultisigFeature carries the per-account defaults consulted by
// create_multisig_transaction's policy resolution (§4.8).
type MultisigFeature struct {
	Threshold            *uint64  `cbor:"1,keyasint,omitempty"`
	TimeoutInSecs        *uint64  `cbor:"2,keyasint,omitempty"`
	ExecuteAutomatically *bool    `cbor:"3,keyasint,omitempty"`
	Approvers            []string `cbor:"4,keyasint,omitempty"`
}

// FeatureSet is a tagged union over a closed feature set, keyed by feature
// id so new features can be added without breaking stored accounts (§9).
// Only the multisig feature is modelled in this core.
type FeatureSet struct {
	Multisig *MultisigFeature `cbor:"1,keyasint,omitempty"`
}

// Account is (identity, role map, feature map) per §3. Stored CBOR-encoded
// under /accounts/<id>.
type Account struct {
	ID       []byte              `cbor:"1,keyasint"`
	Roles    map[string][]string `cbor:"2,keyasint"`
	Features FeatureSet          `cbor:"3,keyasint"`
}

// HasRole reports whether id holds role on the account, per §4.7.
func HasRole(acc *Account, id Identity, role Role) bool {
	if acc == nil {
		return false
	}
	for _, r := range acc.Roles[id.Text()] {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// AccountRegistry implements C7: create/read accounts, allocate
// sub-identities for new accounts.
type AccountRegistry struct {
	store  *Store
	logger *logrus.Logger
}

func newAccountRegistry(store *Store, logger *logrus.Logger) *AccountRegistry {
	return &AccountRegistry{store: store, logger: logger}
}

// nextAccountID allocates a fresh account identity by deriving a
// sub-identity of parent from the persisted 32-bit counter (§4.7). The
// counter itself is part of the same batch as the new account record so
// both advance atomically with the caller's commit.
func (r *AccountRegistry) nextAccountID(batch *WriteBatch, parent Identity) (Identity, error) {
	raw, err := r.store.Get([]byte(keyConfigAccountID))
	if err != nil {
		return Identity{}, wrapErr(CodeUnknown, err, "read account_id counter")
	}
	counter := decodeU32(raw)
	if counter == ^uint32(0) {
		return Identity{}, newErr(CodeUnknown, "account id counter exhausted")
	}
	newID := parent.WithSubresourceID(counter)
	batch.Put([]byte(keyConfigAccountID), encodeU32(counter+1))
	return newID, nil
}

// AddAccount allocates a fresh identity under parent, writes the account
// record, and returns the new id (§4.7). Caller supplies the batch so the
// account record and counter bump land in the same batch as the caller's
// own writes (Engine.AddAccount adds its log entry there).
func (r *AccountRegistry) AddAccount(batch *WriteBatch, parent Identity, acc Account) (Identity, error) {
	id, err := r.nextAccountID(batch, parent)
	if err != nil {
		return Identity{}, err
	}
	acc.ID = append([]byte(nil), id.Bytes()...)
	raw, err := marshalCBOR(&acc)
	if err != nil {
		return Identity{}, err
	}
	batch.Put(accountKey(id), raw)
	r.logger.WithField("account", id.Text()).Info("account created")
	return id, nil
}

// GetAccount CBOR-decodes the stored account record, returning (nil, nil)
// if absent. A present-but-corrupt record surfaces as a Deserialization
// error rather than being silently treated as missing (§9 Q4).
func (r *AccountRegistry) GetAccount(id Identity) (*Account, error) {
	raw, err := r.store.Get(accountKey(id))
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "read account")
	}
	if raw == nil {
		return nil, nil
	}
	var acc Account
	if err := unmarshalCBOR(raw, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// CommitAccount overwrites the stored record for id. Authorisation is the
// caller's responsibility (§4.7).
func (r *AccountRegistry) CommitAccount(batch *WriteBatch, id Identity, acc Account) error {
	acc.ID = append([]byte(nil), id.Bytes()...)
	raw, err := marshalCBOR(&acc)
	if err != nil {
		return err
	}
	batch.Put(accountKey(id), raw)
	return nil
}
