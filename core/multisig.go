package core

import (
	"bytes"
	"time"
)

// C8: the multisig authorisation state machine, grounded on the original
// storage.rs/tests/multisig.rs model (the teacher repo's escrow.go is the
// nearest shape but is not reused directly: its settlement semantics don't
// match submit/approve/revoke/execute/withdraw). A pending multisig
// transaction is keyed by its creation transaction id ("token") and wraps
// one inner TransactionRecord that executes once enough approvers sign off.

const (
	defaultMultisigTimeoutSecs = 24 * 60 * 60
	maxMultisigTimeoutSecs     = 185 * 24 * 60 * 60 // ~6 months, §4.8 step 5
)

// MultisigInfo is the persisted state of one pending multisig transaction.
// AccountID is the account whose funds/roster govern this pending
// transaction — distinct from Submitter, the individual caller who
// submitted it (§4.8 step 1's account_id resolution).
type MultisigInfo struct {
	Memo                 string          `cbor:"1,keyasint,omitempty"`
	Transaction          []byte          `cbor:"2,keyasint"`
	Submitter            []byte          `cbor:"3,keyasint"`
	AccountID            []byte          `cbor:"4,keyasint"`
	Approvers            map[string]bool `cbor:"5,keyasint"`
	Threshold            uint64          `cbor:"6,keyasint"`
	ExecuteAutomatically bool            `cbor:"7,keyasint"`
	ExpiresAtUnix        uint64          `cbor:"8,keyasint"`
}

func (info *MultisigInfo) approvedCount() uint64 {
	var n uint64
	for _, ok := range info.Approvers {
		if ok {
			n++
		}
	}
	return n
}

// MultisigTxArg carries the caller-supplied parts of a submission (§4.8,
// §6). Account is optional: when anonymous and the inner transaction is a
// Send, the account is resolved from the Send's From field (step 1).
type MultisigTxArg struct {
	Account              Identity
	Memo                 string
	Transaction          TransactionRecord
	Threshold            *uint64
	TimeoutInSecs        *uint64
	ExecuteAutomatically *bool
}

// resolveMultisigPolicy applies submit-time defaults and owner-gated
// overrides (§4.8 step 5): a caller-supplied value is only honoured when
// sender holds owner on acc; supplied without owner fails UserNeedsRole
// (owner); omitted falls back to the account's feature defaults, then the
// engine defaults (threshold=1, timeout=86400s, execute_automatically=false).
// Timeout is always clamped to at most six months.
func resolveMultisigPolicy(acc *Account, sender Identity, arg MultisigTxArg) (threshold, timeoutSecs uint64, executeAutomatically bool, err error) {
	isOwner := HasRole(acc, sender, RoleOwner)
	var feat *MultisigFeature
	if acc != nil {
		feat = acc.Features.Multisig
	}

	threshold = 1
	if feat != nil && feat.Threshold != nil {
		threshold = *feat.Threshold
	}
	if arg.Threshold != nil {
		if !isOwner {
			return 0, 0, false, errNeedsRole(RoleOwner)
		}
		threshold = *arg.Threshold
	}
	if threshold < 1 {
		threshold = 1
	}

	timeoutSecs = defaultMultisigTimeoutSecs
	if feat != nil && feat.TimeoutInSecs != nil {
		timeoutSecs = *feat.TimeoutInSecs
	}
	if arg.TimeoutInSecs != nil {
		if !isOwner {
			return 0, 0, false, errNeedsRole(RoleOwner)
		}
		timeoutSecs = *arg.TimeoutInSecs
	}
	if timeoutSecs > maxMultisigTimeoutSecs {
		timeoutSecs = maxMultisigTimeoutSecs
	}

	executeAutomatically = false
	if feat != nil && feat.ExecuteAutomatically != nil {
		executeAutomatically = *feat.ExecuteAutomatically
	}
	if arg.ExecuteAutomatically != nil {
		if !isOwner {
			return 0, 0, false, errNeedsRole(RoleOwner)
		}
		executeAutomatically = *arg.ExecuteAutomatically
	}

	return threshold, timeoutSecs, executeAutomatically, nil
}

// approverRoster reads the account's authorised-approver list, rendered as
// canonical identity text (§3, §9 Q1: derived from the account's multisig
// feature roster, not from the submit call's arguments).
func approverRoster(acc *Account) []string {
	if acc == nil || acc.Features.Multisig == nil {
		return nil
	}
	return acc.Features.Multisig.Approvers
}

// CreateMultisigTransaction submits a pending transaction requiring
// approval from some subset of an account's authorised approvers (§4.8).
// Per §9 Q1, the approver map is pre-populated at submit time from the
// account's roster, with only the submitter marked approved — so a later
// approve call from any rostered approver finds its caller already present
// in the map; a caller outside the roster is never added.
func (e *Engine) CreateMultisigTransaction(sender Identity, arg MultisigTxArg) ([]byte, error) {
	accountID := arg.Account
	if accountID.IsAnonymous() && arg.Transaction.Kind == KindSend {
		accountID = NewIdentity(arg.Transaction.From)
	}
	if arg.Transaction.Kind == KindSend && !bytes.Equal(arg.Transaction.From, accountID.Bytes()) {
		return nil, newErr(CodeInvalidTransaction, "send.from does not match the target account")
	}

	acc, err := e.accounts.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, newErr(CodeUnknownAccount, "unknown account")
	}
	if !HasRole(acc, sender, RoleOwner) && !HasRole(acc, sender, RoleMultisigSubmit) {
		return nil, errNeedsRole(RoleMultisigSubmit)
	}

	threshold, timeoutSecs, executeAutomatically, err := resolveMultisigPolicy(acc, sender, arg)
	if err != nil {
		return nil, err
	}

	roster := approverRoster(acc)
	approverMap := make(map[string]bool, len(roster)+1)
	for _, a := range roster {
		approverMap[a] = false
	}
	approverMap[sender.Text()] = true

	innerRaw, err := marshalCBOR(&arg.Transaction)
	if err != nil {
		return nil, err
	}

	now := e.nowOrInjected()
	batch := NewWriteBatch()
	tid := e.allocator.Next()
	tokenArr := tid.EncodeFixed32()
	token := tokenArr[:]

	info := MultisigInfo{
		Memo:                 arg.Memo,
		Transaction:          innerRaw,
		Submitter:            append([]byte(nil), sender.Bytes()...),
		AccountID:            append([]byte(nil), accountID.Bytes()...),
		Approvers:            approverMap,
		Threshold:            threshold,
		ExecuteAutomatically: executeAutomatically,
		ExpiresAtUnix:        uint64(now.Unix()) + timeoutSecs,
	}

	if err := e.appendTransaction(batch, tid, TransactionRecord{
		Kind:      KindAccountMultisigSubmit,
		Timestamp: uint64(now.Unix()),
		From:      sender.Bytes(),
		Token:     token,
		Memo:      arg.Memo,
	}); err != nil {
		return nil, err
	}

	if info.ExecuteAutomatically && info.approvedCount() >= info.Threshold {
		if err := e.executeMultisigInternal(batch, token, &info, now); err != nil {
			return nil, err
		}
	} else {
		raw, err := marshalCBOR(&info)
		if err != nil {
			return nil, err
		}
		batch.Put(multisigKey(token), raw)
	}

	if err := e.autocommit(batch); err != nil {
		return nil, err
	}
	return token, nil
}

// GetMultisigInfo reads a pending multisig transaction by token. An expired
// pending is treated as absent (§9 Q2 decision): since this is a pure read
// it cannot reap the stale key itself, but callers observe the same
// TransactionCannotBeFound a mutating call would return.
func (e *Engine) GetMultisigInfo(token []byte) (*MultisigInfo, error) {
	info, err := e.loadMultisigRaw(token)
	if err != nil {
		return nil, err
	}
	if e.isExpired(info) {
		return nil, newErr(CodeTransactionCannotBeFound, "multisig transaction expired")
	}
	return info, nil
}

func (e *Engine) loadMultisigRaw(token []byte) (*MultisigInfo, error) {
	raw, err := e.store.Get(multisigKey(token))
	if err != nil {
		return nil, wrapErr(CodeUnknown, err, "read multisig")
	}
	if raw == nil {
		return nil, newErr(CodeTransactionCannotBeFound, "multisig transaction not found")
	}
	var info MultisigInfo
	if err := unmarshalCBOR(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (e *Engine) isExpired(info *MultisigInfo) bool {
	return uint64(e.nowOrInjected().Unix()) >= info.ExpiresAtUnix
}

// loadLiveMultisig fetches token's info for a mutating operation, reaping it
// into batch, applying that batch, and failing TransactionCannotBeFound if
// its deadline has already passed (§4.8 "lazy" timeout handling, §9 Q2).
func (e *Engine) loadLiveMultisig(batch *WriteBatch, token []byte) (*MultisigInfo, error) {
	info, err := e.loadMultisigRaw(token)
	if err != nil {
		return nil, err
	}
	if e.isExpired(info) {
		batch.Delete(multisigKey(token))
		if err := e.autocommit(batch); err != nil {
			return nil, err
		}
		return nil, newErr(CodeTransactionCannotBeFound, "multisig transaction expired")
	}
	return info, nil
}

// multisigAccount loads the account that owns a pending transaction's
// roster and role checks (§4.8): always info.AccountID, never the caller's
// own identity.
func (e *Engine) multisigAccount(info *MultisigInfo) (*Account, error) {
	acc, err := e.accounts.GetAccount(NewIdentity(info.AccountID))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, newErr(CodeUnknownAccount, "unknown account")
	}
	return acc, nil
}

// ApproveMultisig records approver's approval, executing inline once
// ExecuteAutomatically is set and the threshold is met (§4.8). The second
// return value reports whether execution happened. Role is checked before
// roster membership (§4.8): a caller holding neither gets UserNeedsRole,
// not UserCannotApprove.
func (e *Engine) ApproveMultisig(token []byte, approver Identity) (bool, error) {
	batch := NewWriteBatch()
	info, err := e.loadLiveMultisig(batch, token)
	if err != nil {
		return false, err
	}
	acc, err := e.multisigAccount(info)
	if err != nil {
		return false, err
	}
	if !HasRole(acc, approver, RoleMultisigApprove) {
		return false, errNeedsRole(RoleMultisigApprove)
	}
	if _, ok := info.Approvers[approver.Text()]; !ok {
		return false, newErr(CodeUserCannotApprove, "identity is not an approver of this transaction")
	}

	info.Approvers[approver.Text()] = true
	now := e.nowOrInjected()

	if err := e.appendTransaction(batch, e.allocator.Next(), TransactionRecord{
		Kind:      KindAccountMultisigApprove,
		Timestamp: uint64(now.Unix()),
		From:      approver.Bytes(),
		Token:     token,
	}); err != nil {
		return false, err
	}

	executed := false
	if info.ExecuteAutomatically && info.approvedCount() >= info.Threshold {
		if err := e.executeMultisigInternal(batch, token, info, now); err != nil {
			return false, err
		}
		executed = true
	} else {
		raw, err := marshalCBOR(info)
		if err != nil {
			return false, err
		}
		batch.Put(multisigKey(token), raw)
	}

	if err := e.autocommit(batch); err != nil {
		return false, err
	}
	return executed, nil
}

// RevokeMultisig withdraws a previously-recorded approval. Authorisation
// matches ApproveMultisig: canMultisigApprove on the pending's account
// (§4.8).
func (e *Engine) RevokeMultisig(token []byte, approver Identity) error {
	batch := NewWriteBatch()
	info, err := e.loadLiveMultisig(batch, token)
	if err != nil {
		return err
	}
	acc, err := e.multisigAccount(info)
	if err != nil {
		return err
	}
	if !HasRole(acc, approver, RoleMultisigApprove) {
		return errNeedsRole(RoleMultisigApprove)
	}
	if _, ok := info.Approvers[approver.Text()]; !ok {
		return newErr(CodeUserCannotApprove, "identity is not an approver of this transaction")
	}

	info.Approvers[approver.Text()] = false
	now := e.nowOrInjected()

	if err := e.appendTransaction(batch, e.allocator.Next(), TransactionRecord{
		Kind:      KindAccountMultisigRevoke,
		Timestamp: uint64(now.Unix()),
		From:      approver.Bytes(),
		Token:     token,
	}); err != nil {
		return err
	}

	raw, err := marshalCBOR(info)
	if err != nil {
		return err
	}
	batch.Put(multisigKey(token), raw)
	return e.autocommit(batch)
}

// ExecuteMultisig runs the wrapped transaction once the threshold is met,
// regardless of ExecuteAutomatically (§4.8): any caller eligible to execute
// may trigger it. Eligibility is owner on the pending's account, or being
// the original submitter; the failure code names canMultisigApprove for
// wire compatibility with the source this spec distills, even though the
// real defect is insufficient execute rights.
func (e *Engine) ExecuteMultisig(token []byte, sender Identity) error {
	batch := NewWriteBatch()
	info, err := e.loadLiveMultisig(batch, token)
	if err != nil {
		return err
	}
	acc, err := e.multisigAccount(info)
	if err != nil {
		return err
	}
	if !HasRole(acc, sender, RoleOwner) && !sender.Equal(NewIdentity(info.Submitter)) {
		return errNeedsRole(RoleMultisigApprove)
	}
	if info.approvedCount() < info.Threshold {
		return newErr(CodeCannotExecute, "threshold not met")
	}

	if err := e.executeMultisigInternal(batch, token, info, e.nowOrInjected()); err != nil {
		return err
	}
	return e.autocommit(batch)
}

// executeMultisigInternal deletes the pending record first (§4.8: "so the
// outer transaction recorded by the inner action does not observe the
// pending record"), then dispatches the wrapped content. Only Send is
// executable from multisig in this core (§3); anything else fails
// TransactionTypeUnsupported. The pending record is never rewritten after
// this point — execution destroys it (I5), satisfying P8.
func (e *Engine) executeMultisigInternal(batch *WriteBatch, token []byte, info *MultisigInfo, now time.Time) error {
	batch.Delete(multisigKey(token))

	var inner TransactionRecord
	if err := unmarshalCBOR(info.Transaction, &inner); err != nil {
		return err
	}

	switch inner.Kind {
	case KindSend:
		from := NewIdentity(inner.From)
		to := NewIdentity(inner.To)
		amount := decodeAmount(inner.Amount)
		if err := e.send(batch, from, to, Symbol(inner.Symbol), amount); err != nil {
			return err
		}
	default:
		return newErr(CodeTransactionTypeUnsupp, "multisig-wrapped kind %q is not supported", inner.Kind)
	}

	return e.appendTransaction(batch, e.allocator.Next(), TransactionRecord{
		Kind:      KindAccountMultisigExecute,
		Timestamp: uint64(now.Unix()),
		Token:     token,
	})
}

// WithdrawMultisig cancels a pending transaction before execution.
// Authorised for owner on the pending's account, or the original submitter
// (§4.8).
func (e *Engine) WithdrawMultisig(token []byte, sender Identity) error {
	batch := NewWriteBatch()
	info, err := e.loadLiveMultisig(batch, token)
	if err != nil {
		return err
	}
	acc, err := e.multisigAccount(info)
	if err != nil {
		return err
	}
	if !HasRole(acc, sender, RoleOwner) && !sender.Equal(NewIdentity(info.Submitter)) {
		return errNeedsRole(RoleOwner)
	}

	batch.Delete(multisigKey(token))
	now := e.nowOrInjected()
	if err := e.appendTransaction(batch, e.allocator.Next(), TransactionRecord{
		Kind:      KindAccountMultisigWithdraw,
		Timestamp: uint64(now.Unix()),
		From:      sender.Bytes(),
		Token:     token,
	}); err != nil {
		return err
	}
	return e.autocommit(batch)
}
