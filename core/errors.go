package core

import "fmt"

// Code identifies a ledger error condition. RPC layers built on top of the
// engine map Code values directly onto wire error codes instead of parsing
// messages.
type Code string

const (
	CodeAnonymousCannotHoldFunds Code = "AnonymousCannotHoldFunds"
	CodeInsufficientFunds        Code = "InsufficientFunds"
	CodeUnknownAccount           Code = "UnknownAccount"
	CodeUserNeedsRole            Code = "UserNeedsRole"
	CodeUnknownSymbol            Code = "UnknownSymbol"
	CodeTransactionCannotBeFound Code = "TransactionCannotBeFound"
	CodeUserCannotApprove        Code = "UserCannotApproveTransaction"
	CodeCannotExecute            Code = "CannotExecuteTransaction"
	CodeTransactionTypeUnsupp    Code = "TransactionTypeUnsupported"
	CodeInvalidTransaction       Code = "InvalidTransaction"
	CodeSerialization            Code = "Serialization"
	CodeDeserialization          Code = "Deserialization"
	CodeUnknown                  Code = "Unknown"
)

// LedgerError is the engine's sole error type. Callers that need to branch on
// the failure kind should inspect Code rather than the message text.
type LedgerError struct {
	Code Code
	Msg  string
	err  error
}

func (e *LedgerError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *LedgerError) Unwrap() error { return e.err }

func newErr(code Code, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(code Code, err error, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Msg: fmt.Sprintf(format, args...), err: err}
}

// errNeedsRole builds a UserNeedsRole error naming the missing role, matching
// spec wire compatibility for authorisation failures.
func errNeedsRole(role Role) *LedgerError {
	return newErr(CodeUserNeedsRole, "caller needs role %q", role)
}

// IsCode reports whether err is a *LedgerError carrying the given code.
func IsCode(err error, code Code) bool {
	le, ok := err.(*LedgerError)
	return ok && le.Code == code
}
