// Package merrors defines the error-kind taxonomy shared across the
// status manager: every error a Store, the Allocator, the Updater, or the
// Integrity checker raises carries one of these kinds so callers (and the
// transaction retry loop) can branch on it without string matching.
package merrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindBadRequest                 Kind = "BadRequest"
	KindNotFound                   Kind = "NotFound"
	KindWriteConflict              Kind = "WriteConflict"
	KindInvalidDatabaseTransaction Kind = "InvalidDatabaseTransaction"
	KindStatusListCapacity         Kind = "StatusListCapacity"
	KindInvalidDatabaseState       Kind = "InvalidDatabaseState"
	KindInvalidDidSeed             Kind = "InvalidDidSeed"
	KindInvalidCredentials         Kind = "InvalidCredentials"
	KindMissingDatabase            Kind = "MissingDatabase"
	KindMissingDatabaseTable       Kind = "MissingDatabaseTable"
	KindInternalServer             Kind = "InternalServer"
)

// Error is the concrete error type raised by every package in this
// module. Op names the failing operation ("alloc.Allocate",
// "store.Create") for log correlation; Err, when set, is the wrapped
// cause and participates in errors.Is/errors.As via Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an Error with the given kind around a lower-level cause.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind == kind
	}
	return false
}

func IsBadRequest(err error) bool       { return Is(err, KindBadRequest) }
func IsNotFound(err error) bool         { return Is(err, KindNotFound) }
func IsWriteConflict(err error) bool    { return Is(err, KindWriteConflict) }
func IsStatusListCapacity(err error) bool {
	return Is(err, KindStatusListCapacity)
}
func IsInvalidDatabaseTransaction(err error) bool {
	return Is(err, KindInvalidDatabaseTransaction)
}
func IsInvalidDatabaseState(err error) bool { return Is(err, KindInvalidDatabaseState) }
func IsInvalidDidSeed(err error) bool       { return Is(err, KindInvalidDidSeed) }
func IsInvalidCredentials(err error) bool   { return Is(err, KindInvalidCredentials) }
func IsMissingDatabase(err error) bool      { return Is(err, KindMissingDatabase) }
func IsMissingDatabaseTable(err error) bool { return Is(err, KindMissingDatabaseTable) }
func IsInternalServer(err error) bool       { return Is(err, KindInternalServer) }

// Retryable reports whether executeTransaction should retry an attempt
// that failed with err, per spec: WriteConflict, InvalidDatabaseTransaction,
// and StatusListCapacity all retry; everything else aborts the
// transaction. No package in this module raises StatusListCapacity.
func Retryable(err error) bool {
	return IsWriteConflict(err) || IsInvalidDatabaseTransaction(err) || IsStatusListCapacity(err)
}
