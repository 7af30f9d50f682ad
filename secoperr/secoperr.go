// Package secoperr provides the SECoP error taxonomy shared by every
// core component. Internal operations return (Value, error) where the
// error, when non-nil, is either a *secoperr.Error or something wrapping
// one; the dispatcher uses string(Kind) as the wire error string.
package secoperr

import (
	"errors"
	"fmt"
)

// Kind is the SECoP error category (spec.md §7).
type Kind string

const (
	KindProtocolError   Kind = "ProtocolError"
	KindNoSuchModule    Kind = "NoSuchModule"
	KindNoSuchParameter Kind = "NoSuchParameter"
	KindNoSuchCommand   Kind = "NoSuchCommand"
	KindWrongType       Kind = "WrongType"
	KindRangeError      Kind = "RangeError"
	KindBadValue        Kind = "BadValue"
	KindReadOnly        Kind = "ReadOnly"
	KindDisabled        Kind = "Disabled"
	KindImpossible      Kind = "Impossible"
	KindIsBusy          Kind = "IsBusy"
	KindCommFailed      Kind = "CommFailed"
	KindHardwareError   Kind = "HardwareError"
	KindInternalError   Kind = "InternalError"
	KindConfigError     Kind = "ConfigError"
	KindProgrammingErr  Kind = "ProgrammingError"
)

// Error is a SECoP-flavoured error: a wire-mappable Kind plus a message
// and optional structured detail.
type Error struct {
	Kind    Kind
	Message string
	Detail  any
	wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/As see through to a wrapped cause.
func (e *Error) Unwrap() error { return e.wrapped }

// Wrap attaches a lower-level cause without changing Kind or Message.
func (e *Error) Wrap(cause error) *Error {
	e.wrapped = cause
	return e
}

// New builds a bare Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// As extracts a *Error from err, following the standard errors.As
// convention. Returns nil, false if err (or its chain) is not one.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else
// KindInternalError.
func KindOf(err error) Kind {
	if se, ok := As(err); ok {
		return se.Kind
	}
	return KindInternalError
}

// Convenience constructors, one per kind used in more than one place.

func NoSuchModule(name string) *Error {
	return New(KindNoSuchModule, "no such module %q", name)
}

func NoSuchParameter(module, param string) *Error {
	return New(KindNoSuchParameter, "module %q has no parameter %q", module, param)
}

func NoSuchCommand(module, cmd string) *Error {
	return New(KindNoSuchCommand, "module %q has no command %q", module, cmd)
}

func ReadOnly(module, param string) *Error {
	return New(KindReadOnly, "cannot write %s:%s, parameter is readonly", module, param)
}

func WrongType(msg string, args ...any) *Error {
	return New(KindWrongType, msg, args...)
}

func RangeError(msg string, args ...any) *Error {
	return New(KindRangeError, msg, args...)
}

func BadValue(msg string, args ...any) *Error {
	return New(KindBadValue, msg, args...)
}

func IsBusy(module string) *Error {
	return New(KindIsBusy, "module %q is busy", module)
}

func Disabled(module string) *Error {
	return New(KindDisabled, "module %q is disabled", module)
}

func Impossible(msg string, args ...any) *Error {
	return New(KindImpossible, msg, args...)
}

func CommFailed(msg string, args ...any) *Error {
	return New(KindCommFailed, msg, args...)
}

func ConfigError(msg string, args ...any) *Error {
	return New(KindConfigError, msg, args...)
}

func ProgrammingError(msg string, args ...any) *Error {
	return New(KindProgrammingErr, msg, args...)
}

func ProtocolError(msg string, args ...any) *Error {
	return New(KindProtocolError, msg, args...)
}

func Internal(msg string, args ...any) *Error {
	return New(KindInternalError, msg, args...)
}
