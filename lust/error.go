// Copyright © 2021 The Lust authors

package lust

import (
	"errors"
	"fmt"
)

// Condition classifies compiler errors so callers can dispatch on failure
// class without parsing messages.
type Condition string

// Conditions signaled by the compiler.
const (
	// IllegalApplication is signaled when the head of an application can
	// never denote a function, such as a literal empty list.
	IllegalApplication Condition = "illegal-application"

	// EmptyProgram is signaled when a program contains no expressions and
	// therefore has no value to compute.
	EmptyProgram Condition = "empty-program"

	// UnboundVariable is signaled when a symbol resolves to neither a local
	// binding nor a top-level function.
	UnboundVariable Condition = "unbound-variable"

	// ArityMismatch is signaled when a primitive or a statically resolved
	// function call supplies the wrong number of arguments.
	ArityMismatch Condition = "arity-mismatch"

	// Overflow is signaled when an integer literal exceeds the tagged
	// fixnum range.
	Overflow Condition = "overflow"

	// BackendFailure is signaled when the code generation backend rejects
	// an emitted function.
	BackendFailure Condition = "backend-failure"

	// InitFailure is signaled when a compile session cannot construct its
	// backend module or runtime support functions.
	InitFailure Condition = "init-failure"
)

// Error is a classified compiler error.
type Error struct {
	Condition Condition
	Message   string
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Condition, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Errorf constructs a classified error.
func Errorf(c Condition, format string, v ...interface{}) *Error {
	return &Error{Condition: c, Message: fmt.Sprintf(format, v...)}
}

// WrapError classifies an underlying error, preserving it for Unwrap.
func WrapError(c Condition, err error) *Error {
	return &Error{Condition: c, Message: err.Error(), cause: err}
}

// ErrorCondition extracts the condition from a compiler error. It returns
// the empty string when err was not produced by this package.
func ErrorCondition(err error) Condition {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Condition
	}
	return ""
}
