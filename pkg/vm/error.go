// Package vm provides error handling for the Crystal interpreter.
package vm

import (
	"fmt"
)

// ErrorCode is the numeric code carried by every interpretation error.
type ErrorCode int

const (
	ErrorDivisionByZero ErrorCode = iota + 1
	ErrorArityMismatch
	ErrorArgumentType
	ErrorInvalidOperand
	ErrorMissingTerminator
	ErrorUnsupportedOperation
	ErrorUndefinedFunction
	ErrorReturnOutsideFunction
	ErrorStackOverflow
	ErrorInvalidCondition
	ErrorSyntax
)

var errorCodeNames = map[ErrorCode]string{
	ErrorDivisionByZero:        "DIVISION_BY_ZERO",
	ErrorArityMismatch:         "ARITY_MISMATCH",
	ErrorArgumentType:          "ARGUMENT_TYPE",
	ErrorInvalidOperand:        "INVALID_OPERAND",
	ErrorMissingTerminator:     "MISSING_TERMINATOR",
	ErrorUnsupportedOperation:  "UNSUPPORTED_OPERATION",
	ErrorUndefinedFunction:     "UNDEFINED_FUNCTION",
	ErrorReturnOutsideFunction: "RETURN_OUTSIDE_FUNCTION",
	ErrorStackOverflow:         "STACK_OVERFLOW",
	ErrorInvalidCondition:      "INVALID_CONDITION",
	ErrorSyntax:                "SYNTAX",
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ERROR_%d", int(c))
}

// RuntimeError represents an interpretation error. Offset is the source
// offset of the token that caused it, or -1 when unknown.
type RuntimeError struct {
	Code    ErrorCode
	Message string
	Offset  int
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("[%d %s] %s at offset %d", int(e.Code), e.Code, e.Message, e.Offset)
	}
	return fmt.Sprintf("[%d %s] %s", int(e.Code), e.Code, e.Message)
}

// Is matches another *RuntimeError by code, so that
// errors.Is(err, &RuntimeError{Code: ErrorArityMismatch}) works.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrDivisionByZero        = &RuntimeError{Code: ErrorDivisionByZero, Offset: -1}
	ErrArityMismatch         = &RuntimeError{Code: ErrorArityMismatch, Offset: -1}
	ErrArgumentType          = &RuntimeError{Code: ErrorArgumentType, Offset: -1}
	ErrInvalidOperand        = &RuntimeError{Code: ErrorInvalidOperand, Offset: -1}
	ErrMissingTerminator     = &RuntimeError{Code: ErrorMissingTerminator, Offset: -1}
	ErrUnsupportedOperation  = &RuntimeError{Code: ErrorUnsupportedOperation, Offset: -1}
	ErrUndefinedFunction     = &RuntimeError{Code: ErrorUndefinedFunction, Offset: -1}
	ErrReturnOutsideFunction = &RuntimeError{Code: ErrorReturnOutsideFunction, Offset: -1}
	ErrStackOverflow         = &RuntimeError{Code: ErrorStackOverflow, Offset: -1}
	ErrInvalidCondition      = &RuntimeError{Code: ErrorInvalidCondition, Offset: -1}
	ErrSyntax                = &RuntimeError{Code: ErrorSyntax, Offset: -1}
)

// NewRuntimeError creates a new RuntimeError without position information.
func NewRuntimeError(code ErrorCode, message string) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Offset: -1}
}

// NewRuntimeErrorAt creates a new RuntimeError at a source offset.
func NewRuntimeErrorAt(code ErrorCode, message string, offset int) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Offset: offset}
}

// NewDivisionByZeroError creates a division by zero error.
func NewDivisionByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivisionByZero, "division by zero")
}

// NewUnsupportedError reports that a value kind lacks an operator.
func NewUnsupportedError(kind string, op Operator) *RuntimeError {
	return NewRuntimeError(ErrorUnsupportedOperation, fmt.Sprintf("operator %s is not supported by %s", op, kind))
}

// NewOperandTypeError reports a logical operator applied to a non-bool operand.
func NewOperandTypeError(kind string, op Operator, other Value) *RuntimeError {
	return NewRuntimeError(ErrorUnsupportedOperation,
		fmt.Sprintf("operator %s is not supported between %s and %s", op, kind, other.TypeName()))
}

// NewArityError creates an arity mismatch error.
func NewArityError(name string, want, got int) *RuntimeError {
	return NewRuntimeError(ErrorArityMismatch,
		fmt.Sprintf("function %s expects %d argument(s), got %d", name, want, got))
}

// NewArgumentTypeError creates an argument type-name mismatch error.
func NewArgumentTypeError(name string, param Param, got Value) *RuntimeError {
	return NewRuntimeError(ErrorArgumentType,
		fmt.Sprintf("function %s: parameter %s expects %s, got %s", name, param.Name, param.Type, got.TypeName()))
}

// NewUndefinedFunctionError creates an undefined function error.
func NewUndefinedFunctionError(name string) *RuntimeError {
	return NewRuntimeError(ErrorUndefinedFunction, fmt.Sprintf("undefined function: %s", name))
}

// NewStackOverflowError creates a stack overflow error.
func NewStackOverflowError(depth, limit int) *RuntimeError {
	return NewRuntimeError(ErrorStackOverflow, fmt.Sprintf("stack overflow: depth %d exceeds maximum %d", depth, limit))
}

// withOffset fills in the offset of a RuntimeError that has none.
func withOffset(err error, offset int) error {
	if re, ok := err.(*RuntimeError); ok && re.Offset < 0 {
		return &RuntimeError{Code: re.Code, Message: re.Message, Offset: offset}
	}
	return err
}
