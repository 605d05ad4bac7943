// Package errors defines the error taxonomy shared by every pipeline stage:
// the lexer, parser, compiler and virtual machine all report failures as
// *GeneError values. WithCause and Wrap record an underlying cause through
// github.com/pkg/errors, reachable via Unwrap/Cause.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies which of the five error classes an error belongs to.
type Kind string

const (
	ParseError         Kind = "ParseError"
	CompileError       Kind = "CompileError"
	UndefinedNameError Kind = "UndefinedNameError"
	TypeError          Kind = "TypeError"
	InvariantViolation Kind = "InvariantViolation"
)

// SourceLocation pinpoints a position in source text.
type SourceLocation struct {
	Line   int
	Column int
}

// GeneError is the error value produced at every pipeline stage.
type GeneError struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	// Subtree is the offending form's printed representation, set by
	// compile errors that reference a specific Value.
	Subtree string
	cause   error
}

func (e *GeneError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Location.Line > 0 {
		sb.WriteString(fmt.Sprintf(" (line %d, col %d)", e.Location.Line, e.Location.Column))
	}
	if e.Subtree != "" {
		sb.WriteString(fmt.Sprintf(" in %s", e.Subtree))
	}
	return sb.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *GeneError) Unwrap() error { return e.cause }

// Cause satisfies github.com/pkg/errors' Causer interface.
func (e *GeneError) Cause() error { return e.cause }

func newErr(kind Kind, message string) *GeneError {
	return &GeneError{Kind: kind, Message: message}
}

// NewParseError reports a malformed numeral, unterminated string, mismatched
// delimiter or invalid escape, with the source position it occurred at.
func NewParseError(message string, line, column int) *GeneError {
	e := newErr(ParseError, message)
	e.Location = SourceLocation{Line: line, Column: column}
	return e
}

// NewCompileError reports a structurally invalid form, e.g. `(var 1 2)`.
// subtree is the offending form's printed representation.
func NewCompileError(message, subtree string) *GeneError {
	e := newErr(CompileError, message)
	e.Subtree = subtree
	return e
}

// NewUndefinedNameError reports a GetMember/SetMember with no binding.
func NewUndefinedNameError(name string) *GeneError {
	return newErr(UndefinedNameError, fmt.Sprintf("undefined name: %s", name))
}

// NewTypeError reports a binary op, SetItem/SetProp, or JumpIfFalse applied
// to an operand of the wrong runtime kind.
func NewTypeError(message string) *GeneError {
	return newErr(TypeError, message)
}

// NewInvariantViolation reports an internal-bug-class failure: an
// out-of-range jump, a compile-time-only opcode reaching the dispatcher, an
// unknown opcode, or frame underflow on CallEnd.
func NewInvariantViolation(message string) *GeneError {
	return newErr(InvariantViolation, message)
}

// WithCause wraps an underlying error using pkg/errors so the full call
// chain survives to the top-level CLI report.
func (e *GeneError) WithCause(cause error) *GeneError {
	e.cause = pkgerrors.WithStack(cause)
	return e
}

// Wrap attaches additional context to err while preserving its Kind when err
// is already a *GeneError; otherwise it produces an InvariantViolation,
// since an error with no recognized Kind crossing a stage boundary is itself
// a bug in this pipeline's error handling.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	var ge *GeneError
	if asGeneError(err, &ge) {
		wrapped := *ge
		wrapped.Message = context + ": " + ge.Message
		wrapped.cause = pkgerrors.WithMessage(err, context)
		return &wrapped
	}
	return newErr(InvariantViolation, context+": "+err.Error()).WithCause(err)
}

func asGeneError(err error, target **GeneError) bool {
	for err != nil {
		if ge, ok := err.(*GeneError); ok {
			*target = ge
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
