// Package compiler provides the declaration front end for Crystal scripts.
// This file defines the CompileError type for structured error reporting.
package compiler

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zurustar/crystal/pkg/vm"
)

// Phases reported in CompileError.Phase.
const (
	PhaseLexer   = "lexer"
	PhaseParser  = "parser"
	PhaseRuntime = "runtime"
)

// CompileError represents a structured error with location information.
// It implements the error interface and provides detailed context about where
// the error occurred in the source code.
type CompileError struct {
	// Phase indicates which stage generated the error.
	// Valid values: "lexer", "parser", "runtime"
	Phase string

	// File is the script name, if known.
	File string

	// Message is the human-readable error description.
	Message string

	// Line is the 1-indexed line number where the error occurred.
	Line int

	// Column is the 1-indexed column number (in characters) where the error occurred.
	Column int

	// Context contains the source code around the error location.
	// This includes 2 lines before and after the error line,
	// with a pointer (^) indicating the error column.
	Context string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
// It returns a formatted error message including phase, location, message, and context.
func (e *CompileError) Error() string {
	var buf strings.Builder
	if e.File != "" {
		buf.WriteString(e.File)
		buf.WriteString(": ")
	}
	fmt.Fprintf(&buf, "%s error at line %d, column %d: %s", e.Phase, e.Line, e.Column, e.Message)
	if e.Context != "" {
		buf.WriteString("\n")
		buf.WriteString(e.Context)
	}
	return buf.String()
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewErrorAt creates a CompileError located at a byte offset of source.
func NewErrorAt(phase, message, source string, offset int) *CompileError {
	line, column := Position(source, offset)
	return &CompileError{
		Phase:   phase,
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// WithContext attaches source location to an interpretation error that
// carries an offset. Other errors are returned unchanged.
func WithContext(err error, source string) error {
	var re *vm.RuntimeError
	if !errors.As(err, &re) || re.Offset < 0 {
		return err
	}
	ce := NewErrorAt(PhaseRuntime, fmt.Sprintf("%s (%s)", re.Message, re.Code), source, re.Offset)
	ce.Err = err
	return ce
}

// IsCompileError reports whether err is or wraps a CompileError.
func IsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Position converts a byte offset into a 1-indexed line and column. The
// column counts characters, so multi-byte text lines up with the pointer.
// A negative offset yields 0, 0.
func Position(source string, offset int) (line, column int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	before := source[:offset]
	line = strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	column = utf8.RuneCountInString(before[lineStart:]) + 1
	return line, column
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers
// and a pointer (^) indicating the error column.
//
// Example output:
//
//	  2 | x = 5;
//	  3 | y = 10;
//	> 4 | z = ;
//	    |     ^
//	  5 | w = 20;
//	  6 | v = 30;
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := max(line-3, 0)
	end := min(line+2, len(lines))
	width := len(fmt.Sprintf("%d", end))

	var buf strings.Builder
	for i := start; i < end; i++ {
		lineNum := i + 1
		content := strings.TrimRight(lines[i], "\r")

		if lineNum != line {
			fmt.Fprintf(&buf, "  %*d | %s\n", width, lineNum, content)
			continue
		}
		fmt.Fprintf(&buf, "> %*d | %s\n", width, lineNum, content)
		fmt.Fprintf(&buf, "  %*s | %s^\n", width, "", strings.Repeat(" ", max(column-1, 0)))
	}

	return buf.String()
}
