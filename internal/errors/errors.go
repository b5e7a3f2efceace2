// Package errors is basm's structured error type: parsing and lowering
// report failures as a *BasmError carrying a Kind and, when available,
// a source location with a caret-pointer rendering. The gcc calls in
// internal/backend and most of the CLI's filesystem handling return
// ordinary wrapped Go errors instead. It is
// deliberately not used inside internal/machine, internal/table, or
// internal/cell: those packages only ever emit BF text and cannot
// themselves fail.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a BasmError.
type Kind string

const (
	SyntaxError              Kind = "SyntaxError"
	UnknownLabel             Kind = "UnknownLabel"
	UnknownRegister          Kind = "UnknownRegister"
	UnsupportedCellWidth     Kind = "UnsupportedCellWidth"
	UnimplementedInstruction Kind = "UnimplementedInstruction"
	BackendError             Kind = "BackendError"
	IOError                  Kind = "IOError"
)

// SourceLocation pinpoints a position in a BASM source file.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// BasmError is the error type returned across every compiler stage.
type BasmError struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	Source   string // the offending source line, for caret rendering
}

func (e *BasmError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))

	if e.Location.File != "" {
		fmt.Fprintf(&sb, "\n  at %s:%d:%d", e.Location.File, e.Location.Line, e.Location.Column)
		if e.Source != "" {
			prefix := fmt.Sprintf("  %d | ", e.Location.Line)
			fmt.Fprintf(&sb, "\n%s%s\n", prefix, e.Source)
			sb.WriteString(strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^")
		}
	}

	return sb.String()
}

// WithSource attaches the offending source line, enabling the
// caret-pointer rendering in Error().
func (e *BasmError) WithSource(source string) *BasmError {
	e.Source = source
	return e
}

// New builds a BasmError with no location attached, for errors that
// arise outside of source text (backend failures, IO errors).
func New(kind Kind, format string, args ...any) *BasmError {
	return &BasmError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAt builds a BasmError anchored to a source location.
func NewAt(kind Kind, file string, line, column int, format string, args ...any) *BasmError {
	return &BasmError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}
