// Package errors defines the error type shared by every stage of the
// rendering pipeline.
package errors

import (
	"fmt"

	"github.com/v3gtb/liquidpage/syntax"
)

// ErrorKind describes the type of error.
//
// An ErrorKind is itself an error so that it can be used as an
// errors.Is target:
//
//	if errors.Is(err, liquidpage.ErrUndefinedVar) { ... }
type ErrorKind int

const (
	ErrNotFound ErrorKind = iota
	ErrMalformedFrontMatter
	ErrSyntax
	ErrUndefinedVar
	ErrUndefinedFilter
	ErrNonScalarInterpolation
	ErrInvalidOperation
	ErrIO
	ErrConfig
	ErrResourceLimit
	ErrBadInclude
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNotFound:
		return "NotFoundError"
	case ErrMalformedFrontMatter:
		return "MalformedFrontMatterError"
	case ErrSyntax:
		return "SyntaxError"
	case ErrUndefinedVar:
		return "UndefinedVariableError"
	case ErrUndefinedFilter:
		return "UndefinedFilterError"
	case ErrNonScalarInterpolation:
		return "NonScalarInterpolationError"
	case ErrInvalidOperation:
		return "InvalidOperationError"
	case ErrIO:
		return "IOError"
	case ErrConfig:
		return "ConfigError"
	case ErrResourceLimit:
		return "ResourceLimitError"
	case ErrBadInclude:
		return "BadIncludeError"
	default:
		return "Error"
	}
}

func (k ErrorKind) Error() string {
	return k.String()
}

// Error represents an error raised while loading, rendering or writing a
// document.
type Error struct {
	Kind    ErrorKind
	Message string
	// Path is the dotted variable path, filter name or file path the error
	// is about.
	Path      string
	Span      *syntax.Span
	Name      string // template or document name
	Source    string // template source (for error display)
	DebugInfo *DebugInfo
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	switch {
	case e.Name != "" && e.Span != nil:
		msg += fmt.Sprintf(" (at %s line %d, column %d)", e.Name, e.Span.StartLine, e.Span.StartCol+1)
	case e.Span != nil:
		msg += fmt.Sprintf(" (at line %d, column %d)", e.Span.StartLine, e.Span.StartCol+1)
	case e.Name != "":
		msg += fmt.Sprintf(" (in %s)", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

// Format implements fmt.Formatter. The %+v verb renders the annotated
// template excerpt when debug info was captured.
func (e *Error) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('+'):
		formatErrorWithDebug(f, e, true)
	case verb == 'q':
		_, _ = fmt.Fprintf(f, "%q", e.Error())
	default:
		_, _ = fmt.Fprint(f, e.Error())
	}
}

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithSpan adds span information to an error.
func (e *Error) WithSpan(span syntax.Span) *Error {
	e.Span = &span
	return e
}

// WithName adds the template name to an error.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithSource adds source to an error.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// WithPath records the variable path, filter name or file path.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithDebugInfo attaches debug info to the error.
func (e *Error) WithDebugInfo(info DebugInfo) *Error {
	e.DebugInfo = &info
	return e
}

// ShiftLines moves the error location down by n lines and replaces the
// source used for excerpts. Used when a template was cut out of a larger
// file.
func (e *Error) ShiftLines(n int, source string) *Error {
	if e.Span != nil {
		shifted := e.Span.ShiftLines(n)
		e.Span = &shifted
	}
	if source != "" {
		e.Source = source
		if e.DebugInfo != nil {
			e.DebugInfo.TemplateSource = source
		}
	}
	return e
}
