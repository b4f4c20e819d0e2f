package liquidpage

import (
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

// Error is the error type returned by every stage of the pipeline.
type Error = lperrors.Error

// ErrorKind describes the type of error.
type ErrorKind = lperrors.ErrorKind

// DebugInfo is a snapshot of the render state attached to errors when
// Options.Debug is set.
type DebugInfo = lperrors.DebugInfo

const (
	ErrNotFound               = lperrors.ErrNotFound
	ErrMalformedFrontMatter   = lperrors.ErrMalformedFrontMatter
	ErrSyntax                 = lperrors.ErrSyntax
	ErrUndefinedVar           = lperrors.ErrUndefinedVar
	ErrUndefinedFilter        = lperrors.ErrUndefinedFilter
	ErrNonScalarInterpolation = lperrors.ErrNonScalarInterpolation
	ErrInvalidOperation       = lperrors.ErrInvalidOperation
	ErrIO                     = lperrors.ErrIO
	ErrConfig                 = lperrors.ErrConfig
	ErrResourceLimit          = lperrors.ErrResourceLimit
	ErrBadInclude             = lperrors.ErrBadInclude
)

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return lperrors.NewError(kind, msg)
}
