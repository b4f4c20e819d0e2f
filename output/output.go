// Package output writes rendered text to its destination.
package output

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

// Stdout is the destination name that selects standard output.
const Stdout = "-"

// FileMode is applied to files the sink creates.
const FileMode fs.FileMode = 0o644

// Sink writes rendered documents. The zero value writes "-" to os.Stdout.
type Sink struct {
	Stdout io.Writer
}

// Write replaces destination with text in a single attempt. The parent
// directory must exist. Readers of destination see either the old or the
// new content, never a partial file.
func (s Sink) Write(destination, text string) error {
	if destination == Stdout {
		w := s.Stdout
		if w == nil {
			w = os.Stdout
		}
		return WriteTo(w, text)
	}

	_, statErr := os.Stat(destination)
	created := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(destination, strings.NewReader(text)); err != nil {
		return lperrors.Errorf(lperrors.ErrIO, "could not write '%s'", destination).
			WithPath(destination).
			WithCause(err)
	}
	if created {
		if err := os.Chmod(destination, FileMode); err != nil {
			return lperrors.Errorf(lperrors.ErrIO, "could not set permissions of '%s'", destination).
				WithPath(destination).
				WithCause(err)
		}
	}
	return nil
}

// Write writes text to destination using the default sink.
func Write(destination, text string) error {
	return Sink{}.Write(destination, text)
}

// WriteTo writes text to w.
func WriteTo(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return lperrors.NewError(lperrors.ErrIO, "could not write output").WithCause(err)
	}
	return nil
}
