package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

func TestWrite_CreatesFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "_index-liquid-rendered.md")

	require.NoError(t, Write(dest, "Hello, world!\n"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!\n", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestWrite_ReplacesExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, os.WriteFile(dest, []byte("a much longer previous rendering"), 0o600))

	require.NoError(t, Write(dest, "new"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWrite_MissingParentDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing", "out.md")

	err := Write(dest, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrIO)

	var lerr *lperrors.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, dest, lerr.Path)
	assert.NotNil(t, lerr.Err)
}

func TestSink_Stdout(t *testing.T) {
	var buf bytes.Buffer
	sink := Sink{Stdout: &buf}

	require.NoError(t, sink.Write(Stdout, "to stdout"))
	assert.Equal(t, "to stdout", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteTo_PropagatesErrors(t *testing.T) {
	err := WriteTo(brokenWriter{}, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrIO)
	assert.Contains(t, err.Error(), "broken pipe")
}
