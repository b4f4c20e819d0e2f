package content

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

func TestParse_FrontMatterAndBody(t *testing.T) {
	raw := "---\ntitle: Home\ntags: [a, b]\nnested:\n  count: 3\n---\nHello {{ title }}\n"

	doc, err := Parse("index.md", raw)
	require.NoError(t, err)
	assert.Equal(t, "index.md", doc.Path)
	assert.Equal(t, raw, doc.Raw)
	assert.Equal(t, "Hello {{ title }}\n", doc.Body)
	assert.Equal(t, 7, doc.BodyLine)
	assert.True(t, doc.HasFrontMatter())
	assert.Equal(t, "Home", doc.FrontMatter["title"])
	assert.Equal(t, []any{"a", "b"}, doc.FrontMatter["tags"])
	assert.Equal(t, map[string]any{"count": 3}, doc.FrontMatter["nested"])
}

func TestParse_NoFrontMatter(t *testing.T) {
	doc, err := Parse("plain.md", "# Title\n---\nnot front matter\n")
	require.NoError(t, err)
	assert.False(t, doc.HasFrontMatter())
	assert.Equal(t, "# Title\n---\nnot front matter\n", doc.Body)
	assert.Equal(t, 1, doc.BodyLine)
}

func TestParse_EmptyFrontMatter(t *testing.T) {
	doc, err := Parse("empty.md", "---\n---\nbody")
	require.NoError(t, err)
	assert.True(t, doc.HasFrontMatter())
	assert.Empty(t, doc.FrontMatter)
	assert.Equal(t, "body", doc.Body)
	assert.Equal(t, 3, doc.BodyLine)
}

func TestParse_Tolerances(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		body string
	}{
		{"byte order mark", "\ufeff---\ntitle: Home\n---\nbody", "body"},
		{"crlf", "---\r\ntitle: Home\r\n---\r\nbody\r\n", "body\r\n"},
		{"trailing blanks", "---  \ntitle: Home\n--- \nbody", "body"},
		{"dots terminator", "---\ntitle: Home\n...\nbody", "body"},
		{"no body", "---\ntitle: Home\n---", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse("doc.md", tc.raw)
			require.NoError(t, err)
			assert.Equal(t, "Home", doc.FrontMatter["title"])
			assert.Equal(t, tc.body, doc.Body)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		line uint16
	}{
		{"unterminated", "---\ntitle: Home\nbody\n", 1},
		{"only delimiter", "---", 1},
		{"bad yaml", "---\ntitle: [unclosed\n---\nbody", 2},
		{"sequence", "---\n- a\n- b\n---\nbody", 2},
		{"scalar", "---\n\njust text\n---\nbody", 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.md", tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, lperrors.ErrMalformedFrontMatter)

			var lerr *lperrors.Error
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, "bad.md", lerr.Path)
			require.NotNil(t, lerr.Span)
			assert.Equal(t, tc.line, lerr.Span.StartLine)
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	raw := "---\ntitle: Home\ndraft: false\nweight: 2.5\ntags:\n  - a\n  - b\nauthor:\n  name: Ada\n---\nBody {{ page.title }}\n"
	doc, err := Parse("index.md", raw)
	require.NoError(t, err)

	out, err := doc.Marshal()
	require.NoError(t, err)

	again, err := Parse("index.md", out)
	require.NoError(t, err)
	assert.Equal(t, doc.FrontMatter, again.FrontMatter)
	assert.Equal(t, doc.Body, again.Body)
}

func TestMarshal_WithoutFrontMatter(t *testing.T) {
	doc, err := Parse("plain.md", "just text")
	require.NoError(t, err)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "just text", out)

	empty, err := Parse("empty.md", "---\n---\nx")
	require.NoError(t, err)
	out, err = empty.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "---\n---\nx", out)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Disk\n---\nhi"), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(path), doc.Path)
	assert.Equal(t, "Disk", doc.FrontMatter["title"])
	assert.Equal(t, "hi", doc.Body)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrNotFound)
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrIO)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/guide.md": {Data: []byte("---\ntitle: Guide\n---\nRead me")},
	}

	doc, err := LoadFS(fsys, "docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/guide.md", doc.Path)
	assert.Equal(t, "Guide", doc.FrontMatter["title"])

	_, err = LoadFS(fsys, "docs/missing.md")
	assert.ErrorIs(t, err, lperrors.ErrNotFound)
}
