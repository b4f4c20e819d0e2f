package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/internal/logging"
	"github.com/v3gtb/liquidpage/internal/testutil"
	"github.com/v3gtb/liquidpage/output"
)

func TestPipeline_Run(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"_config.yml":           "title: Blog\n",
		"index.md":              "---\nname: world\n---\nHello, {{ name }}! {% include footer.html %}",
		"_includes/footer.html": "(c) {{ site.title }}",
	})
	dest := filepath.Join(t.TempDir(), DefaultOutput)

	var logs bytes.Buffer
	p := &Pipeline{Logger: logging.New(logging.Config{Level: logging.LevelDebug, Output: &logs})}
	require.NoError(t, p.Run(Config{Source: root, Output: dest}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world! (c) Blog", string(data))

	for _, msg := range []string{"site configured", "document loaded", "scope built", "document rendered", "document written"} {
		assert.Contains(t, logs.String(), msg)
	}
}

func TestPipeline_Pages(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "{% for p in site.pages %}{{ p.url }};{% endfor %}",
		"about.md": "---\ntitle: About\n---\n",
	})
	var stdout bytes.Buffer
	p := &Pipeline{Sink: output.Sink{Stdout: &stdout}}

	require.NoError(t, p.Run(Config{Source: root, Output: output.Stdout, Pages: true}))
	assert.Equal(t, "/about.html;/;", stdout.String())

	stdout.Reset()
	require.NoError(t, p.Run(Config{Source: root, Output: output.Stdout}))
	assert.Equal(t, "", stdout.String())
}

func TestPipeline_FailureWritesNothing(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "---\ntitle: Home\n---\n{{ page.missing }}",
	})
	dest := filepath.Join(t.TempDir(), "out.md")

	err := (&Pipeline{}).Run(Config{Source: root, Output: dest})
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrUndefinedVar)

	var lerr *lperrors.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "page.missing", lerr.Path)
	require.NotNil(t, lerr.Span)
	assert.EqualValues(t, 4, lerr.Span.StartLine)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_StrictnessOverrides(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"_config.yml": "liquid:\n  strict_variables: false\n",
		"index.md":    "[{{ nope }}]",
	})
	var stdout bytes.Buffer
	p := &Pipeline{Sink: output.Sink{Stdout: &stdout}}

	require.NoError(t, p.Run(Config{Source: root, Output: output.Stdout}))
	assert.Equal(t, "[]", stdout.String())

	strict := true
	err := p.Run(Config{Source: root, Output: output.Stdout, StrictVariables: &strict})
	assert.ErrorIs(t, err, lperrors.ErrUndefinedVar)
}

func TestPipeline_ExplicitConfigFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"conf/site.hcl":  "title = \"From HCL\"\nsource = \"../pages\"\n",
		"pages/index.md": "{{ site.title }}",
	})
	var stdout bytes.Buffer
	p := &Pipeline{Sink: output.Sink{Stdout: &stdout}}

	require.NoError(t, p.Run(Config{ConfigFile: filepath.Join(root, "conf", "site.hcl"), Output: output.Stdout}))
	assert.Equal(t, "From HCL", stdout.String())
}

func TestPipeline_DocumentErrors(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "x",
	})
	tests := []struct {
		name     string
		document string
		kind     lperrors.ErrorKind
	}{
		{"missing", "nope.md", lperrors.ErrNotFound},
		{"outside source", "../index.md", lperrors.ErrConfig},
		{"absolute outside source", filepath.Join(t.TempDir(), "index.md"), lperrors.ErrConfig},
		{"source itself", ".", lperrors.ErrConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (&Pipeline{}).Run(Config{Source: root, Document: tc.document, Output: output.Stdout})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestPipeline_AbsoluteDocumentInsideSource(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"docs/page.md": "{{ page.path }}",
	})
	var stdout bytes.Buffer
	p := &Pipeline{Sink: output.Sink{Stdout: &stdout}}

	require.NoError(t, p.Run(Config{Source: root, Document: filepath.Join(root, "docs", "page.md"), Output: output.Stdout}))
	assert.Equal(t, "docs/page.md", stdout.String())
}
