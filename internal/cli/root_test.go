package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v3gtb/liquidpage/internal/testutil"
)

func run(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = Run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_RendersToFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"_config.yml": "title: Blog\n",
		"index.md":    "---\nname: world\n---\nHello, {{ name }}! ({{ site.title }})",
	})
	dest := filepath.Join(t.TempDir(), "rendered.md")

	code, _, stderr := run("--source", root, "--output", dest)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world! (Blog)", string(data))
}

func TestRun_Stdout(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"docs/page.md": "{{ page.url }}",
	})

	code, stdout, stderr := run("-s", root, "-d", "docs/page.md", "-o", "-")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "/docs/page.html", stdout)
}

func TestRun_UndefinedVariable(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "---\ntitle: Home\n---\n{{ page.missing }}",
	})

	code, stdout, stderr := run("--source", root, "--output", "-")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: UndefinedVariableError: undefined variable 'page.missing'")
	assert.Contains(t, stderr, "index.md line 4")
}

func TestRun_VerboseShowsExcerpt(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "---\ntitle: Home\n---\nfirst\n{{ page.missing }}",
	})

	code, _, stderr := run("--source", root, "--output", "-", "-v")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "   5 > {{ page.missing }}")
	assert.Contains(t, stderr, "   4 | first")
}

func TestRun_LenientFlags(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "[{{ nope }}][{{ 'a' | nofilter }}]",
	})

	code, stdout, stderr := run("--source", root, "--output", "-",
		"--strict-variables=false", "--strict-filters=false")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "[][a]", stdout)
}

func TestRun_DebugLogging(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": "ok",
	})

	code, _, stderr := run("--source", root, "--output", "-", "--log-level", "debug", "--log-format", "json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, `"msg":"document written"`)
}

func TestRun_RejectsArguments(t *testing.T) {
	code, _, stderr := run("index.md")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := run("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "liquidpage ")
	assert.Contains(t, stdout, runtime.Version())
}
