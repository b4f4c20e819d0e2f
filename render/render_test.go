package render

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v3gtb/liquidpage"
	"github.com/v3gtb/liquidpage/content"
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/site"
	"github.com/v3gtb/liquidpage/value"
)

func buildSite(t *testing.T, strict bool, vars map[string]any) *site.Context {
	t.Helper()
	sc, err := site.Build(site.Config{
		Source:          t.TempDir(),
		StrictVariables: strict,
		StrictFilters:   strict,
		Vars:            vars,
	})
	require.NoError(t, err)
	return sc
}

func parseDoc(t *testing.T, path, raw string) *content.Document {
	t.Helper()
	doc, err := content.Parse(path, raw)
	require.NoError(t, err)
	return doc
}

func TestRender_HelloWorld(t *testing.T) {
	doc := parseDoc(t, "index.md", "---\ntitle: Hello\n---\n{{ page.title }}, world!")
	out, err := (&Renderer{}).Render(doc, buildSite(t, true, nil))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", out)
}

func TestRender_UndefinedVariableReportsFileLine(t *testing.T) {
	raw := "---\ntitle: Home\n---\n\nIntro\n{{ page.missing }}\n"
	doc := parseDoc(t, "index.md", raw)

	_, err := (&Renderer{}).Render(doc, buildSite(t, true, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, liquidpage.ErrUndefinedVar)

	var lerr *liquidpage.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "page.missing", lerr.Path)
	assert.Equal(t, "index.md", lerr.Name)
	require.NotNil(t, lerr.Span)
	assert.EqualValues(t, 6, lerr.Span.StartLine)
	assert.Equal(t, raw, lerr.Source)
}

func TestRender_SyntaxErrorReportsFileLine(t *testing.T) {
	doc := parseDoc(t, "post.md", "---\ntitle: x\n---\n{% if %}\n")

	_, err := (&Renderer{}).Render(doc, buildSite(t, true, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, liquidpage.ErrSyntax)

	var lerr *liquidpage.Error
	require.ErrorAs(t, err, &lerr)
	require.NotNil(t, lerr.Span)
	assert.EqualValues(t, 4, lerr.Span.StartLine)
}

func TestRender_Lenient(t *testing.T) {
	doc := parseDoc(t, "index.md", "[{{ page.missing }}][{{ 'x' | frobnicate }}]")
	out, err := (&Renderer{}).Render(doc, buildSite(t, false, nil))
	require.NoError(t, err)
	assert.Equal(t, "[][x]", out)
}

func TestRender_StrictFilters(t *testing.T) {
	doc := parseDoc(t, "index.md", "{{ 'x' | frobnicate }}")
	_, err := (&Renderer{}).Render(doc, buildSite(t, true, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, liquidpage.ErrUndefinedFilter)

	var lerr *liquidpage.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "frobnicate", lerr.Path)
}

func TestRender_DocumentShadowsSite(t *testing.T) {
	sc := buildSite(t, true, map[string]any{"title": "Site"})
	doc := parseDoc(t, "blog/post.md", "---\ntitle: Post\n---\n{{ title }}|{{ site.title }}|{{ page.title }}|{{ page.url }}")

	out, err := (&Renderer{}).Render(doc, sc)
	require.NoError(t, err)
	assert.Equal(t, "Post|Site|Post|/blog/post.html", out)
}

func TestRender_Idempotent(t *testing.T) {
	sc := buildSite(t, true, map[string]any{"tags": []any{"a", "b"}})
	doc := parseDoc(t, "index.md", "{% for t in site.tags %}{% assign last = t %}{{ t }}{% endfor %}{{ last }}")

	r := &Renderer{}
	first, err := r.Render(doc, sc)
	require.NoError(t, err)
	second, err := r.Render(doc, sc)
	require.NoError(t, err)
	assert.Equal(t, "abb", first)
	assert.Equal(t, first, second)
}

func TestRender_Includes(t *testing.T) {
	fsys := fstest.MapFS{
		"_includes/greet.html": {Data: []byte("Hi {{ include.who }} from {{ site.title }}")},
		"_includes/bad.html":   {Data: []byte("ok\n{{ nope }}")},
		"docs/part.md":         {Data: []byte("part of {{ page.title }}")},
	}
	r := &Renderer{FS: fsys}
	sc := buildSite(t, true, map[string]any{"title": "Blog"})

	out, err := r.Render(parseDoc(t, "index.md", `{% include greet.html who="Ann" %}`), sc)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann from Blog", out)

	out, err = r.Render(parseDoc(t, "docs/index.md", "---\ntitle: Docs\n---\n{% include_relative part.md %}"), sc)
	require.NoError(t, err)
	assert.Equal(t, "part of Docs", out)

	_, err = r.Render(parseDoc(t, "index.md", "---\nx: 1\n---\n{% include missing.html %}"), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, lperrors.ErrNotFound)

	_, err = r.Render(parseDoc(t, "index.md", "---\nx: 1\n---\n{% include bad.html %}"), sc)
	require.Error(t, err)
	var lerr *liquidpage.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "_includes/bad.html", lerr.Name)
	require.NotNil(t, lerr.Span)
	assert.EqualValues(t, 2, lerr.Span.StartLine)
}

func TestRender_CustomFilters(t *testing.T) {
	r := &Renderer{Filters: map[string]liquidpage.FilterFunc{
		"shout": func(_ *liquidpage.State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
			return value.FromString(val.String() + "!"), nil
		},
	}}
	out, err := r.Render(parseDoc(t, "index.md", "{{ 'hey' | shout }}"), buildSite(t, true, nil))
	require.NoError(t, err)
	assert.Equal(t, "hey!", out)
}

func TestRender_MaxIterations(t *testing.T) {
	r := &Renderer{MaxIterations: 3}
	_, err := r.Render(parseDoc(t, "index.md", "{% for i in (1..10) %}{{ i }}{% endfor %}"), buildSite(t, true, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, liquidpage.ErrResourceLimit)
}

func TestPayload(t *testing.T) {
	sc := buildSite(t, true, map[string]any{"title": "Site", "lang": "en"})
	doc := parseDoc(t, "about.md", "---\ntitle: About\n---\nbody")

	payload := (&Renderer{}).Payload(doc, sc)
	assert.Equal(t, "About", payload.GetAttr("title").String())
	assert.Equal(t, "en", payload.GetAttr("site").GetAttr("lang").String())
	assert.Equal(t, "body", payload.GetAttr("page").GetAttr("content").String())
	assert.Equal(t, "about.md", payload.GetAttr("page").GetAttr("path").String())
	assert.ElementsMatch(t, []string{"site", "title", "page"}, payload.Keys())

	// the site layer is shared and stays untouched
	_, ok := sc.Value().Lookup("page")
	assert.False(t, ok)
}
