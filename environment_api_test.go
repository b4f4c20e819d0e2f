package liquidpage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/v3gtb/liquidpage/value"
)

func mapLoader(files map[string]string) LoaderFunc {
	return func(name string) (string, error) {
		source, ok := files[name]
		if !ok {
			return "", NewError(ErrNotFound, fmt.Sprintf("no such file '%s'", name)).WithPath(name)
		}
		return source, nil
	}
}

func TestEnvironmentAddAndGetTemplate(t *testing.T) {
	env := NewEnvironment()
	if err := env.AddTemplate("hello", "Hello {{ name }}!"); err != nil {
		t.Fatalf("add template: %v", err)
	}
	tmpl, err := env.GetTemplate("hello")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if tmpl.Name() != "hello" || tmpl.Source() != "Hello {{ name }}!" {
		t.Errorf("unexpected template %q: %q", tmpl.Name(), tmpl.Source())
	}
	out, err := tmpl.Render(map[string]any{"name": "World"})
	if err != nil || out != "Hello World!" {
		t.Errorf("got %q, %v", out, err)
	}
}

func TestEnvironmentAddTemplateSyntaxError(t *testing.T) {
	env := NewEnvironment()
	err := env.AddTemplate("broken.md", "line\n{% if %}")
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != ErrSyntax {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if lerr.Name != "broken.md" || lerr.Span == nil || lerr.Span.StartLine != 2 {
		t.Errorf("unexpected location: %s %+v", lerr.Name, lerr.Span)
	}
}

func TestGetTemplateWithoutLoader(t *testing.T) {
	env := NewEnvironment()
	_, err := env.GetTemplate("missing")
	if !errors.Is(err, ErrBadInclude) {
		t.Fatalf("expected ErrBadInclude, got %v", err)
	}
}

func TestInclude(t *testing.T) {
	env := strictEnv()
	env.SetLoader(mapLoader(map[string]string{
		"_includes/nav.html":       "<nav>{% for l in include.links %}[{{ l }}]{% endfor %}</nav>",
		"_includes/footer.html":    "(c) {{ site.title }}",
		"_includes/outer.html":     "outer:{% include inner.html who=include.who %}",
		"_includes/inner.html":     "inner:{{ include.who }}",
		"docs/index.md":            "{% include_relative part.md %}",
		"docs/part.md":             "part of {{ page.title }}",
		"docs/sub/deep.md":         "{% include_relative ../part.md %}",
		"_includes/sets-var.md":    `{% assign from_include = "yes" %}`,
		"_includes/quoted name.md": "quoted",
	}))
	ctx := map[string]any{
		"site":  map[string]any{"title": "Blog"},
		"page":  map[string]any{"title": "Docs"},
		"links": []any{"a", "b"},
	}

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"index.md", `{% include nav.html links=links %}`, "<nav>[a][b]</nav>"},
		{"index.md", `{% include footer.html %}`, "(c) Blog"},
		{"index.md", `{% include outer.html who: "me" %}`, "outer:inner:me"},
		{"docs/index.md", `{% include_relative part.md %}`, "part of Docs"},
		{"docs/sub/deep.md", `{% include_relative ../part.md %}`, "part of Docs"},
		{"index.md", `{% include sets-var.md %}{{ from_include }}`, "yes"},
		{"index.md", `{% include "quoted name.md" %}`, "quoted"},
	}
	for _, tc := range tests {
		tmpl, err := env.TemplateFromNamedString(tc.name, tc.source)
		if err != nil {
			t.Fatalf("%s: parse error: %v", tc.source, err)
		}
		out, err := tmpl.Render(ctx)
		if err != nil {
			t.Fatalf("%s: render error: %v", tc.source, err)
		}
		if out != tc.expected {
			t.Errorf("%s: got %q, want %q", tc.source, out, tc.expected)
		}
	}
}

func TestIncludeErrors(t *testing.T) {
	env := strictEnv()
	env.SetLoader(mapLoader(map[string]string{
		"_includes/bad.html":  "ok\n{{ nope }}",
		"_includes/loop.html": "{% include loop.html %}",
	}))

	lerr := assertRenderErrorKind(t, env, `{% include missing.html %}`, nil, ErrNotFound)
	if lerr.Path != "_includes/missing.html" {
		t.Errorf("path: got %q", lerr.Path)
	}

	assertRenderErrorKind(t, env, `{% include ../../etc/passwd %}`, nil, ErrBadInclude)
	assertRenderErrorKind(t, env, `{% include_relative ../secret.md %}`, nil, ErrBadInclude)
	assertRenderErrorKind(t, env, `{% include loop.html %}`, nil, ErrResourceLimit)

	lerr = assertRenderErrorKind(t, env, `{% include bad.html %}`, nil, ErrUndefinedVar)
	if lerr.Name != "_includes/bad.html" || lerr.Span == nil || lerr.Span.StartLine != 2 {
		t.Errorf("error should point into the include: %s %+v", lerr.Name, lerr.Span)
	}
}

func TestIncludeParamsAreScoped(t *testing.T) {
	env := strictEnv()
	env.SetLoader(mapLoader(map[string]string{
		"_includes/p.html": "{{ include.x }}",
	}))
	assertRenderErrorKind(t, env, `{% include p.html x=1 %}{{ include.x }}`, nil, ErrUndefinedVar)
}

func TestConcurrentRenders(t *testing.T) {
	env := strictEnv()
	env.SetLoader(mapLoader(map[string]string{
		"_includes/item.html": "<{{ include.n }}>",
	}))
	tmpl, err := env.TemplateFromString(`{% for i in (1..3) %}{% include item.html n=i %}{% endfor %}{{ who }}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := fmt.Sprintf("w%d", i)
			out, err := tmpl.Render(map[string]any{"who": who})
			if err != nil {
				errs <- err
				return
			}
			if out != "<1><2><3>"+who {
				errs <- fmt.Errorf("unexpected output %q", out)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSetIncludesDir(t *testing.T) {
	env := NewEnvironment()
	env.SetIncludesDir("/partials/")
	env.SetLoader(mapLoader(map[string]string{"partials/a.html": "A"}))
	assertRender(t, env, `{% include a.html %}`, nil, "A")
}

func TestRenderToWriteReportsWriteErrors(t *testing.T) {
	env := NewEnvironment()
	tmpl, err := env.TemplateFromString("hello")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	err = tmpl.RenderToWrite(nil, failingWriter{})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("cause missing: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestIterationLevels(t *testing.T) {
	env := NewEnvironment()
	env.SetOptions(Options{MaxIterations: 10})

	var consumed, remaining uint64
	var tracked bool
	env.AddFilter("levels", func(state *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
		consumed, remaining, tracked = state.IterationLevels()
		return val, nil
	})

	assertRender(t, env, `{% for i in (1..3) %}{% endfor %}{{ "x" | levels }}`, nil, "x")
	if !tracked {
		t.Fatal("expected iteration tracking to be enabled")
	}
	if consumed != 3 || remaining != 7 {
		t.Fatalf("expected 3 consumed and 7 remaining, got %d and %d", consumed, remaining)
	}

	env.SetOptions(Options{})
	assertRender(t, env, `{{ "x" | levels }}`, nil, "x")
	if tracked {
		t.Fatal("expected unlimited iterations to be untracked")
	}
}
