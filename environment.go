package liquidpage

import (
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/v3gtb/liquidpage/parser"
	"github.com/v3gtb/liquidpage/value"
)

// DefaultIncludesDir is where `include` looks for files, relative to the
// loader root.
const DefaultIncludesDir = "_includes"

// Options controls how undefined names are treated and bounds the work a
// single render may do.
type Options struct {
	// StrictVariables makes a reference to an absent variable or attribute
	// an UndefinedVariableError instead of an empty value.
	StrictVariables bool
	// StrictFilters makes an unknown filter an UndefinedFilterError
	// instead of a no-op.
	StrictFilters bool
	// MaxIterations bounds the total number of loop iterations of one
	// render. Zero means unlimited.
	MaxIterations uint64
	// Debug attaches a source excerpt and the referenced variables to
	// render errors. Print them with %+v.
	Debug bool
}

// StrictOptions returns options with strict variables and strict filters
// enabled.
func StrictOptions() Options {
	return Options{StrictVariables: true, StrictFilters: true}
}

// FilterFunc is the signature for filter functions.
// It receives the state, the value to filter, and the positional and
// keyword arguments.
type FilterFunc func(state *State, val value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error)

// LoaderFunc loads template source by name. Names are slash-separated paths
// relative to the loader root.
type LoaderFunc func(name string) (string, error)

// Environment holds the configuration and templates.
//
// An Environment may be shared by concurrent renders once it is
// configured.
type Environment struct {
	templates   map[string]*compiledTemplate
	templatesMu sync.RWMutex
	filters     map[string]FilterFunc
	loader      LoaderFunc
	includesDir string
	opts        Options
}

type compiledTemplate struct {
	name   string
	source string
	ast    *parser.Template
}

// NewEnvironment creates a new environment with the built-in filters and
// lenient options.
func NewEnvironment() *Environment {
	env := EmptyEnvironment()
	registerDefaultFilters(env)
	return env
}

// EmptyEnvironment creates an environment with no filters.
func EmptyEnvironment() *Environment {
	return &Environment{
		templates:   make(map[string]*compiledTemplate),
		filters:     make(map[string]FilterFunc),
		includesDir: DefaultIncludesDir,
	}
}

// AddTemplate adds a template from source.
func (e *Environment) AddTemplate(name, source string) error {
	ast, err := parser.Parse(source, name)
	if err != nil {
		return err
	}

	e.templatesMu.Lock()
	e.templates[name] = &compiledTemplate{
		name:   name,
		source: source,
		ast:    ast,
	}
	e.templatesMu.Unlock()
	return nil
}

// GetTemplate retrieves a template by name, consulting the loader for
// templates that were not added explicitly.
func (e *Environment) GetTemplate(name string) (*Template, error) {
	e.templatesMu.RLock()
	compiled, ok := e.templates[name]
	e.templatesMu.RUnlock()
	if ok {
		return &Template{env: e, compiled: compiled}, nil
	}

	if e.loader == nil {
		return nil, NewError(ErrBadInclude, fmt.Sprintf("template '%s' not found and no loader is configured", name)).WithPath(name)
	}

	source, err := e.loader(name)
	if err != nil {
		if lerr, ok := err.(*Error); ok {
			return nil, lerr
		}
		return nil, NewError(ErrBadInclude, fmt.Sprintf("could not load '%s'", name)).WithPath(name).WithCause(err)
	}
	if err := e.AddTemplate(name, source); err != nil {
		return nil, err
	}
	e.templatesMu.RLock()
	compiled = e.templates[name]
	e.templatesMu.RUnlock()
	return &Template{env: e, compiled: compiled}, nil
}

// TemplateFromString creates a template from source without storing it.
func (e *Environment) TemplateFromString(source string) (*Template, error) {
	return e.TemplateFromNamedString("<string>", source)
}

// TemplateFromNamedString creates a template from source with a name
// without storing it. The name is used in error messages and as the base
// for include_relative.
func (e *Environment) TemplateFromNamedString(name, source string) (*Template, error) {
	ast, err := parser.Parse(source, name)
	if err != nil {
		return nil, err
	}

	return &Template{
		env: e,
		compiled: &compiledTemplate{
			name:   name,
			source: source,
			ast:    ast,
		},
	}, nil
}

// SetLoader sets the function used to load included templates.
func (e *Environment) SetLoader(loader LoaderFunc) {
	e.loader = loader
}

// SetIncludesDir changes the directory `include` resolves names against.
func (e *Environment) SetIncludesDir(dir string) {
	e.includesDir = strings.Trim(dir, "/")
}

// AddFilter registers a filter function.
func (e *Environment) AddFilter(name string, f FilterFunc) {
	e.filters[name] = f
}

// SetOptions replaces the render options.
func (e *Environment) SetOptions(opts Options) {
	e.opts = opts
}

// Options returns the render options.
func (e *Environment) Options() Options {
	return e.opts
}

// SetStrictVariables toggles strict variable lookups.
func (e *Environment) SetStrictVariables(strict bool) {
	e.opts.StrictVariables = strict
}

// SetStrictFilters toggles strict filter lookups.
func (e *Environment) SetStrictFilters(strict bool) {
	e.opts.StrictFilters = strict
}

// SetDebug toggles debug info on errors.
func (e *Environment) SetDebug(debug bool) {
	e.opts.Debug = debug
}

// getFilter returns a filter by name.
func (e *Environment) getFilter(name string) (FilterFunc, bool) {
	f, ok := e.filters[name]
	return f, ok
}

// resolveInclude maps the argument of include or include_relative to a
// template name. from is the name of the including template.
func (e *Environment) resolveInclude(name, from string, relative bool) (string, error) {
	var resolved string
	if relative {
		resolved = path.Join(path.Dir(from), name)
	} else {
		resolved = path.Join(e.includesDir, name)
	}
	if path.IsAbs(name) || resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", NewError(ErrBadInclude, fmt.Sprintf("include path '%s' escapes the site", name)).WithPath(name)
	}
	return resolved, nil
}

// Template represents a compiled template.
type Template struct {
	env      *Environment
	compiled *compiledTemplate
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.compiled.name
}

// Source returns the template source.
func (t *Template) Source() string {
	return t.compiled.source
}

// Render renders the template with the given context.
func (t *Template) Render(ctx any) (string, error) {
	return t.RenderValue(value.FromAny(ctx))
}

// RenderValue renders the template with a Value context.
func (t *Template) RenderValue(ctx value.Value) (string, error) {
	var sb strings.Builder
	state := newState(t.env, t.compiled.name, t.compiled.source, ctx, &sb)
	if err := state.eval(t.compiled.ast); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderToWrite renders the template and writes each output fragment to w
// as soon as it is produced. On error, w holds the output produced before
// the failing node.
func (t *Template) RenderToWrite(ctx any, w io.Writer) error {
	state := newState(t.env, t.compiled.name, t.compiled.source, value.FromAny(ctx), w)
	return state.eval(t.compiled.ast)
}

// escapeHTML escapes a string the way Liquid's `escape` filter does.
func escapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if esc, ok := htmlEscapes[r]; ok {
			b.WriteString(esc)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var htmlEscapes = map[rune]string{
	'<':  "&lt;",
	'>':  "&gt;",
	'&':  "&amp;",
	'"':  "&quot;",
	'\'': "&#39;",
}
