// Package liquidpage renders Liquid templates the way a Jekyll site
// renders its pages.
//
// # Quick Start
//
//	out, err := liquidpage.Render("Hello, {{ name }}!",
//	    map[string]any{"name": "world"}, liquidpage.StrictOptions())
//	// out == "Hello, world!"
//
// # Template Syntax
//
// The supported language is the common subset of Liquid:
//   - Output: {{ page.title | upcase }}
//   - Tags: if, unless, case, for, assign, capture, increment, decrement,
//     include, include_relative, raw, comment
//   - Whitespace control: {{- x -}} and {%- tag -%}
//
// # Strictness
//
// With Options.StrictVariables an absent variable is an error of kind
// ErrUndefinedVar; without it the variable renders as the empty string.
// Options.StrictFilters does the same for unknown filters. Sequences and
// maps are never interpolated directly:
//
//	_, err := liquidpage.Render("{{ page.missing }}", scope, liquidpage.StrictOptions())
//	if errors.Is(err, liquidpage.ErrUndefinedVar) {
//	    var lerr *liquidpage.Error
//	    errors.As(err, &lerr)
//	    fmt.Println(lerr.Path, lerr.Span.StartLine) // page.missing 1
//	}
//
// # Includes
//
// Environment.SetLoader installs the function used by include (which
// resolves names under _includes/) and include_relative (which resolves
// names next to the including template).
//
// # See Also
//
//   - environment.go: Environment configuration
//   - filters.go: Built-in filters
//   - value package: Dynamic value system
//   - render package: Documents, site data and the end-to-end pipeline
package liquidpage

import (
	"io"

	"github.com/v3gtb/liquidpage/value"
)

// Value is a dynamically typed value in the template engine.
type Value = value.Value

// ValueKind describes the type of a Value.
type ValueKind = value.ValueKind

// Common value kinds
const (
	KindUndefined = value.KindUndefined
	KindNil       = value.KindNil
	KindBool      = value.KindBool
	KindNumber    = value.KindNumber
	KindString    = value.KindString
	KindSeq       = value.KindSeq
	KindMap       = value.KindMap
)

// Value constructors
var (
	Undefined  = value.Undefined
	Nil        = value.Nil
	FromBool   = value.FromBool
	FromInt    = value.FromInt
	FromFloat  = value.FromFloat
	FromString = value.FromString
	FromSlice  = value.FromSlice
	FromMap    = value.FromMap
	FromAny    = value.FromAny
)

// Render parses source and renders it against scope with a fresh
// environment.
func Render(source string, scope any, opts Options) (string, error) {
	env := NewEnvironment()
	env.SetOptions(opts)
	tmpl, err := env.TemplateFromString(source)
	if err != nil {
		return "", err
	}
	return tmpl.Render(scope)
}

// RenderToWrite is Render streaming its output to w.
func RenderToWrite(source string, scope any, opts Options, w io.Writer) error {
	env := NewEnvironment()
	env.SetOptions(opts)
	tmpl, err := env.TemplateFromString(source)
	if err != nil {
		return err
	}
	return tmpl.RenderToWrite(scope, w)
}
