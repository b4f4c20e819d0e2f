// Package render evaluates a content document against its site and runs
// the load, build, render and write pipeline.
package render

import (
	"errors"
	"io/fs"
	"os"

	"github.com/v3gtb/liquidpage"
	"github.com/v3gtb/liquidpage/content"
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/site"
	"github.com/v3gtb/liquidpage/value"
)

// Renderer renders documents. The zero value renders with the strictness
// of the site configuration and reads includes from the site source.
type Renderer struct {
	// FS replaces the site source directory as the root of include and
	// include_relative.
	FS fs.FS
	// MaxIterations bounds the loop iterations of one render.
	MaxIterations uint64
	// Debug attaches a source excerpt and the referenced variables to
	// render errors.
	Debug bool
	// Filters are registered in addition to the built-in filters.
	Filters map[string]liquidpage.FilterFunc
}

// Payload returns the render scope of doc: the site layer shadowed by the
// document layer. The document layer holds every front matter key at the
// top level and the `page` namespace.
func (r *Renderer) Payload(doc *content.Document, s *site.Context) value.Value {
	layer := make(map[string]any, len(doc.FrontMatter)+1)
	for k, v := range doc.FrontMatter {
		layer[k] = v
	}
	layer["page"] = site.PageVars(doc)
	return value.MergeMaps(s.Value(), value.FromAny(layer))
}

// Render evaluates the body of doc. Error locations inside the body are
// reported as lines of the document file.
func (r *Renderer) Render(doc *content.Document, s *site.Context) (string, error) {
	env := r.environment(s)
	tmpl, err := env.TemplateFromNamedString(doc.Path, doc.Body)
	if err != nil {
		return "", shiftToFile(err, doc)
	}
	out, err := tmpl.RenderValue(r.Payload(doc, s))
	if err != nil {
		return "", shiftToFile(err, doc)
	}
	return out, nil
}

func (r *Renderer) environment(s *site.Context) *liquidpage.Environment {
	cfg := s.Config()
	env := liquidpage.NewEnvironment()
	env.SetOptions(liquidpage.Options{
		StrictVariables: cfg.StrictVariables,
		StrictFilters:   cfg.StrictFilters,
		MaxIterations:   r.MaxIterations,
		Debug:           r.Debug,
	})
	for name, f := range r.Filters {
		env.AddFilter(name, f)
	}

	fsys := r.FS
	if fsys == nil {
		fsys = os.DirFS(cfg.Source)
	}
	env.SetLoader(func(name string) (string, error) {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			return "", lperrors.Errorf(lperrors.ErrNotFound, "included file '%s' does not exist", name).
				WithPath(name).
				WithCause(err)
		}
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	return env
}

// shiftToFile moves the location of errors raised in the body of doc from
// body lines to file lines. Errors from included files are left alone.
func shiftToFile(err error, doc *content.Document) error {
	var lerr *lperrors.Error
	if errors.As(err, &lerr) && lerr.Name == doc.Path && doc.BodyLine > 1 {
		lerr.ShiftLines(doc.BodyLine-1, doc.Raw)
	}
	return err
}
