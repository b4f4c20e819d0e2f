package site

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/v3gtb/liquidpage/content"
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/value"
)

// Patterns applied by Scan when the configuration names none.
var (
	DefaultInclude = []string{"**/*.md", "**/*.markdown", "**/*.html"}
	// Underscore and dot paths hold includes, layouts, data and tooling.
	DefaultExclude = []string{"**/_*", "**/_*/**", "**/.*", "**/.*/**"}
)

// Context is the site layer of the render scope. It is read-only once
// built (and scanned) and may be shared by concurrent renders.
type Context struct {
	cfg   Config
	vars  map[string]any
	pages []*content.Document
	val   value.Value
}

// Build creates the site context from cfg without touching the filesystem.
// Every configuration value is available under `site`.
func Build(cfg Config) (*Context, error) {
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Destination == "" {
		cfg.Destination = filepath.Join(cfg.Source, DefaultDestination)
	}
	for _, pattern := range append(append([]string(nil), cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, lperrors.Errorf(lperrors.ErrConfig, "invalid pattern '%s'", pattern).WithPath(pattern)
		}
	}

	vars := make(map[string]any, len(cfg.Vars)+6)
	for k, v := range cfg.Vars {
		vars[k] = v
	}
	vars["source"] = cfg.Source
	vars["destination"] = cfg.Destination
	vars["strict_variables"] = cfg.StrictVariables
	vars["strict_filters"] = cfg.StrictFilters
	vars["include"] = stringsToAny(cfg.Include)
	vars["exclude"] = stringsToAny(cfg.Exclude)

	c := &Context{cfg: cfg, vars: vars}
	c.refresh()
	return c, nil
}

// Config returns the configuration the context was built from.
func (c *Context) Config() Config {
	return c.cfg
}

// Pages returns the documents found by Scan, sorted by path.
func (c *Context) Pages() []*content.Document {
	return c.pages
}

// Value returns the site layer of the render scope: a map with the single
// key `site`.
func (c *Context) Value() value.Value {
	return c.val
}

// Scan loads the documents below the source directory that match the
// include patterns and none of the exclude patterns, and exposes them as
// site.pages. It fails on the first document that cannot be loaded.
func (c *Context) Scan() error {
	return c.ScanFS(os.DirFS(c.cfg.Source))
}

// ScanFS is Scan over fsys, which stands for the source directory.
func (c *Context) ScanFS(fsys fs.FS) error {
	include := c.cfg.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude := append(append([]string(nil), DefaultExclude...), c.cfg.Exclude...)
	if dest, ok := c.relativeDestination(); ok {
		exclude = append(exclude, dest, dest+"/**")
	}

	seen := make(map[string]struct{})
	var names []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return lperrors.Errorf(lperrors.ErrIO, "could not scan the source for '%s'", pattern).
				WithPath(pattern).
				WithCause(err)
		}
		for _, name := range matches {
			if _, dup := seen[name]; dup || excluded(name, exclude) {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pages := make([]*content.Document, 0, len(names))
	for _, name := range names {
		doc, err := content.LoadFS(fsys, name)
		if err != nil {
			return err
		}
		pages = append(pages, doc)
	}
	c.pages = pages
	c.refresh()
	return nil
}

func (c *Context) relativeDestination() (string, bool) {
	src, err := filepath.Abs(c.cfg.Source)
	if err != nil {
		return "", false
	}
	dest, err := filepath.Abs(c.cfg.Destination)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(src, dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (c *Context) refresh() {
	site := make(map[string]any, len(c.vars)+1)
	for k, v := range c.vars {
		site[k] = v
	}
	pages := make([]any, len(c.pages))
	for i, doc := range c.pages {
		pages[i] = PageVars(doc)
	}
	site["pages"] = pages
	c.val = value.FromAny(map[string]any{"site": site})
}

// PageVars returns the `page` namespace of a document: every front matter
// key plus path, name, dir, url and content.
func PageVars(doc *content.Document) map[string]any {
	page := make(map[string]any, len(doc.FrontMatter)+5)
	for k, v := range doc.FrontMatter {
		page[k] = v
	}
	page["path"] = doc.Path
	page["name"] = path.Base(doc.Path)
	page["dir"] = pageDir(doc.Path)
	page["url"] = PageURL(doc)
	page["content"] = doc.Body
	return page
}

func pageDir(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return "/"
	}
	return "/" + strings.Trim(dir, "/") + "/"
}

// PageURL returns the output URL of a document. A `permalink` front matter
// value wins; otherwise markup extensions become .html and index pages map
// to their directory.
func PageURL(doc *content.Document) string {
	if permalink, ok := doc.FrontMatter["permalink"].(string); ok && permalink != "" {
		return permalink
	}
	p := strings.TrimPrefix(doc.Path, "/")
	switch ext := path.Ext(p); ext {
	case ".md", ".markdown":
		p = strings.TrimSuffix(p, ext) + ".html"
	}
	if path.Base(p) == "index.html" {
		return pageDir(p)
	}
	return "/" + p
}

func stringsToAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
