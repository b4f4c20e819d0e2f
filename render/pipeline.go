package render

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/v3gtb/liquidpage/content"
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/internal/logging"
	"github.com/v3gtb/liquidpage/output"
	"github.com/v3gtb/liquidpage/site"
)

// Defaults of Config.
const (
	DefaultDocument = "index.md"
	DefaultOutput   = "_index-liquid-rendered.md"
)

// Config describes one pipeline run.
type Config struct {
	// Source is the site source directory. Empty means the source of the
	// config file, or the working directory.
	Source string
	// ConfigFile is an explicit site config file. Empty means the config
	// file found in Source, if any.
	ConfigFile string
	// Document is the document to render, relative to Source.
	Document string
	// Output is the destination of the rendered text; "-" is stdout.
	Output string
	// Pages scans the site so that site.pages lists its documents.
	Pages bool
	// StrictVariables and StrictFilters override the site configuration
	// when set.
	StrictVariables *bool
	StrictFilters   *bool
}

// Pipeline loads a document, builds its site context, renders it and
// writes the result. It stops at the first error; nothing is written
// unless the render completed.
type Pipeline struct {
	Logger   *slog.Logger
	Renderer Renderer
	Sink     output.Sink
}

// Run executes the pipeline for cfg.
func (p *Pipeline) Run(cfg Config) error {
	logger := p.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	siteCfg, err := siteConfig(cfg)
	if err != nil {
		return err
	}
	logger.Debug("site configured",
		"source", siteCfg.Source,
		"strict_variables", siteCfg.StrictVariables,
		"strict_filters", siteCfg.StrictFilters)

	name, err := documentName(siteCfg.Source, cfg.Document)
	if err != nil {
		return err
	}
	doc, err := content.LoadFS(os.DirFS(siteCfg.Source), name)
	if err != nil {
		return err
	}
	logger.Debug("document loaded", "document", doc.Path, "front_matter", doc.HasFrontMatter())

	sc, err := site.Build(siteCfg)
	if err != nil {
		return err
	}
	if cfg.Pages {
		if err := sc.Scan(); err != nil {
			return err
		}
	}
	logger.Debug("scope built", "document", doc.Path, "pages", len(sc.Pages()))

	text, err := p.Renderer.Render(doc, sc)
	if err != nil {
		return err
	}
	logger.Debug("document rendered", "document", doc.Path, "bytes", len(text))

	dest := cfg.Output
	if dest == "" {
		dest = DefaultOutput
	}
	if err := p.Sink.Write(dest, text); err != nil {
		return err
	}
	logger.Debug("document written", "document", doc.Path, "destination", dest)
	return nil
}

func siteConfig(cfg Config) (site.Config, error) {
	var (
		siteCfg site.Config
		err     error
	)
	switch {
	case cfg.ConfigFile != "":
		siteCfg, err = site.LoadConfig(cfg.ConfigFile)
		if err == nil && cfg.Source != "" {
			siteCfg.Source = cfg.Source
		}
	default:
		source := cfg.Source
		if source == "" {
			source = site.DefaultSource
		}
		siteCfg, err = site.LoadSourceConfig(source)
	}
	if err != nil {
		return site.Config{}, err
	}
	if cfg.StrictVariables != nil {
		siteCfg.StrictVariables = *cfg.StrictVariables
	}
	if cfg.StrictFilters != nil {
		siteCfg.StrictFilters = *cfg.StrictFilters
	}
	return siteCfg, nil
}

// documentName returns the slash-separated name of document inside source.
func documentName(source, document string) (string, error) {
	if document == "" {
		document = DefaultDocument
	}
	rel := document
	if filepath.IsAbs(document) {
		absSource, err := filepath.Abs(source)
		if err != nil {
			return "", lperrors.Errorf(lperrors.ErrIO, "could not resolve source '%s'", source).WithCause(err)
		}
		rel, err = filepath.Rel(absSource, document)
		if err != nil {
			rel = ".."
		}
	}
	name := filepath.ToSlash(filepath.Clean(rel))
	if !fs.ValidPath(name) || name == "." {
		return "", lperrors.Errorf(lperrors.ErrConfig, "document '%s' is not inside the source directory", document).
			WithPath(document)
	}
	return name, nil
}
