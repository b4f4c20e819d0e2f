// Package content loads content documents: an optional block of YAML front
// matter followed by a body that may contain template markup.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/syntax"
)

const (
	frontMatterDelimiter = "---"
	frontMatterEnd       = "..."
	byteOrderMark        = "\ufeff"
)

// Document is a loaded content file. It is not modified after loading.
type Document struct {
	// Path is the slash-separated label of the document. Documents loaded
	// through a site carry a path relative to the site source.
	Path string
	// Raw is the complete file text.
	Raw string
	// FrontMatter holds the decoded front matter. It is nil when the file
	// has no front matter block and empty when the block is empty.
	FrontMatter map[string]any
	// Body is the text after the front matter, unchanged.
	Body string
	// BodyLine is the 1-based line of Raw on which Body starts.
	BodyLine int
}

// HasFrontMatter reports whether the document started with a front matter
// block.
func (d *Document) HasFrontMatter() bool {
	return d.FrontMatter != nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(filepath.ToSlash(path), err)
	}
	return Parse(filepath.ToSlash(path), string(data))
}

// LoadFS reads and parses the document name from fsys.
func LoadFS(fsys fs.FS, name string) (*Document, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, readError(name, err)
	}
	return Parse(name, string(data))
}

func readError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return lperrors.Errorf(lperrors.ErrNotFound, "document '%s' does not exist", path).
			WithPath(path).
			WithCause(err)
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return lperrors.Errorf(lperrors.ErrIO, "could not read document '%s'", path).
		WithPath(path).
		WithCause(err)
}

// Parse splits raw into front matter and body.
//
// A front matter block starts with a first line of exactly `---` and ends
// at the next line that is `---` or `...`. A leading byte order mark,
// trailing blanks and CRLF line endings are tolerated.
func Parse(path, raw string) (*Document, error) {
	doc := &Document{Path: path, Raw: raw, BodyLine: 1}
	text := strings.TrimPrefix(raw, byteOrderMark)

	first, rest, found := strings.Cut(text, "\n")
	if !isDelimiter(first, false) {
		doc.Body = text
		return doc, nil
	}
	if !found {
		return nil, malformed(path, "front matter is not terminated", 1, nil)
	}

	offset := 0
	line := 2
	for {
		current, next, more := strings.Cut(rest[offset:], "\n")
		if isDelimiter(current, true) {
			block := rest[:offset]
			if more {
				doc.Body = next
			}
			doc.BodyLine = line + 1
			fm, err := decodeFrontMatter(path, block)
			if err != nil {
				return nil, err
			}
			doc.FrontMatter = fm
			return doc, nil
		}
		if !more {
			return nil, malformed(path, "front matter is not terminated", 1, nil)
		}
		offset += len(current) + 1
		line++
	}
}

func isDelimiter(line string, closing bool) bool {
	line = strings.TrimRight(line, " \t\r")
	return line == frontMatterDelimiter || (closing && line == frontMatterEnd)
}

func decodeFrontMatter(path, block string) (map[string]any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(block), &node); err != nil {
		return nil, malformed(path, "front matter is not valid YAML", 2, err)
	}
	fm := map[string]any{}
	if len(node.Content) == 0 {
		return fm, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, malformed(path, "front matter must be a mapping", 2+root.Line-1, nil)
	}
	if err := root.Decode(&fm); err != nil {
		return nil, malformed(path, "front matter is not valid YAML", 2, err)
	}
	return fm, nil
}

func malformed(path, msg string, line int, cause error) *lperrors.Error {
	err := lperrors.NewError(lperrors.ErrMalformedFrontMatter, msg).
		WithPath(path).
		WithName(path).
		WithSpan(syntax.Span{StartLine: uint16(line), EndLine: uint16(line)})
	if cause != nil {
		err.WithCause(cause)
	}
	return err
}

// Marshal serializes the document back to text. Front matter keys are
// written in sorted order.
func (d *Document) Marshal() (string, error) {
	if d.FrontMatter == nil {
		return d.Body, nil
	}
	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	if len(d.FrontMatter) > 0 {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.FrontMatter); err != nil {
			return "", fmt.Errorf("encode front matter of %s: %w", d.Path, err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("encode front matter of %s: %w", d.Path, err)
		}
		sb.Write(buf.Bytes())
	}
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.WriteString(d.Body)
	return sb.String(), nil
}
