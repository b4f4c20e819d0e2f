// Package site builds the site-wide part of the render scope from the site
// configuration and, optionally, the site's other content documents.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

// Defaults used when the configuration leaves a setting out.
const (
	DefaultSource      = "."
	DefaultDestination = "_site"
)

// ConfigFiles are the names probed, in order, in the source directory.
var ConfigFiles = []string{"_config.yml", "_config.yaml", "_config.hcl"}

// Config is the site configuration.
type Config struct {
	// Source is the directory holding the site's content.
	Source string
	// Destination is the build output directory. It is never scanned.
	Destination string

	StrictVariables bool
	StrictFilters   bool

	// Include and Exclude are doublestar patterns, relative to Source,
	// selecting the documents that Scan exposes as site.pages.
	Include []string
	Exclude []string

	// Vars holds every other configuration key.
	Vars map[string]any
}

// DefaultConfig returns the configuration used when no file is present.
// Strict mode is on.
func DefaultConfig() Config {
	return Config{
		Source:          DefaultSource,
		Destination:     DefaultDestination,
		StrictVariables: true,
		StrictFilters:   true,
	}
}

// FindConfig returns the first of ConfigFiles that exists in dir.
func FindConfig(dir string) (string, bool) {
	for _, name := range ConfigFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadSourceConfig loads the configuration file found in source, falling
// back to DefaultConfig. Source always ends up as the given directory.
func LoadSourceConfig(source string) (Config, error) {
	path, ok := FindConfig(source)
	if !ok {
		cfg := DefaultConfig()
		cfg.Source = source
		cfg.Destination = filepath.Join(source, DefaultDestination)
		return cfg, nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return Config{}, err
	}
	cfg.Source = source
	return cfg, nil
}

// LoadConfig reads a YAML or HCL configuration file. The format is chosen
// by extension. Relative source and destination values are resolved
// against the directory of the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, lperrors.Errorf(lperrors.ErrNotFound, "config file '%s' does not exist", path).
				WithPath(path).
				WithCause(err)
		}
		return Config{}, configError(path, "could not read config file", err)
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		raw, err = decodeYAML(data)
	case ".hcl":
		raw, err = decodeHCL(path, data)
	default:
		return Config{}, configError(path, fmt.Sprintf("unsupported config format '%s'", ext), nil)
	}
	if err != nil {
		return Config{}, configError(path, "invalid config file", err)
	}

	cfg, err := FromMap(raw)
	if err != nil {
		var lerr *lperrors.Error
		if errors.As(err, &lerr) {
			lerr.WithName(path)
		}
		return Config{}, err
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(base, cfg.Source)
	}
	if !filepath.IsAbs(cfg.Destination) {
		cfg.Destination = filepath.Join(base, cfg.Destination)
	}
	return cfg, nil
}

// FromMap builds a Config from decoded configuration keys on top of
// DefaultConfig. Strict settings may be given at the top level or under a
// `liquid` mapping.
func FromMap(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	vars := make(map[string]any, len(raw))
	for key, val := range raw {
		var err error
		switch key {
		case "source":
			cfg.Source, err = stringSetting(key, val)
		case "destination":
			cfg.Destination, err = stringSetting(key, val)
		case "strict_variables":
			cfg.StrictVariables, err = boolSetting(key, val)
		case "strict_filters":
			cfg.StrictFilters, err = boolSetting(key, val)
		case "include":
			cfg.Include, err = patternsSetting(key, val)
		case "exclude":
			cfg.Exclude, err = patternsSetting(key, val)
		case "liquid":
			err = applyLiquidSettings(&cfg, val)
			vars[key] = val
		default:
			vars[key] = val
		}
		if err != nil {
			return Config{}, err
		}
	}
	if len(vars) > 0 {
		cfg.Vars = vars
	}
	return cfg, nil
}

func applyLiquidSettings(cfg *Config, val any) error {
	m, ok := val.(map[string]any)
	if !ok {
		return invalidSetting("liquid", "a mapping")
	}
	var err error
	if v, ok := m["strict_variables"]; ok {
		if cfg.StrictVariables, err = boolSetting("liquid.strict_variables", v); err != nil {
			return err
		}
	}
	if v, ok := m["strict_filters"]; ok {
		if cfg.StrictFilters, err = boolSetting("liquid.strict_filters", v); err != nil {
			return err
		}
	}
	return nil
}

func stringSetting(key string, val any) (string, error) {
	s, ok := val.(string)
	if !ok || s == "" {
		return "", invalidSetting(key, "a non-empty string")
	}
	return s, nil
}

func boolSetting(key string, val any) (bool, error) {
	b, ok := val.(bool)
	if !ok {
		return false, invalidSetting(key, "a boolean")
	}
	return b, nil
}

func patternsSetting(key string, val any) ([]string, error) {
	if s, ok := val.(string); ok {
		return []string{s}, nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil, invalidSetting(key, "a list of patterns")
	}
	patterns := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalidSetting(key, "a list of patterns")
		}
		patterns = append(patterns, s)
	}
	return patterns, nil
}

func invalidSetting(key, want string) *lperrors.Error {
	return lperrors.Errorf(lperrors.ErrConfig, "config key '%s' must be %s", key, want).WithPath(key)
}

func configError(path, msg string, cause error) *lperrors.Error {
	err := lperrors.NewError(lperrors.ErrConfig, msg).WithPath(path).WithName(path)
	if cause != nil {
		err.WithCause(cause)
	}
	return err
}

func decodeYAML(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeHCL reads a file of top-level attributes. Attribute expressions are
// evaluated without variables or functions.
func decodeHCL(path string, data []byte) (map[string]any, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	raw := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(&hcl.EvalContext{})
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute '%s': %w", name, err)
		}
		raw[name] = native
	}
	return raw, nil
}

// ctyToNative converts a cty value into the plain Go values produced by the
// YAML decoder. Whole numbers become ints.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			var n int64
			if err := gocty.FromCtyValue(v, &n); err == nil {
				return int(n), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, native)
		}
		return items, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			m[key.AsString()] = native
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}
