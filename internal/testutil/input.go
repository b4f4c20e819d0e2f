package testutil

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestInput represents a parsed test input file.
type TestInput struct {
	Context  map[string]any // YAML context variables
	Settings *TestSettings  // Optional $settings from context
	Template string         // Template source after ---
}

// TestSettings represents the $settings field in test inputs.
type TestSettings struct {
	StrictVariables bool   `yaml:"strict_variables"`
	StrictFilters   bool   `yaml:"strict_filters"`
	MaxIterations   uint64 `yaml:"max_iterations"`
}

// ParseTestInputFile reads and parses a test input file.
func ParseTestInputFile(path string) (*TestInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTestInput(string(content))
}

// ParseTestInput parses test input content.
// Format: YAML context\n---\ntemplate
func ParseTestInput(content string) (*TestInput, error) {
	input := &TestInput{
		Context: make(map[string]any),
	}

	var parts []string
	if rest, ok := strings.CutPrefix(content, "---\n"); ok {
		parts = []string{"", rest}
	} else {
		parts = strings.SplitN(content, "\n---\n", 2)
	}

	if strings.TrimSpace(parts[0]) != "" {
		if err := yaml.Unmarshal([]byte(parts[0]), &input.Context); err != nil {
			return nil, err
		}

		// $settings configures the render and is not a template variable
		if settingsRaw, ok := input.Context["$settings"]; ok {
			raw, err := yaml.Marshal(settingsRaw)
			if err != nil {
				return nil, err
			}
			input.Settings = &TestSettings{}
			if err := yaml.Unmarshal(raw, input.Settings); err != nil {
				return nil, err
			}
			delete(input.Context, "$settings")
		}
	}

	if len(parts) >= 2 {
		input.Template = parts[1]
	}

	return input, nil
}

// GlobTestInputs finds all test input files matching a pattern.
func GlobTestInputs(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// TestResult represents the result of running a single test.
type TestResult struct {
	Name     string
	Expected string
	Actual   string
}

// Diff returns a simple diff between expected and actual output.
func (r *TestResult) Diff() string {
	if r.Expected == r.Actual {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== Expected ===\n")
	sb.WriteString(r.Expected)
	if !strings.HasSuffix(r.Expected, "\n") {
		sb.WriteString("⏎\n") // Show missing newline
	}
	sb.WriteString("=== Actual ===\n")
	sb.WriteString(r.Actual)
	if !strings.HasSuffix(r.Actual, "\n") {
		sb.WriteString("⏎\n")
	}
	sb.WriteString("=== End ===\n")
	return sb.String()
}
