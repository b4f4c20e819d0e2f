// Package testutil provides testing utilities for liquidpage.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot represents a parsed snapshot file.
type Snapshot struct {
	Description string `yaml:"description"`
	InputFile   string `yaml:"input_file"`
	// Error is the expected error kind, e.g. UndefinedVariableError. When
	// set, Expected holds the expected error message.
	Error    string `yaml:"error"`
	Expected string `yaml:"-"`
}

// ParseSnapshotFile parses a .snap file.
func ParseSnapshotFile(path string) (*Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(string(content))
}

// ParseSnapshot parses the content of a .snap file.
// Format: ---\n<yaml metadata>\n---\n<expected output>
func ParseSnapshot(content string) (*Snapshot, error) {
	snap := &Snapshot{}

	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		snap.Expected = content
		return snap, nil
	}
	parts := strings.SplitN(rest, "\n---\n", 2)
	if len(parts) < 2 {
		snap.Expected = content
		return snap, nil
	}
	if err := yaml.Unmarshal([]byte(parts[0]), snap); err != nil {
		return nil, err
	}
	snap.Expected = parts[1]
	return snap, nil
}

// LoadSkipList loads a skip list file (one test name per line, # for comments).
func LoadSkipList(path string) (map[string]bool, error) {
	skipList := make(map[string]bool)

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return skipList, nil
	}
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		skipList[line] = true
	}

	return skipList, nil
}

// FindSnapshotFile finds the snapshot file for a given input file.
func FindSnapshotFile(snapshotDir, inputFile string) string {
	return filepath.Join(snapshotDir, filepath.Base(inputFile)+".snap")
}
