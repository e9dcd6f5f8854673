package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the annotator home directory.
	DefaultDirName = ".annotator"

	// FixturesDirName is the subdirectory for test-mode fixture files.
	FixturesDirName = "fixtures"

	// PromptsDirName is the subdirectory checked for prompt template overrides.
	PromptsDirName = "prompts"

	// TracesDirName is the subdirectory for model call traces.
	TracesDirName = "traces"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the annotator home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.annotator).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// FixturesDir returns the directory holding test-mode inputs.
func (d *Dir) FixturesDir() string {
	return filepath.Join(d.path, FixturesDirName)
}

// FixturesPath returns the fixture file for a task.
func (d *Dir) FixturesPath(task string) string {
	return filepath.Join(d.FixturesDir(), task+".jsonl")
}

// PromptsDir returns the default prompt override directory.
func (d *Dir) PromptsDir() string {
	return filepath.Join(d.path, PromptsDirName)
}

// TracePath returns the default trace file for a task run.
func (d *Dir) TracePath(task string) string {
	return filepath.Join(d.path, TracesDirName, task+".jsonl")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create fixtures directory (this also creates the parent)
	if err := os.MkdirAll(d.FixturesDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// WriteFixtures writes lines to the task's fixture file, one per line, and
// returns its path.
func (d *Dir) WriteFixtures(task string, lines []string) (string, error) {
	if err := d.EnsureExists(); err != nil {
		return "", err
	}
	path := d.FixturesPath(task)
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fixtures for %s: %w", task, err)
	}
	return path, nil
}
