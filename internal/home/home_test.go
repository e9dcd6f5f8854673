package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-annotator")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-annotator" {
			t.Errorf("expected path /tmp/test-annotator, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-annotator")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-annotator/config.yaml"},
		{"FixturesDir", dir.FixturesDir(), "/tmp/test-annotator/fixtures"},
		{"FixturesPath", dir.FixturesPath("emotion"), "/tmp/test-annotator/fixtures/emotion.jsonl"},
		{"PromptsDir", dir.PromptsDir(), "/tmp/test-annotator/prompts"},
		{"TracePath", dir.TracePath("qa"), "/tmp/test-annotator/traces/qa.jsonl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(filepath.Join(tmpDir, "annotator-home"))

	if dir.Exists() {
		t.Error("expected directory to not exist initially")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("expected directory to exist after EnsureExists")
	}
	if _, err := os.Stat(dir.FixturesDir()); err != nil {
		t.Errorf("fixtures directory missing: %v", err)
	}
	if dir.ConfigExists() {
		t.Error("expected no config file yet")
	}
}

func TestDir_WriteFixtures(t *testing.T) {
	dir, _ := New(t.TempDir())

	path, err := dir.WriteFixtures("qa", []string{`{"id":0}`, `{"id":1}`})
	if err != nil {
		t.Fatalf("WriteFixtures() error = %v", err)
	}
	if path != dir.FixturesPath("qa") {
		t.Errorf("path = %s, want %s", path, dir.FixturesPath("qa"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(data), "{\"id\":0}\n{\"id\":1}\n"; got != want {
		t.Errorf("fixture file = %q, want %q", got, want)
	}
}
