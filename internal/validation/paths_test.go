package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := DataPath("~/.tendr/tendr.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(home, ".tendr", "tendr.db")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if info, err := os.Stat(filepath.Dir(want)); err != nil || !info.IsDir() {
		t.Errorf("expected parent directory to be created, stat err: %v", err)
	}
}

func TestDataPath_Absolute(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "index.bleve")

	got, err := DataPath(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != target {
		t.Errorf("expected %q, got %q", target, got)
	}
}

func TestDataPath_Relative(t *testing.T) {
	t.Chdir(t.TempDir())

	got, err := DataPath("data/tendr.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %q", got)
	}
}

func TestDataPath_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{"empty", "", "cannot be empty"},
		{"blank", "   ", "cannot be empty"},
		{"null byte", "/tmp/a\x00b", "null bytes"},
		{"control char", "/tmp/a\x01b", "control characters"},
		{"traversal", "/tmp/../etc/passwd", "directory traversal"},
		{"other user home", "~root/tendr.db", "invalid tilde"},
		{"too long", "/" + strings.Repeat("a", maxPathLength+1), "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DataPath(tt.path)
			if err == nil {
				t.Fatalf("expected error for %q", tt.path)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}
