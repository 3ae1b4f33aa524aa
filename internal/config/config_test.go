package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "rundll32",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		if opener != expectedOpener {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, expectedOpener, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.PageSize != 10 {
		t.Errorf("API.PageSize = %d, want 10", cfg.API.PageSize)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should not be empty")
	}
	if cfg.Feed.SearchDebounce != 300*time.Millisecond {
		t.Errorf("Feed.SearchDebounce = %v, want 300ms", cfg.Feed.SearchDebounce)
	}
	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}
	if cfg.Docs.DefaultOpener == "" {
		t.Error("Docs.DefaultOpener should not be empty")
	}
	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Log.Level != "off" {
		t.Errorf("Log.Level = %s, want 'off'", cfg.Log.Level)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Feed.SearchDebounce != 300*time.Millisecond {
		t.Errorf("Feed.SearchDebounce = %v, want 300ms", cfg.Feed.SearchDebounce)
	}
	if cfg.API.PageSize != 10 {
		t.Errorf("API.PageSize = %d, want 10", cfg.API.PageSize)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
base_url = "https://tenders.example.com/api"
page_size = 25
timeout = "3s"

[feed]
search_debounce = "500ms"

[database]
path = "/tmp/test.db"
timeout = "10s"

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://tenders.example.com/api" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.PageSize != 25 {
		t.Errorf("API.PageSize = %d, want 25", cfg.API.PageSize)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should keep its default when the section omits it")
	}
	if cfg.Feed.SearchDebounce != 500*time.Millisecond {
		t.Errorf("Feed.SearchDebounce = %v, want 500ms", cfg.Feed.SearchDebounce)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	if cfg.Database.Timeout != 10*time.Second {
		t.Errorf("Database.Timeout = %v, want 10s", cfg.Database.Timeout)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
}

func TestLoad_FloorsInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[api]
page_size = 0

[feed]
prefetch_threshold = -4
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.PageSize != 10 {
		t.Errorf("API.PageSize = %d, want floor of 10", cfg.API.PageSize)
	}
	if cfg.Feed.PrefetchThreshold != 0 {
		t.Errorf("Feed.PrefetchThreshold = %d, want 0", cfg.Feed.PrefetchThreshold)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.API.BaseURL = "https://save.example.com"
	cfg.API.PageSize = 50
	cfg.Feed.SearchDebounce = 750 * time.Millisecond
	cfg.Database.Path = "/test/path.db"
	cfg.Keys.Modifier = "alt"

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("Loaded API.BaseURL = %s, want %s", loaded.API.BaseURL, cfg.API.BaseURL)
	}
	if loaded.API.PageSize != 50 {
		t.Errorf("Loaded API.PageSize = %d, want 50", loaded.API.PageSize)
	}
	if loaded.Feed.SearchDebounce != 750*time.Millisecond {
		t.Errorf("Loaded Feed.SearchDebounce = %v, want 750ms", loaded.Feed.SearchDebounce)
	}
	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.Keys.Modifier != "alt" {
		t.Errorf("Loaded Keys.Modifier = %s, want alt", loaded.Keys.Modifier)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Feed.SearchDebounce != 300*time.Millisecond {
		t.Errorf("Generated config has Feed.SearchDebounce = %v", cfg.Feed.SearchDebounce)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := expandPath(""); got != "" {
		t.Errorf("expandPath(\"\") = %q", got)
	}
	if got := expandPath("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("expandPath(~/x.db) = %q", got)
	}
	if got := expandPath("rel.db"); !filepath.IsAbs(got) {
		t.Errorf("expandPath(rel.db) = %q, want absolute", got)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("TestConfig Database.Path = %s, want ':memory:'", cfg.Database.Path)
	}
	if cfg.API.UserAgent != "tendr-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'tendr-test/1.0'", cfg.API.UserAgent)
	}
}
