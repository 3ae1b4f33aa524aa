package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Database DatabaseConfig `mapstructure:"database"`
	UI       UIConfig       `mapstructure:"ui"`
	Docs     DocsConfig     `mapstructure:"docs"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	PageSize      int           `mapstructure:"page_size"`
	AllowInsecure bool          `mapstructure:"allow_insecure"`
}

type FeedConfig struct {
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	// PrefetchThreshold is how many rows before the end of the list the
	// next page is requested.
	PrefetchThreshold int `mapstructure:"prefetch_threshold"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type UIConfig struct {
	Colors UIColors     `mapstructure:"colors"`
	Detail DetailConfig `mapstructure:"detail"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type DetailConfig struct {
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type DocsConfig struct {
	DefaultOpener string `mapstructure:"default_opener"`
}

type KeyConfig struct {
	Modifier string `mapstructure:"modifier"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".tendr")

	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   15 * time.Second,
			UserAgent: "tendr/1.0 (https://github.com/pders01/tendr)",
			PageSize:  10,
		},
		Feed: FeedConfig{
			SearchDebounce:    300 * time.Millisecond,
			PrefetchThreshold: 3,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "tendr.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			Detail: DetailConfig{
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Docs: DocsConfig{
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
		},
		Log: LogConfig{
			Level: "off",
			Path:  filepath.Join(dataDir, "tendr.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "rundll32"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("api", cfg.API)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("docs", cfg.Docs)
	v.SetDefault("keys", cfg.Keys)
	v.SetDefault("log", cfg.Log)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "tendr")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TENDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decoding over the defaults keeps keys a partial section leaves out.
	config := defaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(config)
	applyFloors(config)

	return config, nil
}

// applyFloors replaces values that would make the dashboard unusable.
func applyFloors(cfg *Config) {
	if cfg.API.PageSize <= 0 {
		cfg.API.PageSize = 10
	}
	if cfg.Feed.SearchDebounce < 0 {
		cfg.Feed.SearchDebounce = 0
	}
	if cfg.Feed.PrefetchThreshold < 0 {
		cfg.Feed.PrefetchThreshold = 0
	}
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings keep the TOML readable.
	apiCfg := map[string]interface{}{
		"base_url":       config.API.BaseURL,
		"token":          config.API.Token,
		"timeout":        config.API.Timeout.String(),
		"user_agent":     config.API.UserAgent,
		"page_size":      config.API.PageSize,
		"allow_insecure": config.API.AllowInsecure,
	}

	feedCfg := map[string]interface{}{
		"search_debounce":    config.Feed.SearchDebounce.String(),
		"prefetch_threshold": config.Feed.PrefetchThreshold,
	}

	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	v.Set("api", apiCfg)
	v.Set("feed", feedCfg)
	v.Set("database", dbCfg)
	v.Set("ui", config.UI)
	v.Set("docs", config.Docs)
	v.Set("keys", config.Keys)
	v.Set("log", config.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// DefaultPath is where Load looks first when no explicit path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tendr", "config.toml")
}
