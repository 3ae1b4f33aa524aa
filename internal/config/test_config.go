package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:0",
			Timeout:   5 * time.Second,
			UserAgent: "tendr-test/1.0",
			PageSize:  10,
		},
		Feed: FeedConfig{
			SearchDebounce:    300 * time.Millisecond,
			PrefetchThreshold: 2,
		},
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		UI:   defaultConfig().UI,
		Docs: defaultConfig().Docs,
		Keys: defaultConfig().Keys,
		Log:  LogConfig{Level: "off"},
	}
}
