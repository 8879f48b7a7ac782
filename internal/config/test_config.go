package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1"
	cfg.API.Timeout = 5 * time.Second
	cfg.API.UserAgent = "treehole-test/1.0"
	cfg.API.AllowPrivate = true
	cfg.Feed.Debounce = 10 * time.Millisecond
	cfg.Database = DatabaseConfig{
		Path:    ":memory:", // Use in-memory database for tests
		Timeout: 1 * time.Second,
	}
	cfg.Log.Level = "off"
	cfg.Log.File = ""
	return cfg
}
