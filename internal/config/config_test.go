package config

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/pders01/treehole/internal/query"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
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

	if cfg.API.BaseURL != "http://115.190.240.212" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 100*time.Second {
		t.Errorf("API.Timeout = %v, want 100s", cfg.API.Timeout)
	}
	if cfg.API.AuthMode != "bearer" {
		t.Errorf("API.AuthMode = %s, want bearer", cfg.API.AuthMode)
	}

	if cfg.Feed.PageSize != 20 {
		t.Errorf("Feed.PageSize = %d, want 20", cfg.Feed.PageSize)
	}
	if cfg.Feed.Debounce != 300*time.Millisecond {
		t.Errorf("Feed.Debounce = %v, want 300ms", cfg.Feed.Debounce)
	}
	if got := cfg.Feed.WindowPolicy(); got != query.DefaultWindowPolicy() {
		t.Errorf("Feed.WindowPolicy() = %+v", got)
	}

	if cfg.Chat.Temperature != 0.7 || cfg.Chat.MaxTokens != 2000 {
		t.Errorf("Chat = %+v", cfg.Chat)
	}
	if cfg.Log.Level != "off" {
		t.Errorf("Log.Level = %s, want off", cfg.Log.Level)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Keys.Bindings.Quit != "q" {
		t.Errorf("Keys.Bindings.Quit = %s, want 'q'", cfg.Keys.Bindings.Quit)
	}
}

func TestWireKeysDefaultsMatchQuery(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.API.WireKeys(); !reflect.DeepEqual(got, query.DefaultWireKeys()) {
		t.Errorf("WireKeys() = %+v, want %+v", got, query.DefaultWireKeys())
	}

	cfg.API.Wire.Field = "orderBy"
	cfg.API.Wire.FieldLike = "likes"
	cfg.API.Wire.Page = ""
	keys := cfg.API.WireKeys()
	if keys.Field != "orderBy" || keys.Fields[query.FieldLike] != "likes" {
		t.Errorf("overrides not applied: %+v", keys)
	}
	if keys.Page != "page" {
		t.Errorf("empty wire name should fall back, got %q", keys.Page)
	}
}

func TestAllowedPageSizes(t *testing.T) {
	cfg := FeedConfig{PageSizes: []int{10, 33, 50}}
	if got := cfg.AllowedPageSizes(); !reflect.DeepEqual(got, []int{10, 50}) {
		t.Errorf("AllowedPageSizes() = %v", got)
	}

	cfg.PageSizes = nil
	if got := cfg.AllowedPageSizes(); !reflect.DeepEqual(got, query.PageSizes) {
		t.Errorf("AllowedPageSizes() = %v, want full set", got)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.Feed.Debounce != 300*time.Millisecond {
		t.Errorf("Feed.Debounce = %v, want 300ms", cfg.Feed.Debounce)
	}
	if !filepath.IsAbs(cfg.Database.Path) {
		t.Errorf("Database.Path = %s, want absolute", cfg.Database.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
base_url = "https://treehole.example.com"
auth_mode = "cookie"
timeout = "30s"

[api.wire]
like_range = "likes"

[database]
path = "/tmp/test.db"
timeout = "10s"

[feed]
page_size = 50
debounce = "150ms"
window_offset = 2
window_edges = false

[ui.colors]
primary = "#FF0000"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://treehole.example.com" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.AuthMode != "cookie" {
		t.Errorf("API.AuthMode = %s, want cookie", cfg.API.AuthMode)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.API.WireKeys().LikeRange != "likes" {
		t.Errorf("wire like_range = %s, want likes", cfg.API.WireKeys().LikeRange)
	}
	if cfg.API.Wire.Page != "page" {
		t.Errorf("untouched wire key lost its default: %q", cfg.API.Wire.Page)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	if cfg.Feed.PageSize != 50 {
		t.Errorf("Feed.PageSize = %d, want 50", cfg.Feed.PageSize)
	}
	if cfg.Feed.Debounce != 150*time.Millisecond {
		t.Errorf("Feed.Debounce = %v, want 150ms", cfg.Feed.Debounce)
	}
	if got := cfg.Feed.WindowPolicy(); got != (query.WindowPolicy{Offset: 2}) {
		t.Errorf("Feed.WindowPolicy() = %+v", got)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
	if cfg.UI.Colors.Secondary == "" {
		t.Error("UI.Colors.Secondary lost its default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TREEHOLE_API_BASE_URL", "https://env.example.com")
	t.Setenv("TREEHOLE_FEED_PAGE_SIZE", "100")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.Feed.PageSize != 100 {
		t.Errorf("Feed.PageSize = %d, want 100", cfg.Feed.PageSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"auth mode", "[api]\nauth_mode = \"basic\"\n"},
		{"page size", "[feed]\npage_size = 33\n"},
		{"timeout", "[api]\ntimeout = \"0s\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.Database.Path = "/test/path.db"
	cfg.Database.Timeout = 10 * time.Second
	cfg.Feed.Debounce = 500 * time.Millisecond
	cfg.Chat.Provider = "qwen"
	cfg.Keys.Modifier = "alt"
	cfg.Keys.Bindings.Quit = "x"

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if err := Save(cfg, savePath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.Feed.Debounce != cfg.Feed.Debounce {
		t.Errorf("Loaded Feed.Debounce = %v, want %v", loaded.Feed.Debounce, cfg.Feed.Debounce)
	}
	if loaded.Chat.Provider != "qwen" {
		t.Errorf("Loaded Chat.Provider = %s, want qwen", loaded.Chat.Provider)
	}
	if loaded.Keys.Modifier != cfg.Keys.Modifier {
		t.Errorf("Loaded Keys.Modifier = %s, want %s", loaded.Keys.Modifier, cfg.Keys.Modifier)
	}
	if loaded.Keys.Bindings.Quit != "x" {
		t.Errorf("Loaded Keys.Bindings.Quit = %s, want x", loaded.Keys.Bindings.Quit)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if err := GenerateDefaultConfig(configPath); err != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if !reflect.DeepEqual(cfg.Feed.PageSizes, query.PageSizes) {
		t.Errorf("Generated config has Feed.PageSizes = %v", cfg.Feed.PageSizes)
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
	if cfg.API.UserAgent != "treehole-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s", cfg.API.UserAgent)
	}
	if !cfg.API.AllowPrivate {
		t.Error("TestConfig should allow private API hosts")
	}
}
