package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pders01/treehole/internal/query"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Chat     ChatConfig     `mapstructure:"chat"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	AuthMode     string        `mapstructure:"auth_mode"`
	AllowPrivate bool          `mapstructure:"allow_private"`
	Wire         WireConfig    `mapstructure:"wire"`
}

// WireConfig holds the server's query parameter names and sort-field values.
type WireConfig struct {
	Page         string `mapstructure:"page"`
	Size         string `mapstructure:"size"`
	Field        string `mapstructure:"field"`
	Sort         string `mapstructure:"sort"`
	LikeRange    string `mapstructure:"like_range"`
	FieldDate    string `mapstructure:"field_date"`
	FieldLike    string `mapstructure:"field_like"`
	FieldDislike string `mapstructure:"field_dislike"`
	FieldComment string `mapstructure:"field_comment"`
}

type FeedConfig struct {
	PageSize     int           `mapstructure:"page_size"`
	PageSizes    []int         `mapstructure:"page_sizes"`
	Debounce     time.Duration `mapstructure:"debounce"`
	WindowOffset int           `mapstructure:"window_offset"`
	WindowEdges  bool          `mapstructure:"window_edges"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ChatConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors"`
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

type MediaConfig struct {
	Darwin        MediaViewers `mapstructure:"darwin"`
	Linux         MediaViewers `mapstructure:"linux"`
	Windows       MediaViewers `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaViewers struct {
	Image []string `mapstructure:"image"`
	Video []string `mapstructure:"video"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit        string `mapstructure:"quit"`
	Search      string `mapstructure:"search"`
	Refresh     string `mapstructure:"refresh"`
	NextPage    string `mapstructure:"next_page"`
	PrevPage    string `mapstructure:"prev_page"`
	FirstPage   string `mapstructure:"first_page"`
	LastPage    string `mapstructure:"last_page"`
	CycleField  string `mapstructure:"cycle_field"`
	ToggleOrder string `mapstructure:"toggle_order"`
	CycleRange  string `mapstructure:"cycle_range"`
	CycleSize   string `mapstructure:"cycle_size"`
	Stats       string `mapstructure:"stats"`
	Aish        string `mapstructure:"aish"`
	Login       string `mapstructure:"login"`
	Author      string `mapstructure:"author"`
	OpenImage   string `mapstructure:"open_image"`
	Back        string `mapstructure:"back"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".treehole")
	wire := query.DefaultWireKeys()

	return &Config{
		API: APIConfig{
			BaseURL:   "http://115.190.240.212",
			Timeout:   100 * time.Second,
			UserAgent: "treehole/1.0 (https://github.com/pders01/treehole)",
			AuthMode:  "bearer",
			Wire: WireConfig{
				Page:         wire.Page,
				Size:         wire.Size,
				Field:        wire.Field,
				Sort:         wire.Sort,
				LikeRange:    wire.LikeRange,
				FieldDate:    wire.Fields[query.FieldDate],
				FieldLike:    wire.Fields[query.FieldLike],
				FieldDislike: wire.Fields[query.FieldDislike],
				FieldComment: wire.Fields[query.FieldComment],
			},
		},
		Feed: FeedConfig{
			PageSize:     query.DefaultPageSize,
			PageSizes:    append([]int(nil), query.PageSizes...),
			Debounce:     300 * time.Millisecond,
			WindowOffset: 3,
			WindowEdges:  true,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(homeDir, ".treehole.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Log: LogConfig{
			Level:      "off",
			File:       filepath.Join(dataDir, "treehole.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Chat: ChatConfig{
			Provider:    "doubao",
			Model:       "ep-20241208123456-abcde",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#EF4444",
				Success:   "#10B981",
			},
		},
		Media: MediaConfig{
			Darwin: MediaViewers{
				Image: []string{"preview", "open"},
				Video: []string{"iina", "mpv", "vlc"},
			},
			Linux: MediaViewers{
				Image: []string{"sxiv", "feh", "eog", "xdg-open"},
				Video: []string{"mpv", "vlc"},
			},
			Windows: MediaViewers{
				Image: []string{"start"},
				Video: []string{"mpv", "vlc"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:        "q",
				Search:      "s",
				Refresh:     "r",
				NextPage:    "n",
				PrevPage:    "p",
				FirstPage:   "g",
				LastPage:    "e",
				CycleField:  "f",
				ToggleOrder: "d",
				CycleRange:  "l",
				CycleSize:   "w",
				Stats:       "t",
				Aish:        "a",
				Login:       "u",
				Author:      "y",
				OpenImage:   "o",
				Back:        "esc",
			},
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
		return "start"
	default:
		return "open"
	}
}

// WireKeys converts the configured wire names into the query package's form.
func (c *APIConfig) WireKeys() query.WireKeys {
	keys := query.DefaultWireKeys()
	w := c.Wire
	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&keys.Page, w.Page)
	setIf(&keys.Size, w.Size)
	setIf(&keys.Field, w.Field)
	setIf(&keys.Sort, w.Sort)
	setIf(&keys.LikeRange, w.LikeRange)
	for field, v := range map[query.SortField]string{
		query.FieldDate:    w.FieldDate,
		query.FieldLike:    w.FieldLike,
		query.FieldDislike: w.FieldDislike,
		query.FieldComment: w.FieldComment,
	} {
		if v != "" {
			keys.Fields[field] = v
		}
	}
	return keys
}

// WindowPolicy is the pager policy selected by configuration.
func (c *FeedConfig) WindowPolicy() query.WindowPolicy {
	offset := c.WindowOffset
	if offset <= 0 {
		offset = query.DefaultWindowPolicy().Offset
	}
	return query.WindowPolicy{Offset: offset, Edges: c.WindowEdges}
}

// AllowedPageSizes drops anything outside the global enumerated set.
func (c *FeedConfig) AllowedPageSizes() []int {
	var sizes []int
	for _, s := range c.PageSizes {
		for _, known := range query.PageSizes {
			if s == known {
				sizes = append(sizes, s)
				break
			}
		}
	}
	if len(sizes) == 0 {
		return append([]int(nil), query.PageSizes...)
	}
	return sizes
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "treehole")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TREEHOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	expandPaths(&config)

	return &config, nil
}

// setDefaults registers every leaf key so nested values can be overridden
// individually from the file or the environment.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

func flatten(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"api.base_url":      cfg.API.BaseURL,
		"api.timeout":       cfg.API.Timeout,
		"api.user_agent":    cfg.API.UserAgent,
		"api.auth_mode":     cfg.API.AuthMode,
		"api.allow_private": cfg.API.AllowPrivate,

		"api.wire.page":          cfg.API.Wire.Page,
		"api.wire.size":          cfg.API.Wire.Size,
		"api.wire.field":         cfg.API.Wire.Field,
		"api.wire.sort":          cfg.API.Wire.Sort,
		"api.wire.like_range":    cfg.API.Wire.LikeRange,
		"api.wire.field_date":    cfg.API.Wire.FieldDate,
		"api.wire.field_like":    cfg.API.Wire.FieldLike,
		"api.wire.field_dislike": cfg.API.Wire.FieldDislike,
		"api.wire.field_comment": cfg.API.Wire.FieldComment,

		"feed.page_size":     cfg.Feed.PageSize,
		"feed.page_sizes":    cfg.Feed.PageSizes,
		"feed.debounce":      cfg.Feed.Debounce,
		"feed.window_offset": cfg.Feed.WindowOffset,
		"feed.window_edges":  cfg.Feed.WindowEdges,

		"database.path":         cfg.Database.Path,
		"database.timeout":      cfg.Database.Timeout,
		"database.search_index": cfg.Database.SearchIndex,

		"log.level":        cfg.Log.Level,
		"log.file":         cfg.Log.File,
		"log.max_size_mb":  cfg.Log.MaxSizeMB,
		"log.max_backups":  cfg.Log.MaxBackups,
		"log.max_age_days": cfg.Log.MaxAgeDays,

		"chat.provider":    cfg.Chat.Provider,
		"chat.model":       cfg.Chat.Model,
		"chat.temperature": cfg.Chat.Temperature,
		"chat.max_tokens":  cfg.Chat.MaxTokens,

		"ui.colors.primary":   cfg.UI.Colors.Primary,
		"ui.colors.secondary": cfg.UI.Colors.Secondary,
		"ui.colors.accent":    cfg.UI.Colors.Accent,
		"ui.colors.text":      cfg.UI.Colors.Text,
		"ui.colors.muted":     cfg.UI.Colors.Muted,
		"ui.colors.error":     cfg.UI.Colors.Error,
		"ui.colors.success":   cfg.UI.Colors.Success,

		"media.darwin.image":   cfg.Media.Darwin.Image,
		"media.darwin.video":   cfg.Media.Darwin.Video,
		"media.linux.image":    cfg.Media.Linux.Image,
		"media.linux.video":    cfg.Media.Linux.Video,
		"media.windows.image":  cfg.Media.Windows.Image,
		"media.windows.video":  cfg.Media.Windows.Video,
		"media.default_opener": cfg.Media.DefaultOpener,

		"keys.modifier":              cfg.Keys.Modifier,
		"keys.bindings.quit":         cfg.Keys.Bindings.Quit,
		"keys.bindings.search":       cfg.Keys.Bindings.Search,
		"keys.bindings.refresh":      cfg.Keys.Bindings.Refresh,
		"keys.bindings.next_page":    cfg.Keys.Bindings.NextPage,
		"keys.bindings.prev_page":    cfg.Keys.Bindings.PrevPage,
		"keys.bindings.first_page":   cfg.Keys.Bindings.FirstPage,
		"keys.bindings.last_page":    cfg.Keys.Bindings.LastPage,
		"keys.bindings.cycle_field":  cfg.Keys.Bindings.CycleField,
		"keys.bindings.toggle_order": cfg.Keys.Bindings.ToggleOrder,
		"keys.bindings.cycle_range":  cfg.Keys.Bindings.CycleRange,
		"keys.bindings.cycle_size":   cfg.Keys.Bindings.CycleSize,
		"keys.bindings.stats":        cfg.Keys.Bindings.Stats,
		"keys.bindings.aish":         cfg.Keys.Bindings.Aish,
		"keys.bindings.login":        cfg.Keys.Bindings.Login,
		"keys.bindings.author":       cfg.Keys.Bindings.Author,
		"keys.bindings.open_image":   cfg.Keys.Bindings.OpenImage,
		"keys.bindings.back":         cfg.Keys.Bindings.Back,
	}
}

func validate(cfg *Config) error {
	switch cfg.API.AuthMode {
	case "bearer", "cookie":
	default:
		return fmt.Errorf("invalid api.auth_mode %q (want bearer or cookie)", cfg.API.AuthMode)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if cfg.Feed.Debounce < 0 {
		return fmt.Errorf("feed.debounce must not be negative")
	}
	sizes := cfg.Feed.AllowedPageSizes()
	found := false
	for _, s := range sizes {
		if s == cfg.Feed.PageSize {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("feed.page_size %d is not one of %v", cfg.Feed.PageSize, sizes)
	}
	return nil
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
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	for key, value := range flatten(config) {
		// Durations read better as "300ms" than as nanoseconds.
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
