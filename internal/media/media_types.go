package media

import (
	_ "embed"
	"net/url"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type Type int

const (
	TypeUnknown Type = iota
	TypeImage
	TypeVideo
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type TypesConfig struct {
	Image     TypeConfig                `toml:"image"`
	Video     TypeConfig                `toml:"video"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if _, err := toml.Decode(string(mediaTypesTOML), &config); err != nil {
		return nil, err
	}
	return &TypeDetector{config: &config}, nil
}

func (d *TypeDetector) DetectType(link string) Type {
	lower := strings.ToLower(link)

	p := lower
	if u, err := url.Parse(lower); err == nil {
		p = u.Path
	}
	if ext := strings.TrimPrefix(path.Ext(p), "."); ext != "" {
		if slices.Contains(d.config.Image.Extensions, ext) {
			return TypeImage
		}
		if slices.Contains(d.config.Video.Extensions, ext) {
			return TypeVideo
		}
	}

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if matchesPattern(lower, d.config.Image.URLPatterns) {
			return TypeImage
		}
		if matchesPattern(lower, d.config.Video.URLPatterns) {
			return TypeVideo
		}
	}

	return TypeUnknown
}

func (d *TypeDetector) GetDefaultOpener() string {
	if platformConfig, ok := d.config.Platforms[runtime.GOOS]; ok {
		return platformConfig.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok {
		return fallback.DefaultOpener
	}
	return "open"
}

func matchesPattern(link string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(link, pattern) {
			return true
		}
	}
	return false
}
