package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathHandler validates the local database and index locations.
type PathHandler struct {
	// BaseDirs restricts paths to these directories; empty allows any
	BaseDirs []string
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

// NewSecurePathHandler confines paths to the user's treehole directories
// and the temp dir.
func NewSecurePathHandler() *PathHandler {
	homeDir, _ := os.UserHomeDir()
	return &PathHandler{
		BaseDirs: []string{
			filepath.Join(homeDir, ".treehole"),
			filepath.Join(homeDir, ".treehole.db"),
			filepath.Join(homeDir, ".config", "treehole"),
			os.TempDir(),
		},
		MaxPathLength: 4096,
	}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{MaxPathLength: 4096}
}

// Clean expands a leading ~, makes path absolute and rejects control
// characters, traversal and paths outside the base directories.
func (ph *PathHandler) Clean(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if ph.MaxPathLength > 0 && len(path) > ph.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", ph.MaxPathLength)
	}
	for _, r := range path {
		if r < 32 {
			return "", fmt.Errorf("path contains control characters")
		}
	}
	for _, part := range strings.FieldsFunc(path, isSeparator) {
		if part == ".." {
			return "", fmt.Errorf("path contains traversal")
		}
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("path normalization failed: %w", err)
	}

	if len(ph.BaseDirs) == 0 {
		return abs, nil
	}
	for _, base := range ph.BaseDirs {
		if base == "" {
			continue
		}
		if abs == base || strings.HasPrefix(abs, base+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("path %s is outside the allowed directories", abs)
}

// DBPath returns the validated database file path, defaulting to ~/.treehole.db.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	if userPath == "" {
		userPath = "~/.treehole.db"
	}
	path, err := ph.Clean(userPath)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

// IndexPath returns the validated bleve index directory.
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		userPath = "~/.treehole/index.bleve"
	}
	path, err := ph.Clean(userPath)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return path, nil
}

// EnsureParent creates the directory that will hold path.
func (ph *PathHandler) EnsureParent(path string) error {
	clean, err := ph.Clean(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(clean), 0o700)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
