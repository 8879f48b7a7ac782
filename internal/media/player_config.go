package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed players.toml
var playersTOML []byte

// TypeArgs holds the arguments for one media type.
type TypeArgs struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type PlayersConfig struct {
	Players map[string]PlayerDefinition `toml:"players"`
}

// PlayerDefinition describes how a viewer is invoked. Exec names the binary
// when it differs from the player's key (preview runs through open -a).
type PlayerDefinition struct {
	Description string    `toml:"description"`
	Exec        string    `toml:"exec,omitempty"`
	Platforms   []string  `toml:"platforms"`
	Image       *TypeArgs `toml:"image,omitempty"`
	Video       *TypeArgs `toml:"video,omitempty"`
}

type PlayerRegistry struct {
	players map[string]PlayerDefinition
	goos    string
}

// UserPlayersPath is where user definitions are looked up.
func UserPlayersPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "treehole", "players.toml")
}

// NewPlayerRegistry loads the built-in definitions and merges any user
// overrides found at the given paths.
func NewPlayerRegistry(userPaths ...string) (*PlayerRegistry, error) {
	var cfg PlayersConfig
	if err := toml.Unmarshal(playersTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing players.toml: %w", err)
	}
	if cfg.Players == nil {
		cfg.Players = make(map[string]PlayerDefinition)
	}

	r := &PlayerRegistry{players: cfg.Players, goos: runtime.GOOS}
	for _, p := range userPaths {
		if p == "" {
			continue
		}
		if err := r.merge(p); err != nil && !os.IsNotExist(err) {
			return r, err
		}
	}
	return r, nil
}

func (r *PlayerRegistry) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var user PlayersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, def := range user.Players {
		r.players[name] = def
	}
	return nil
}

// Has reports whether a definition exists for name.
func (r *PlayerRegistry) Has(name string) bool {
	_, ok := r.players[name]
	return ok
}

// Command returns the binary and argument list used to open link with the
// named player. Unknown players run as-is with the link as sole argument.
func (r *PlayerRegistry) Command(name string, t Type, link string) (string, []string, error) {
	player, ok := r.players[name]
	if !ok {
		return name, []string{link}, nil
	}
	if !slices.Contains(player.Platforms, r.goos) {
		return "", nil, fmt.Errorf("%s not supported on %s", name, r.goos)
	}

	var ta *TypeArgs
	switch t {
	case TypeImage:
		ta = player.Image
	case TypeVideo:
		ta = player.Video
	}
	if ta == nil {
		return "", nil, fmt.Errorf("%s doesn't support %s", name, t)
	}

	bin := name
	if player.Exec != "" {
		bin = player.Exec
	}
	args := append(slices.Clone(r.args(ta)), link)
	return bin, args, nil
}

func (r *PlayerRegistry) args(ta *TypeArgs) []string {
	switch r.goos {
	case "darwin":
		if len(ta.ArgsDarwin) > 0 {
			return ta.ArgsDarwin
		}
	case "linux":
		if len(ta.ArgsLinux) > 0 {
			return ta.ArgsLinux
		}
	case "windows":
		if len(ta.ArgsWindows) > 0 {
			return ta.ArgsWindows
		}
	}
	return ta.Args
}

// Binary returns the executable a player resolves to.
func (r *PlayerRegistry) Binary(name string) string {
	if p, ok := r.players[name]; ok && p.Exec != "" {
		return p.Exec
	}
	return name
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
