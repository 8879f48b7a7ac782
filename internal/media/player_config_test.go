package media

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPlayerRegistryCommand(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatalf("NewPlayerRegistry() error = %v", err)
	}
	registry.goos = "linux"

	tests := []struct {
		name     string
		player   string
		mtype    Type
		wantBin  string
		wantArgs []string
		wantErr  bool
	}{
		{name: "mpv video", player: "mpv", mtype: TypeVideo, wantBin: "mpv", wantArgs: []string{"--really-quiet", "u"}},
		{name: "mpv image", player: "mpv", mtype: TypeImage, wantBin: "mpv", wantArgs: []string{"--keep-open=yes", "u"}},
		{name: "sxiv image", player: "sxiv", mtype: TypeImage, wantBin: "sxiv", wantArgs: []string{"-a", "u"}},
		{name: "sxiv has no video", player: "sxiv", mtype: TypeVideo, wantErr: true},
		{name: "iina not on linux", player: "iina", mtype: TypeVideo, wantErr: true},
		{name: "undefined player", player: "myviewer", mtype: TypeImage, wantBin: "myviewer", wantArgs: []string{"u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, args, err := registry.Command(tt.player, tt.mtype, "u")
			if tt.wantErr {
				if err == nil {
					t.Errorf("Command() expected error, got %s %v", bin, args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if bin != tt.wantBin || !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Command() = %s %v, want %s %v", bin, args, tt.wantBin, tt.wantArgs)
			}
		})
	}
}

func TestPlayerRegistryArgsNotShared(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatalf("NewPlayerRegistry() error = %v", err)
	}
	registry.goos = "linux"

	_, first, _ := registry.Command("feh", TypeImage, "a")
	_, second, _ := registry.Command("feh", TypeImage, "b")
	if first[len(first)-1] != "a" || second[len(second)-1] != "b" {
		t.Errorf("args leaked between calls: %v %v", first, second)
	}
}

func TestPlayerRegistryUserOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.toml")
	content := `
[players.feh]
description = "custom feh"
platforms = ["linux"]
[players.feh.image]
args = ["--fullscreen"]

[players.imv]
description = "imv"
platforms = ["linux"]
[players.imv.image]
args = []
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	registry, err := NewPlayerRegistry(path, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("NewPlayerRegistry() error = %v", err)
	}
	registry.goos = "linux"

	_, args, err := registry.Command("feh", TypeImage, "u")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if !reflect.DeepEqual(args, []string{"--fullscreen", "u"}) {
		t.Errorf("override args = %v", args)
	}
	if !registry.Has("imv") || !registry.Has("mpv") {
		t.Error("expected merged registry to contain both user and built-in players")
	}
}

func TestPlayerRegistryBadUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.toml")
	if err := os.WriteFile(path, []byte("[players.feh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry, err := NewPlayerRegistry(path)
	if err == nil {
		t.Error("expected parse error for malformed user file")
	}
	if registry == nil || !registry.Has("mpv") {
		t.Error("built-in players should survive a bad user file")
	}
}

func TestBinary(t *testing.T) {
	registry, err := NewPlayerRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if got := registry.Binary("preview"); got != "open" {
		t.Errorf("Binary(preview) = %q, want open", got)
	}
	if got := registry.Binary("mpv"); got != "mpv" {
		t.Errorf("Binary(mpv) = %q, want mpv", got)
	}
}
