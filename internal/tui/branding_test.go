package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/pders01/treehole/internal/config"
)

func TestShowBanner(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	ShowBanner("1.0.0-test")

	w.Close()
	os.Stdout = old
	out := <-outC

	if !strings.Contains(out, "树洞 terminal client") {
		t.Errorf("Expected banner to contain the tagline, got: %s", out)
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("Expected banner to contain border characters, got: %s", out)
	}
	if !strings.Contains(out, "◆") {
		t.Errorf("Expected banner to contain separator symbols, got: %s", out)
	}
	if !strings.Contains(out, "v1.0.0-test") {
		t.Errorf("Expected banner to contain version 'v1.0.0-test', got: %s", out)
	}
}

func TestBannerDevVersion(t *testing.T) {
	out := Banner("dev")
	if strings.Contains(out, "vdev") {
		t.Errorf("dev builds should not get a version tag, got: %s", out)
	}
}

func TestGetCompactBanner(t *testing.T) {
	message := "Test message"
	result := GetCompactBanner(message)

	if !strings.Contains(result, message) {
		t.Errorf("Expected compact banner to contain '%s', got: %s", message, result)
	}
	if !strings.Contains(result, "▀█▀") {
		t.Errorf("Expected compact banner to contain logo elements, got: %s", result)
	}
}

func TestGetEmptyFeedMessage(t *testing.T) {
	if !strings.Contains(GetEmptyFeedMessage(), "No posts on this page") {
		t.Errorf("unexpected empty feed message: %s", GetEmptyFeedMessage())
	}
}

func TestLogoConstants(t *testing.T) {
	if len(LogoLines) != 3 {
		t.Errorf("Expected 3 logo lines, got %d", len(LogoLines))
	}
	if len(BannerColors) != 4 {
		t.Errorf("Expected 4 banner colors, got %d", len(BannerColors))
	}
}

func TestApplyTheme(t *testing.T) {
	defer ApplyTheme(config.TestConfig().UI.Colors)

	ApplyTheme(config.UIColors{Primary: "#000001"})
	if PrimaryColor != "#000001" {
		t.Errorf("primary color not applied: %s", PrimaryColor)
	}
	if SecondaryColor == "" {
		t.Error("empty entries should keep their defaults")
	}
}
