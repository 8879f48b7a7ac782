package media

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/debuglog"
)

var ErrNoViewer = errors.New("no application found to open link")

// Launcher opens post images and linked media in an external viewer.
type Launcher struct {
	imageViewer   string
	videoViewer   string
	defaultOpener string
	registry      *PlayerRegistry
	detector      *TypeDetector

	available func(string) bool
	start     func(name string, args ...string) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewPlayerRegistry(UserPlayersPath())
	if err != nil {
		debuglog.Warnf("player definitions: %v", err)
		if registry == nil {
			registry = &PlayerRegistry{players: make(map[string]PlayerDefinition), goos: runtime.GOOS}
		}
	}

	detector, err := NewTypeDetector()
	if err != nil {
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	l := &Launcher{
		registry:  registry,
		detector:  detector,
		available: lookPath,
		start:     startDetached,
	}
	l.configure(cfg)
	return l
}

func (l *Launcher) configure(cfg *config.Config) {
	l.defaultOpener = cfg.Media.DefaultOpener
	if l.defaultOpener == "" {
		l.defaultOpener = l.detector.GetDefaultOpener()
	}

	var viewers config.MediaViewers
	switch l.registry.goos {
	case "linux":
		viewers = cfg.Media.Linux
	case "windows":
		viewers = cfg.Media.Windows
	default:
		viewers = cfg.Media.Darwin
	}

	l.imageViewer = l.findViewer(viewers.Image)
	l.videoViewer = l.findViewer(viewers.Video)
}

func (l *Launcher) findViewer(candidates []string) string {
	for _, name := range candidates {
		if l.available(l.registry.Binary(name)) {
			return name
		}
	}
	return l.defaultOpener
}

// Open launches the viewer matching link's media type.
func (l *Launcher) Open(link string) error {
	t := l.detector.DetectType(link)

	viewer := l.defaultOpener
	switch t {
	case TypeImage:
		viewer = l.imageViewer
	case TypeVideo:
		viewer = l.videoViewer
	}
	if viewer == "" {
		return ErrNoViewer
	}

	bin, args, err := l.registry.Command(viewer, t, link)
	if err != nil {
		debuglog.Debugf("viewer %s: %v, using %s", viewer, err, l.defaultOpener)
		if l.defaultOpener == "" {
			return ErrNoViewer
		}
		bin, args = l.defaultOpener, []string{link}
	}

	if err := l.start(bin, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", bin, err)
	}
	return nil
}

// Viewers returns the resolved image and video viewer names.
func (l *Launcher) Viewers() (image, video string) {
	return l.imageViewer, l.videoViewer
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
