package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pders01/treehole/internal/config"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrNoProvider  = errors.New("no chat provider")
	ErrEmptyAnswer = errors.New("provider returned an empty answer")
)

// Poster sends a JSON body to one of the server's agent endpoints.
type Poster interface {
	PostAgent(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// Options are the generation parameters passed to every provider.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func OptionsFromConfig(cfg config.ChatConfig) Options {
	return Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}

// Answer is a provider reply.
type Answer struct {
	Provider string
	Model    string
	Content  string
}

// Plugin defines a chat provider reachable through the server's agent proxy.
type Plugin interface {
	// Name identifies the provider in config and on the command line.
	Name() string

	// CanHandle returns true if this plugin serves the named provider.
	CanHandle(provider string) bool

	// Ask sends prompt and extracts the reply text.
	Ask(ctx context.Context, prompt string, opts Options, poster Poster) (*Answer, error)

	// Priority breaks ties when several plugins handle the same name
	// (higher wins).
	Priority() int
}

// Registry manages all registered providers.
type Registry struct {
	plugins []Plugin
	poster  Poster
	opts    Options
}

func NewRegistry(poster Poster, opts Options) *Registry {
	return &Registry{
		plugins: make([]Plugin, 0),
		poster:  poster,
		opts:    opts,
	}
}

// NewDefaultRegistry returns a registry with the built-in providers.
func NewDefaultRegistry(poster Poster, cfg config.ChatConfig) *Registry {
	r := NewRegistry(poster, OptionsFromConfig(cfg))
	r.Register(NewDoubao())
	r.Register(NewQwen())
	return r
}

func (r *Registry) Register(plugin Plugin) {
	r.plugins = append(r.plugins, plugin)
}

// FindPlugin returns the highest priority plugin that handles provider.
func (r *Registry) FindPlugin(provider string) Plugin {
	provider = strings.ToLower(strings.TrimSpace(provider))

	var best Plugin
	highest := -1
	for _, plugin := range r.plugins {
		if plugin.CanHandle(provider) && plugin.Priority() > highest {
			best = plugin
			highest = plugin.Priority()
		}
	}
	return best
}

// Ask routes prompt to the named provider.
func (r *Registry) Ask(ctx context.Context, provider, prompt string) (*Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	plugin := r.FindPlugin(provider)
	if plugin == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoProvider, provider)
	}

	answer, err := plugin.Ask(ctx, prompt, r.opts, r.poster)
	if err != nil {
		return nil, fmt.Errorf("asking %s: %w", plugin.Name(), err)
	}
	if strings.TrimSpace(answer.Content) == "" {
		return nil, fmt.Errorf("asking %s: %w", plugin.Name(), ErrEmptyAnswer)
	}
	return answer, nil
}

func (r *Registry) ListPlugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}
