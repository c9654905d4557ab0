package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/git-pkgs/pluginverifier/version"
)

// Repository is the query contract every plugin repository implements.
// Queries are read-only. Absence is reported as a nil plugin or an empty
// slice, never as an error; errors mean the repository could not answer.
type Repository interface {
	// PresentableName names the repository in messages.
	PresentableName() string

	// LastCompatiblePlugins returns the newest build of every plugin
	// compatible with host.
	LastCompatiblePlugins(ctx context.Context, host version.Version) ([]PluginInfo, error)

	// LastCompatibleVersionOfPlugin returns the newest build of id
	// compatible with host, or nil.
	LastCompatibleVersionOfPlugin(ctx context.Context, host version.Version, id string) (PluginInfo, error)

	// AllVersionsOfPlugin returns every known build of id.
	AllVersionsOfPlugin(ctx context.Context, id string) ([]PluginInfo, error)

	// PluginsDeclaringModule returns the plugins declaring module. A nil
	// host disables the compatibility filter.
	PluginsDeclaringModule(ctx context.Context, module string, host version.Version) ([]PluginInfo, error)

	// Plugin returns the build of id with exactly the given version, or nil.
	Plugin(ctx context.Context, id, version string) (PluginInfo, error)
}

// Factory creates a repository instance for a given base URL.
type Factory func(baseURL string, client *Client) Repository

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a repository factory to the global registry.
// kind names the repository protocol (e.g., "marketplace", "custom", "maven").
// defaultURL is used when New is called without a base URL.
func Register(kind string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = factory
	defaults[kind] = defaultURL
}

// New creates a new repository of the given kind.
// If baseURL is empty, the default URL is used.
func New(kind string, baseURL string, client *Client) (Repository, error) {
	mu.RLock()
	factory, ok := factories[kind]
	defaultURL := defaults[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown repository kind: %s", kind)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("repository kind %s needs a URL", kind)
	}

	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedKinds returns all registered repository kinds, sorted.
func SupportedKinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultURL returns the default URL for a repository kind.
func DefaultURL(kind string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[kind]
}
