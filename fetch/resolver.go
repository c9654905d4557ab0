package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/git-pkgs/pluginverifier/client"
	"github.com/git-pkgs/pluginverifier/internal/core"
)

var ErrNoDownloadURL = errors.New("no download URL available")

// Resolver determines where a plugin's artifact can be fetched from.
type Resolver struct {
	mu   sync.RWMutex
	urls map[string]client.URLBuilder
}

// NewResolver creates a resolver with no repository URL builders.
func NewResolver() *Resolver {
	return &Resolver{urls: make(map[string]client.URLBuilder)}
}

// RegisterURLs sets the URL builder used for artifacts of the repository
// whose presentable name is repository and that carry no download URL.
func (r *Resolver) RegisterURLs(repository string, urls client.URLBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[repository] = urls
}

// ArtifactInfo is the location of a downloadable plugin artifact.
type ArtifactInfo struct {
	URL      string
	Filename string
}

// Resolve returns the artifact location for plugin. Local and bundled
// plugins resolve to file URLs.
func (r *Resolver) Resolve(plugin core.PluginInfo) (*ArtifactInfo, error) {
	info := plugin.Info()
	switch p := plugin.(type) {
	case *core.PluginArtifact:
		u := p.DownloadURL
		if u == "" {
			r.mu.RLock()
			builder, ok := r.urls[p.Repository]
			r.mu.RUnlock()
			if ok {
				u = builder.Download(info.PluginID, info.Version)
			}
		}
		if u == "" {
			return nil, fmt.Errorf("%s: %w", plugin.PresentableName(), ErrNoDownloadURL)
		}
		return &ArtifactInfo{URL: u, Filename: filenameFromURL(u, info)}, nil

	case *core.LocalPlugin:
		return fileArtifact(p.Path)

	case *core.BundledPlugin:
		if p.Path == "" {
			return nil, fmt.Errorf("%s: %w", plugin.PresentableName(), ErrNoDownloadURL)
		}
		return fileArtifact(p.Path)

	default:
		return nil, fmt.Errorf("%s: %w", plugin.PresentableName(), ErrNoDownloadURL)
	}
}

func fileArtifact(p string) (*ArtifactInfo, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	return &ArtifactInfo{URL: FileURL(abs), Filename: filepath.Base(abs)}, nil
}

// FileURL renders an absolute path as a file:// URL.
func FileURL(absPath string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String()
}

// filenameFromURL takes the last path element of rawURL. Download
// endpoints without a file name fall back to id-version.
func filenameFromURL(rawURL string, info core.Identity) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); strings.Contains(base, ".") {
			return base
		}
	}
	return sanitize(info.PluginID) + "-" + sanitize(info.Version)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
