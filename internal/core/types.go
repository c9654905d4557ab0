// Package core provides plugin descriptors, the repository contract, and
// the repository registry.
package core

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/git-pkgs/pluginverifier/version"
)

// Identity is what every plugin descriptor carries.
type Identity struct {
	PluginID       string
	PluginName     string
	Version        string
	Vendor         string
	Compatibility  version.Range
	DefinedModules []string
}

// IsCompatibleWith reports whether v lies within the declared range.
func (i Identity) IsCompatibleWith(v version.Version) bool {
	return version.IsCompatible(v, i.Compatibility)
}

// PresentableSinceUntil renders the compatibility range for humans.
func (i Identity) PresentableSinceUntil() string {
	return i.Compatibility.String()
}

// DefinesModule reports whether the plugin declares module.
func (i Identity) DefinesModule(module string) bool {
	return slices.Contains(i.DefinedModules, module)
}

// PluginInfo is implemented by LocalPlugin, BundledPlugin and PluginArtifact.
type PluginInfo interface {
	Info() Identity
	// Key identifies the plugin for caching. Two descriptors with the
	// same key describe the same plugin files.
	Key() string
	PresentableName() string
	isPluginInfo()
}

// LocalPlugin is a plugin found on the local file system.
type LocalPlugin struct {
	Identity
	Path string
}

func (p *LocalPlugin) Info() Identity { return p.Identity }
func (p *LocalPlugin) Key() string    { return "local:" + p.Path }
func (p *LocalPlugin) isPluginInfo()  {}

func (p *LocalPlugin) PresentableName() string {
	return p.PluginID + " " + p.Version
}

func (p *LocalPlugin) String() string { return p.PresentableName() }

// BundledPlugin ships inside a host build. It only has meaning within the
// process that loaded the host, so it cannot be marshalled.
type BundledPlugin struct {
	Identity
	HostVersion version.Version
	Path        string
}

func (p *BundledPlugin) Info() Identity { return p.Identity }
func (p *BundledPlugin) isPluginInfo()  {}

func (p *BundledPlugin) Key() string {
	host := ""
	if p.HostVersion != nil {
		host = p.HostVersion.String()
	}
	return fmt.Sprintf("bundled:%s:%s:%s", host, p.PluginID, p.Version)
}

func (p *BundledPlugin) PresentableName() string {
	return p.PluginID + " " + p.Version
}

func (p *BundledPlugin) String() string { return p.PresentableName() }

// MarshalJSON always fails with ErrNotSerializable.
func (p *BundledPlugin) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("bundled plugin %s: %w", p.PluginID, ErrNotSerializable)
}

var _ json.Marshaler = (*BundledPlugin)(nil)

// PluginArtifact is a plugin hosted by a remote repository. Its identity is
// the pair of plugin id and version.
type PluginArtifact struct {
	Identity
	Repository    string
	DownloadURL   string
	BrowserURL    string
	SourceCodeURL string
	Tags          []string
	UpdateID      int
}

func (p *PluginArtifact) Info() Identity { return p.Identity }
func (p *PluginArtifact) Key() string    { return p.PluginID + ":" + p.Version }
func (p *PluginArtifact) isPluginInfo()  {}

func (p *PluginArtifact) PresentableName() string {
	return p.PluginID + ":" + p.Version
}

func (p *PluginArtifact) String() string { return p.PresentableName() }

// Host is a build that plugins are verified against, with the plugins it
// bundles.
type Host struct {
	Version version.Version
	Plugins []*BundledPlugin
}

// FindByID returns the bundled plugin with the given id.
func (h *Host) FindByID(id string) (*BundledPlugin, bool) {
	for _, p := range h.Plugins {
		if p.PluginID == id {
			return p, true
		}
	}
	return nil, false
}

// FindByModule returns the bundled plugin declaring module.
func (h *Host) FindByModule(module string) (*BundledPlugin, bool) {
	for _, p := range h.Plugins {
		if p.DefinesModule(module) {
			return p, true
		}
	}
	return nil, false
}
