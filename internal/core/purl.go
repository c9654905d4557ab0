package core

import (
	"context"
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the package URL type used for marketplace plugins.
const PURLType = "jetbrains"

// PURL wraps packageurl.PackageURL with plugin-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// PluginID returns the plugin id in the form repositories expect.
// Maven coordinates become "group:artifact".
func (p PURL) PluginID() string {
	if p.Namespace == "" {
		return p.Name
	}
	if p.Type == packageurl.TypeMaven {
		return p.Namespace + ":" + p.Name
	}
	return p.Namespace + "/" + p.Name
}

// RepositoryKind maps the PURL type to a registered repository kind.
func (p PURL) RepositoryKind() string {
	if kind := p.Qualifiers.Map()["repository_kind"]; kind != "" {
		return kind
	}
	if p.Type == PURLType {
		return "marketplace"
	}
	return p.Type
}

// ParsePURL parses a Package URL string into its components.
// Supports both plugin PURLs (pkg:jetbrains/org.example) and version PURLs
// (pkg:jetbrains/org.example@1.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// PluginPURL renders the package URL of a plugin.
func PluginPURL(plugin PluginInfo) string {
	info := plugin.Info()
	if group, artifact, ok := strings.Cut(info.PluginID, ":"); ok {
		return packageurl.NewPackageURL(packageurl.TypeMaven, group, artifact, info.Version, nil, "").ToString()
	}
	return packageurl.NewPackageURL(PURLType, "", info.PluginID, info.Version, nil, "").ToString()
}

// NewFromPURL creates a repository from a PURL and returns the parsed components.
// Returns the repository, plugin id, and version (empty if not in PURL).
// A repository_url qualifier overrides the default repository URL.
func NewFromPURL(purl string, client *Client) (Repository, string, string, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, "", "", err
	}

	baseURL := p.Qualifiers.Map()["repository_url"]

	repo, err := New(p.RepositoryKind(), baseURL, client)
	if err != nil {
		return nil, "", "", err
	}

	return repo, p.PluginID(), p.Version, nil
}

// FetchPluginFromPURL looks up the exact plugin build named by a PURL.
// Returns an error if the PURL doesn't include a version.
func FetchPluginFromPURL(ctx context.Context, purl string, client *Client) (PluginInfo, error) {
	repo, id, v, err := NewFromPURL(purl, client)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, fmt.Errorf("PURL has no version: %s", purl)
	}

	plugin, err := repo.Plugin(ctx, id, v)
	if err != nil {
		return nil, err
	}
	if plugin == nil {
		return nil, &NotFoundError{Repository: repo.PresentableName(), PluginID: id, Version: v}
	}
	return plugin, nil
}
