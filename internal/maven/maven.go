// Package maven provides a repository of plugins and plugin-API
// distributions published to a Maven repository.
//
// A plugin id is either an artifact id in the default group or full
// "group:artifact" coordinates. Versions come from maven-metadata.xml.
// Compatibility bounds come from the since-build and until-build
// properties of each version's POM, inherited through parent POMs.
package maven

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

const (
	DefaultURL   = "https://plugins.jetbrains.com/maven"
	DefaultGroup = "com.jetbrains.plugins"
	kind         = "maven"

	maxParentDepth   = 5
	fetchConcurrency = 8
	defaultPackaging = "zip"
)

func init() {
	core.Register(kind, DefaultURL, func(baseURL string, client *core.Client) core.Repository {
		return New(baseURL, client)
	})
}

// Repository queries one Maven repository.
type Repository struct {
	baseURL string
	group   string
	client  *core.Client
	urls    *URLs

	mu   sync.Mutex
	poms map[string]*pom
}

func New(baseURL string, client *core.Client) *Repository {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = core.DefaultClient()
	}
	r := &Repository{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		group:   DefaultGroup,
		client:  client,
		poms:    make(map[string]*pom),
	}
	r.urls = &URLs{baseURL: r.baseURL, group: r.group}
	return r
}

// WithGroup returns a copy of the repository resolving bare ids in group.
func (r *Repository) WithGroup(group string) *Repository {
	cp := New(r.baseURL, r.client)
	cp.group = group
	cp.urls.group = group
	return cp
}

func (r *Repository) URLs() core.URLBuilder {
	return r.urls
}

func (r *Repository) PresentableName() string {
	return "Maven " + r.baseURL
}

func (r *Repository) String() string { return r.PresentableName() }

// ParseCoordinates splits "group:artifact[:version]".
func ParseCoordinates(coords string) (groupID, artifactID, v string) {
	parts := strings.Split(coords, ":")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], ""
	case 3:
		return parts[0], parts[1], parts[2]
	default:
		return "", "", ""
	}
}

func (r *Repository) coordinates(id string) (string, string) {
	if g, a, _ := ParseCoordinates(id); g != "" {
		return g, a
	}
	return r.group, id
}

type metadata struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

type pomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pom struct {
	GroupID     string `xml:"groupId"`
	ArtifactID  string `xml:"artifactId"`
	Version     string `xml:"version"`
	Packaging   string `xml:"packaging"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
	URL         string `xml:"url"`
	Parent      struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
	Organization struct {
		Name string `xml:"name"`
	} `xml:"organization"`
	Developers []struct {
		ID   string `xml:"id"`
		Name string `xml:"name"`
	} `xml:"developers>developer"`
	SCM struct {
		URL string `xml:"url"`
	} `xml:"scm"`
	Properties struct {
		Entries []pomProperty `xml:",any"`
	} `xml:"properties"`
}

func (p *pom) property(name string) string {
	for _, e := range p.Properties.Entries {
		if e.XMLName.Local == name {
			return strings.TrimSpace(e.Value)
		}
	}
	return ""
}

func (p *pom) vendor() string {
	if p.Organization.Name != "" {
		return p.Organization.Name
	}
	if len(p.Developers) > 0 {
		return p.Developers[0].Name
	}
	return ""
}

// inherit fills fields left empty in p from its parent.
func (p *pom) inherit(parent *pom) {
	if p.GroupID == "" {
		p.GroupID = parent.GroupID
	}
	if p.Version == "" {
		p.Version = parent.Version
	}
	if p.Description == "" {
		p.Description = parent.Description
	}
	if p.URL == "" {
		p.URL = parent.URL
	}
	if p.Organization.Name == "" {
		p.Organization = parent.Organization
	}
	if len(p.Developers) == 0 {
		p.Developers = parent.Developers
	}
	if p.SCM.URL == "" {
		p.SCM = parent.SCM
	}
	for _, e := range parent.Properties.Entries {
		if p.property(e.XMLName.Local) == "" {
			p.Properties.Entries = append(p.Properties.Entries, e)
		}
	}
}

func (r *Repository) artifactPath(groupID, artifactID string) string {
	return fmt.Sprintf("%s/%s/%s", r.baseURL, strings.ReplaceAll(groupID, ".", "/"), artifactID)
}

func (r *Repository) versions(ctx context.Context, groupID, artifactID string) ([]string, error) {
	url := r.artifactPath(groupID, artifactID) + "/maven-metadata.xml"
	body, err := r.client.GetBody(ctx, url)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}

	var meta metadata
	if err := xml.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("%s: parsing %s: %w", r.PresentableName(), url, err)
	}
	return meta.Versioning.Versions, nil
}

func (r *Repository) fetchPOM(ctx context.Context, groupID, artifactID, v string, depth int) (*pom, error) {
	key := groupID + ":" + artifactID + ":" + v
	r.mu.Lock()
	cached, ok := r.poms[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/%s/%s-%s.pom", r.artifactPath(groupID, artifactID), v, artifactID, v)
	body, err := r.client.GetBody(ctx, url)
	if err != nil {
		return nil, err
	}

	var p pom
	if err := xml.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	if p.Parent.ArtifactID != "" && depth < maxParentDepth {
		parent, err := r.fetchPOM(ctx, p.Parent.GroupID, p.Parent.ArtifactID, p.Parent.Version, depth+1)
		if err != nil {
			zap.L().Debug("parent POM unavailable",
				zap.String("pom", key), zap.String("parent", p.Parent.ArtifactID), zap.Error(err))
		} else {
			p.inherit(parent)
		}
	}

	r.mu.Lock()
	r.poms[key] = &p
	r.mu.Unlock()
	return &p, nil
}

func (r *Repository) artifact(ctx context.Context, id, groupID, artifactID, v string) (*core.PluginArtifact, error) {
	a := &core.PluginArtifact{
		Identity:   core.Identity{PluginID: id, Version: v},
		Repository: r.PresentableName(),
	}

	packaging := defaultPackaging
	p, err := r.fetchPOM(ctx, groupID, artifactID, v, 0)
	switch {
	case err == nil:
		a.PluginName = p.Name
		a.Vendor = p.vendor()
		a.SourceCodeURL = p.SCM.URL
		a.Compatibility = version.Range{
			Since: core.ParseBound(p.property("since-build")),
			Until: core.ParseBound(p.property("until-build")),
		}
		if p.Packaging != "" && p.Packaging != "pom" {
			packaging = p.Packaging
		}
	case isNotFound(err):
		// published without a POM: no metadata beyond the version
	default:
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}

	a.DownloadURL = fmt.Sprintf("%s/%s/%s-%s.%s", r.artifactPath(groupID, artifactID), v, artifactID, v, packaging)
	a.BrowserURL = r.urls.Browse(id, v)
	return a, nil
}

// sortVersions orders versions newest first.
func sortVersions(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		return -compareVersions(a, b)
	})
}

func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
	}
	return version.CompareStrings(a, b)
}

func (r *Repository) AllVersionsOfPlugin(ctx context.Context, id string) ([]core.PluginInfo, error) {
	groupID, artifactID := r.coordinates(id)
	versions, err := r.versions(ctx, groupID, artifactID)
	if err != nil || len(versions) == 0 {
		return nil, err
	}

	found := make([]*core.PluginArtifact, len(versions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, v := range versions {
		g.Go(func() error {
			a, err := r.artifact(ctx, id, groupID, artifactID, v)
			found[i] = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.PluginInfo, len(found))
	for i, a := range found {
		out[i] = a
	}
	return out, nil
}

func (r *Repository) LastCompatibleVersionOfPlugin(ctx context.Context, host version.Version, id string) (core.PluginInfo, error) {
	groupID, artifactID := r.coordinates(id)
	versions, err := r.versions(ctx, groupID, artifactID)
	if err != nil {
		return nil, err
	}
	sortVersions(versions)

	for _, v := range versions {
		a, err := r.artifact(ctx, id, groupID, artifactID, v)
		if err != nil {
			return nil, err
		}
		if a.IsCompatibleWith(host) {
			return a, nil
		}
	}
	return nil, nil
}

// LastCompatiblePlugins returns nothing: a Maven repository cannot list
// its artifacts.
func (r *Repository) LastCompatiblePlugins(context.Context, version.Version) ([]core.PluginInfo, error) {
	return nil, nil
}

// PluginsDeclaringModule returns nothing: Maven metadata has no module index.
func (r *Repository) PluginsDeclaringModule(context.Context, string, version.Version) ([]core.PluginInfo, error) {
	return nil, nil
}

func (r *Repository) Plugin(ctx context.Context, id, v string) (core.PluginInfo, error) {
	groupID, artifactID := r.coordinates(id)
	versions, err := r.versions(ctx, groupID, artifactID)
	if err != nil || !slices.Contains(versions, v) {
		return nil, err
	}
	a, err := r.artifact(ctx, id, groupID, artifactID, v)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func isNotFound(err error) bool {
	var httpErr *core.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}

// URLs builds Maven URLs for plugin ids.
type URLs struct {
	baseURL string
	group   string
}

func (u *URLs) coordinates(id string) (string, string) {
	if g, a, _ := ParseCoordinates(id); g != "" {
		return g, a
	}
	return u.group, id
}

func (u *URLs) Browse(id, v string) string {
	g, a := u.coordinates(id)
	if v == "" {
		return fmt.Sprintf("https://search.maven.org/artifact/%s/%s", g, a)
	}
	return fmt.Sprintf("https://search.maven.org/artifact/%s/%s/%s/jar", g, a, v)
}

func (u *URLs) Download(id, v string) string {
	if v == "" {
		return ""
	}
	g, a := u.coordinates(id)
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s.%s", u.baseURL, strings.ReplaceAll(g, ".", "/"), a, v, a, v, defaultPackaging)
}

func (u *URLs) Source(id, v string) string {
	if v == "" {
		return ""
	}
	g, a := u.coordinates(id)
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s-sources.jar", u.baseURL, strings.ReplaceAll(g, ".", "/"), a, v, a, v)
}

func (u *URLs) PURL(id, v string) string {
	g, a := u.coordinates(id)
	return core.PluginPURL(&core.PluginArtifact{Identity: core.Identity{PluginID: g + ":" + a, Version: v}})
}
