// Package custom provides a repository over a plugin list published as
// XML, in either the updatePlugins.xml layout:
//
//	<plugins>
//	  <plugin id="org.example" url="example-1.0.zip" version="1.0">
//	    <idea-version since-build="231.1" until-build="233.*"/>
//	  </plugin>
//	</plugins>
//
// or the categorised plugin-repository layout with nested idea-plugin
// elements. Relative download URLs are resolved against the list URL.
package custom

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

const kind = "custom"

// ListTTL bounds how long a fetched plugin list is reused.
const ListTTL = time.Minute

func init() {
	core.Register(kind, "", func(baseURL string, client *core.Client) core.Repository {
		return New(baseURL, client)
	})
}

// Repository serves the plugins of one XML list.
type Repository struct {
	listURL string
	client  *core.Client
	now     func() time.Time

	mu      sync.Mutex
	plugins []core.PluginInfo
	expires time.Time
}

func New(listURL string, client *core.Client) *Repository {
	if client == nil {
		client = core.DefaultClient()
	}
	return &Repository{listURL: listURL, client: client, now: time.Now}
}

func (r *Repository) PresentableName() string {
	return "Custom repository " + r.listURL
}

func (r *Repository) String() string { return r.PresentableName() }

type ideaVersion struct {
	Since string `xml:"since-build,attr"`
	Until string `xml:"until-build,attr"`
}

type pluginElement struct {
	ID          string      `xml:"id,attr"`
	URL         string      `xml:"url,attr"`
	Version     string      `xml:"version,attr"`
	Name        string      `xml:"name"`
	Vendor      string      `xml:"vendor"`
	IdeaVersion ideaVersion `xml:"idea-version"`
	Modules     []string    `xml:"module"`
}

type ideaPluginElement struct {
	ID          string      `xml:"id"`
	Name        string      `xml:"name"`
	Version     string      `xml:"version"`
	Vendor      string      `xml:"vendor"`
	DownloadURL string      `xml:"download-url"`
	IdeaVersion ideaVersion `xml:"idea-version"`
	Modules     []string    `xml:"module"`
}

type listDocument struct {
	XMLName    xml.Name
	Plugins    []pluginElement `xml:"plugin"`
	Categories []struct {
		Plugins []ideaPluginElement `xml:"idea-plugin"`
	} `xml:"category"`
}

// AllPlugins returns every plugin in the list, fetching it at most once
// per ListTTL.
func (r *Repository) AllPlugins(ctx context.Context) ([]core.PluginInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.plugins != nil && now.Before(r.expires) {
		return r.plugins, nil
	}

	body, err := r.client.GetBody(ctx, r.listURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}
	plugins, err := Parse(body, r.listURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}
	for _, p := range plugins {
		p.(*core.PluginArtifact).Repository = r.PresentableName()
	}

	r.plugins = plugins
	r.expires = now.Add(ListTTL)
	return plugins, nil
}

// Parse decodes a plugin list. base resolves relative download URLs and
// is recorded as the artifacts' repository.
func Parse(data []byte, base string) ([]core.PluginInfo, error) {
	var doc listDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing plugin list: %w", err)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing list URL: %w", err)
	}

	plugins := make([]core.PluginInfo, 0, len(doc.Plugins))
	add := func(id, name, v, vendor, download string, iv ideaVersion, modules []string) {
		id, v = strings.TrimSpace(id), strings.TrimSpace(v)
		if id == "" || v == "" {
			zap.L().Debug("skipping plugin list entry without id or version", zap.String("list", base))
			return
		}
		plugins = append(plugins, &core.PluginArtifact{
			Identity: core.Identity{
				PluginID:   id,
				PluginName: strings.TrimSpace(name),
				Version:    v,
				Vendor:     strings.TrimSpace(vendor),
				Compatibility: version.Range{
					Since: core.ParseBound(iv.Since),
					Until: core.ParseBound(iv.Until),
				},
				DefinedModules: modules,
			},
			Repository:  base,
			DownloadURL: resolve(baseURL, download),
		})
	}

	for _, p := range doc.Plugins {
		add(p.ID, p.Name, p.Version, p.Vendor, p.URL, p.IdeaVersion, p.Modules)
	}
	for _, c := range doc.Categories {
		for _, p := range c.Plugins {
			add(p.ID, p.Name, p.Version, p.Vendor, p.DownloadURL, p.IdeaVersion, p.Modules)
		}
	}
	return plugins, nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func (r *Repository) LastCompatiblePlugins(ctx context.Context, host version.Version) ([]core.PluginInfo, error) {
	all, err := r.AllPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return core.LatestPerPlugin(core.Compatible(all, host)), nil
}

func (r *Repository) LastCompatibleVersionOfPlugin(ctx context.Context, host version.Version, id string) (core.PluginInfo, error) {
	all, err := r.AllPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return core.Latest(core.Compatible(core.WithID(all, id), host)), nil
}

func (r *Repository) AllVersionsOfPlugin(ctx context.Context, id string) ([]core.PluginInfo, error) {
	all, err := r.AllPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return core.WithID(all, id), nil
}

func (r *Repository) PluginsDeclaringModule(ctx context.Context, module string, host version.Version) ([]core.PluginInfo, error) {
	all, err := r.AllPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return core.DeclaringModule(all, module, host), nil
}

func (r *Repository) Plugin(ctx context.Context, id, v string) (core.PluginInfo, error) {
	all, err := r.AllPlugins(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range core.WithID(all, id) {
		if p.Info().Version == v {
			return p, nil
		}
	}
	return nil, nil
}
