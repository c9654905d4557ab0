// Package marketplace provides a repository backed by the plugin
// marketplace HTTP API.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

const (
	DefaultURL = "https://plugins.jetbrains.com"
	kind       = "marketplace"

	// MetadataTTL bounds how long update metadata is reused.
	MetadataTTL = 5 * time.Minute

	fetchConcurrency = 8
)

func init() {
	core.Register(kind, DefaultURL, func(baseURL string, client *core.Client) core.Repository {
		return New(baseURL, client)
	})
}

type updateKey struct {
	pluginID int
	updateID int
}

type cachedArtifact struct {
	artifact *core.PluginArtifact
	expires  time.Time
}

// Repository queries a marketplace instance.
type Repository struct {
	baseURL string
	client  *core.Client
	urls    *URLs
	now     func() time.Time

	mu       sync.Mutex
	metadata map[updateKey]cachedArtifact
	// update ids never move between plugins, so this mapping never expires
	owners map[int]int
}

func New(baseURL string, client *core.Client) *Repository {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = core.DefaultClient()
	}
	r := &Repository{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   client,
		now:      time.Now,
		metadata: make(map[updateKey]cachedArtifact),
		owners:   make(map[int]int),
	}
	r.urls = &URLs{baseURL: r.baseURL}
	return r
}

func (r *Repository) URLs() core.URLBuilder {
	return r.urls
}

func (r *Repository) PresentableName() string {
	return "Marketplace " + r.baseURL
}

func (r *Repository) String() string { return r.PresentableName() }

type updateBean struct {
	ID          int    `json:"id"`
	PluginID    int    `json:"pluginId"`
	PluginXMLID string `json:"pluginXmlId"`
	Version     string `json:"version"`
}

type pluginBean struct {
	ID    int    `json:"id"`
	XMLID string `json:"xmlId"`
	Name  string `json:"name"`
}

type updateVersion struct {
	ID      int    `json:"id"`
	Version string `json:"version"`
}

type updateMetadata struct {
	ID            int      `json:"id"`
	XMLID         string   `json:"xmlId"`
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Vendor        string   `json:"vendor"`
	Since         string   `json:"since"`
	Until         string   `json:"until"`
	SourceCodeURL string   `json:"sourceCodeUrl"`
	Tags          []string `json:"tags"`
	Modules       []string `json:"modules"`
}

func (r *Repository) LastCompatiblePlugins(ctx context.Context, host version.Version) ([]core.PluginInfo, error) {
	updates, err := r.searchCompatibleUpdates(ctx, url.Values{"build": {host.String()}})
	if err != nil {
		return nil, err
	}
	return r.artifacts(ctx, updates)
}

func (r *Repository) LastCompatibleVersionOfPlugin(ctx context.Context, host version.Version, id string) (core.PluginInfo, error) {
	updates, err := r.searchCompatibleUpdates(ctx, url.Values{
		"build":       {host.String()},
		"pluginXmlId": {id},
	})
	if err != nil || len(updates) == 0 {
		return nil, err
	}
	a, err := r.artifact(ctx, updateKey{pluginID: updates[0].PluginID, updateID: updates[0].ID})
	if err != nil || a == nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) AllVersionsOfPlugin(ctx context.Context, id string) ([]core.PluginInfo, error) {
	var plugin pluginBean
	endpoint := fmt.Sprintf("%s/api/plugins/intellij/%s", r.baseURL, url.PathEscape(id))
	if err := r.client.GetJSON(ctx, endpoint, &plugin); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}

	var versions []updateVersion
	endpoint = fmt.Sprintf("%s/api/plugins/%d/updateVersions", r.baseURL, plugin.ID)
	if err := r.client.GetJSON(ctx, endpoint, &versions); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}

	updates := make([]updateBean, len(versions))
	for i, v := range versions {
		updates[i] = updateBean{ID: v.ID, PluginID: plugin.ID, PluginXMLID: plugin.XMLID, Version: v.Version}
	}
	return r.artifacts(ctx, updates)
}

func (r *Repository) PluginsDeclaringModule(ctx context.Context, module string, host version.Version) ([]core.PluginInfo, error) {
	query := url.Values{"module": {module}}
	if host != nil {
		query.Set("build", host.String())
	}
	updates, err := r.searchCompatibleUpdates(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.artifacts(ctx, updates)
}

func (r *Repository) Plugin(ctx context.Context, id, v string) (core.PluginInfo, error) {
	all, err := r.AllVersionsOfPlugin(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.Info().Version == v {
			return p, nil
		}
	}
	return nil, nil
}

// PluginByUpdateID returns the artifact of one marketplace update, or nil.
func (r *Repository) PluginByUpdateID(ctx context.Context, updateID int) (*core.PluginArtifact, error) {
	r.mu.Lock()
	owner, ok := r.owners[updateID]
	r.mu.Unlock()

	if !ok {
		var bean updateBean
		endpoint := fmt.Sprintf("%s/api/updates/%d", r.baseURL, updateID)
		if err := r.client.GetJSON(ctx, endpoint, &bean); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
		}
		owner = bean.PluginID
		r.mu.Lock()
		r.owners[updateID] = owner
		r.mu.Unlock()
	}

	return r.artifact(ctx, updateKey{pluginID: owner, updateID: updateID})
}

func (r *Repository) searchCompatibleUpdates(ctx context.Context, query url.Values) ([]updateBean, error) {
	endpoint := fmt.Sprintf("%s/api/search/compatibleUpdates?%s", r.baseURL, query.Encode())
	var updates []updateBean
	if err := r.client.GetJSON(ctx, endpoint, &updates); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}
	return updates, nil
}

// artifacts resolves updates concurrently, keeping their order. Updates
// without metadata are dropped.
func (r *Repository) artifacts(ctx context.Context, updates []updateBean) ([]core.PluginInfo, error) {
	found := make([]*core.PluginArtifact, len(updates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, u := range updates {
		g.Go(func() error {
			a, err := r.artifact(ctx, updateKey{pluginID: u.PluginID, updateID: u.ID})
			found[i] = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.PluginInfo, 0, len(found))
	for _, a := range found {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) artifact(ctx context.Context, key updateKey) (*core.PluginArtifact, error) {
	now := r.now()

	r.mu.Lock()
	if c, ok := r.metadata[key]; ok && now.Before(c.expires) {
		r.mu.Unlock()
		return c.artifact, nil
	}
	r.mu.Unlock()

	var meta updateMetadata
	endpoint := fmt.Sprintf("%s/files/%d/%d/meta.json", r.baseURL, key.pluginID, key.updateID)
	if err := r.client.GetJSON(ctx, endpoint, &meta); err != nil {
		if isNotFound(err) {
			zap.L().Debug("update metadata missing",
				zap.Int("plugin", key.pluginID), zap.Int("update", key.updateID))
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", r.PresentableName(), err)
	}

	a := r.newArtifact(meta, key)

	r.mu.Lock()
	r.metadata[key] = cachedArtifact{artifact: a, expires: now.Add(MetadataTTL)}
	r.owners[key.updateID] = key.pluginID
	r.mu.Unlock()

	return a, nil
}

func (r *Repository) newArtifact(meta updateMetadata, key updateKey) *core.PluginArtifact {
	return &core.PluginArtifact{
		Identity: core.Identity{
			PluginID:   meta.XMLID,
			PluginName: meta.Name,
			Version:    meta.Version,
			Vendor:     meta.Vendor,
			Compatibility: version.Range{
				Since: core.ParseBound(meta.Since),
				Until: core.ParseBound(meta.Until),
			},
			DefinedModules: meta.Modules,
		},
		Repository:    r.PresentableName(),
		DownloadURL:   fmt.Sprintf("%s/plugin/download?noStatistic=true&updateId=%d", r.baseURL, key.updateID),
		BrowserURL:    fmt.Sprintf("%s/plugin/%d", r.baseURL, key.pluginID),
		SourceCodeURL: sourceCodeURL(meta.SourceCodeURL),
		Tags:          meta.Tags,
		UpdateID:      key.updateID,
	}
}

func sourceCodeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.String()
}

func isNotFound(err error) bool {
	var httpErr *core.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}

// URLs builds marketplace URLs from a plugin id.
type URLs struct {
	baseURL string
}

func (u *URLs) Browse(pluginID, _ string) string {
	return fmt.Sprintf("%s/plugin/%s", u.baseURL, url.PathEscape(pluginID))
}

func (u *URLs) Download(pluginID, v string) string {
	if v == "" {
		return ""
	}
	query := url.Values{"pluginId": {pluginID}, "version": {v}}
	return fmt.Sprintf("%s/plugin/download?%s", u.baseURL, query.Encode())
}

func (u *URLs) Source(string, string) string {
	return ""
}

func (u *URLs) PURL(pluginID, v string) string {
	return core.PluginPURL(&core.PluginArtifact{Identity: core.Identity{PluginID: pluginID, Version: v}})
}
