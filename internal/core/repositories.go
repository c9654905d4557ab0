package core

import (
	"context"

	"github.com/git-pkgs/pluginverifier/version"
)

// ListRepository answers every query from a fixed list of plugins.
// It backs the local, bundled and test repositories.
type ListRepository struct {
	name    string
	plugins []PluginInfo
}

// NewListRepository returns a repository over plugins named name.
func NewListRepository(name string, plugins []PluginInfo) *ListRepository {
	return &ListRepository{name: name, plugins: plugins}
}

// NewLocalRepository returns a repository over plugins found on disk.
func NewLocalRepository(plugins ...*LocalPlugin) *ListRepository {
	infos := make([]PluginInfo, len(plugins))
	for i, p := range plugins {
		infos[i] = p
	}
	return NewListRepository("Local repository", infos)
}

// NewBundledRepository returns a repository over the plugins bundled with host.
func NewBundledRepository(host *Host) *ListRepository {
	infos := make([]PluginInfo, len(host.Plugins))
	for i, p := range host.Plugins {
		infos[i] = p
	}
	return NewListRepository("Bundled plugins of "+host.Version.String(), infos)
}

func (r *ListRepository) PresentableName() string { return r.name }
func (r *ListRepository) String() string          { return r.name }

// Plugins returns every plugin in the repository.
func (r *ListRepository) Plugins() []PluginInfo { return r.plugins }

func (r *ListRepository) LastCompatiblePlugins(_ context.Context, host version.Version) ([]PluginInfo, error) {
	return LatestPerPlugin(Compatible(r.plugins, host)), nil
}

func (r *ListRepository) LastCompatibleVersionOfPlugin(_ context.Context, host version.Version, id string) (PluginInfo, error) {
	return Latest(Compatible(WithID(r.plugins, id), host)), nil
}

func (r *ListRepository) AllVersionsOfPlugin(_ context.Context, id string) ([]PluginInfo, error) {
	return WithID(r.plugins, id), nil
}

func (r *ListRepository) PluginsDeclaringModule(_ context.Context, module string, host version.Version) ([]PluginInfo, error) {
	return DeclaringModule(r.plugins, module, host), nil
}

func (r *ListRepository) Plugin(_ context.Context, id, v string) (PluginInfo, error) {
	for _, p := range r.plugins {
		info := p.Info()
		if info.PluginID == id && info.Version == v {
			return p, nil
		}
	}
	return nil, nil
}

// EmptyRepository contains no plugins.
var EmptyRepository Repository = NewListRepository("Empty repository", nil)
