// Package dependencies picks plugin builds from repositories and resolves
// the plugins a verified plugin depends on.
package dependencies

import (
	"context"
	"fmt"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

// Selection is either Selected or NotSelected.
type Selection interface {
	isSelection()
}

// Selected is the chosen build.
type Selected struct {
	Plugin core.PluginInfo
}

// NotSelected explains why no build was chosen.
type NotSelected struct {
	Reason string
}

func (Selected) isSelection()    {}
func (NotSelected) isSelection() {}

// VersionSelector chooses one build of a plugin, or of a plugin declaring a
// module, from a repository. Errors mean the repository could not answer.
type VersionSelector interface {
	SelectVersion(ctx context.Context, pluginID string, repo core.Repository) (Selection, error)
	SelectByModule(ctx context.Context, moduleID string, repo core.Repository) (Selection, error)
}

var (
	_ VersionSelector = Exact{}
	_ VersionSelector = LastCompatible{}
	_ VersionSelector = Last{}
)

// Exact selects the build with a specific version.
type Exact struct {
	Version string
}

func (s Exact) SelectVersion(ctx context.Context, pluginID string, repo core.Repository) (Selection, error) {
	p, err := repo.Plugin(ctx, pluginID, s.Version)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return NotSelected{Reason: fmt.Sprintf("Plugin %s %s is not found in %s", pluginID, s.Version, repo.PresentableName())}, nil
	}
	return Selected{Plugin: p}, nil
}

// SelectByModule picks the newest plugin declaring moduleID, regardless
// of compatibility.
func (s Exact) SelectByModule(ctx context.Context, moduleID string, repo core.Repository) (Selection, error) {
	return selectLastDeclaring(ctx, moduleID, repo)
}

// LastCompatible selects the newest build compatible with Host.
type LastCompatible struct {
	Host version.Version
}

// SelectVersion distinguishes a plugin the repository does not know from
// one that has no build compatible with Host.
func (s LastCompatible) SelectVersion(ctx context.Context, pluginID string, repo core.Repository) (Selection, error) {
	p, err := repo.LastCompatibleVersionOfPlugin(ctx, s.Host, pluginID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return Selected{Plugin: p}, nil
	}

	all, err := repo.AllVersionsOfPlugin(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return NotSelected{Reason: fmt.Sprintf("Plugin %s is not available in %s", pluginID, repo.PresentableName())}, nil
	}
	return NotSelected{Reason: fmt.Sprintf("Plugin %s doesn't have a build compatible with %s in %s", pluginID, s.Host, repo.PresentableName())}, nil
}

// SelectByModule picks the first compatible plugin declaring moduleID.
func (s LastCompatible) SelectByModule(ctx context.Context, moduleID string, repo core.Repository) (Selection, error) {
	plugins, err := repo.PluginsDeclaringModule(ctx, moduleID, s.Host)
	if err != nil {
		return nil, err
	}
	if len(plugins) == 0 {
		return NotSelected{Reason: fmt.Sprintf("Plugins declaring module '%s' are not found in %s", moduleID, repo.PresentableName())}, nil
	}
	return Selected{Plugin: plugins[0]}, nil
}

// Last selects the newest build regardless of compatibility. Among equal
// versions the first one returned by the repository wins.
type Last struct{}

func (Last) SelectVersion(ctx context.Context, pluginID string, repo core.Repository) (Selection, error) {
	all, err := repo.AllVersionsOfPlugin(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	if p := core.Latest(all); p != nil {
		return Selected{Plugin: p}, nil
	}
	return NotSelected{Reason: fmt.Sprintf("Plugin %s is not found in %s", pluginID, repo.PresentableName())}, nil
}

func (Last) SelectByModule(ctx context.Context, moduleID string, repo core.Repository) (Selection, error) {
	return selectLastDeclaring(ctx, moduleID, repo)
}

func selectLastDeclaring(ctx context.Context, moduleID string, repo core.Repository) (Selection, error) {
	plugins, err := repo.PluginsDeclaringModule(ctx, moduleID, nil)
	if err != nil {
		return nil, err
	}
	if p := core.Latest(plugins); p != nil {
		return Selected{Plugin: p}, nil
	}
	return NotSelected{Reason: fmt.Sprintf("Plugin declaring module '%s' is not found in %s", moduleID, repo.PresentableName())}, nil
}
