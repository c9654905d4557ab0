package dependencies

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/plugindetails"
)

// Result is either DetailsProvided or NotFound.
type Result interface {
	isResult()
}

// DetailsProvided holds the cache entry of the plugin that satisfies the
// dependency. The entry may itself report that the plugin could not be
// opened. Close the entry when done.
type DetailsProvided struct {
	Entry *plugindetails.Entry
}

// NotFound explains why the dependency could not be resolved.
type NotFound struct {
	Reason string
}

func (DetailsProvided) isResult() {}
func (NotFound) isResult()        {}

// Finder resolves a plugin dependency by plugin id or, when isModule is
// set, by declared module name. The error is non-nil only when ctx is done.
type Finder interface {
	PresentableName() string
	FindPluginDependency(ctx context.Context, dependencyID string, isModule bool) (Result, error)
}

// BundledFinder looks among the plugins bundled with a host.
type BundledFinder struct {
	host  *core.Host
	cache plugindetails.Cache
}

// NewBundledFinder creates a finder over the bundled plugins of host.
func NewBundledFinder(host *core.Host, cache plugindetails.Cache) *BundledFinder {
	return &BundledFinder{host: host, cache: cache}
}

func (f *BundledFinder) PresentableName() string {
	return fmt.Sprintf("Bundled plugins of %s", f.host.Version)
}

func (f *BundledFinder) FindPluginDependency(ctx context.Context, dependencyID string, isModule bool) (Result, error) {
	var (
		plugin *core.BundledPlugin
		ok     bool
	)
	if isModule {
		plugin, ok = f.host.FindByModule(dependencyID)
	} else {
		plugin, ok = f.host.FindByID(dependencyID)
	}
	if !ok {
		return NotFound{Reason: fmt.Sprintf("Dependency %s is not found among the bundled plugins of %s", dependencyID, f.host.Version)}, nil
	}
	return provide(ctx, f.cache, plugin)
}

// RepositoryFinder selects a build with a VersionSelector and opens it
// through the cache.
type RepositoryFinder struct {
	repo     core.Repository
	selector VersionSelector
	cache    plugindetails.Cache
}

// NewRepositoryFinder creates a finder over repo.
func NewRepositoryFinder(repo core.Repository, selector VersionSelector, cache plugindetails.Cache) *RepositoryFinder {
	return &RepositoryFinder{repo: repo, selector: selector, cache: cache}
}

func (f *RepositoryFinder) PresentableName() string {
	return f.repo.PresentableName()
}

// FindPluginDependency reports a repository that cannot be queried as
// NotFound so that other finders still get a chance.
func (f *RepositoryFinder) FindPluginDependency(ctx context.Context, dependencyID string, isModule bool) (Result, error) {
	var (
		sel Selection
		err error
	)
	if isModule {
		sel, err = f.selector.SelectByModule(ctx, dependencyID, f.repo)
	} else {
		sel, err = f.selector.SelectVersion(ctx, dependencyID, f.repo)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Warn("dependency lookup failed",
			zap.String("repository", f.repo.PresentableName()), zap.String("dependency", dependencyID), zap.Error(err))
		return NotFound{Reason: fmt.Sprintf("Unable to query %s for %s: %v", f.repo.PresentableName(), dependencyID, err)}, nil
	}

	switch s := sel.(type) {
	case Selected:
		return provide(ctx, f.cache, s.Plugin)
	case NotSelected:
		return NotFound{Reason: s.Reason}, nil
	default:
		return nil, fmt.Errorf("unexpected selection %T", sel)
	}
}

func provide(ctx context.Context, cache plugindetails.Cache, plugin core.PluginInfo) (Result, error) {
	entry, err := cache.Get(ctx, plugin)
	if err != nil {
		return nil, err
	}
	return DetailsProvided{Entry: entry}, nil
}

// CompositeFinder asks its finders in order; the first DetailsProvided wins.
type CompositeFinder struct {
	finders []Finder
}

// NewCompositeFinder creates a finder trying finders in priority order.
func NewCompositeFinder(finders ...Finder) *CompositeFinder {
	return &CompositeFinder{finders: finders}
}

func (c *CompositeFinder) PresentableName() string {
	names := make([]string, len(c.finders))
	for i, f := range c.finders {
		names[i] = f.PresentableName()
	}
	return "Composite of [" + strings.Join(names, ", ") + "]"
}

// FindPluginDependency reports, when nothing is found, every finder's
// reason on its own line prefixed with the finder's name.
func (c *CompositeFinder) FindPluginDependency(ctx context.Context, dependencyID string, isModule bool) (Result, error) {
	reasons := make([]string, 0, len(c.finders))
	for _, f := range c.finders {
		res, err := f.FindPluginDependency(ctx, dependencyID, isModule)
		if err != nil {
			return nil, err
		}
		switch r := res.(type) {
		case DetailsProvided:
			return r, nil
		case NotFound:
			zap.L().Debug("dependency not found",
				zap.String("finder", f.PresentableName()), zap.String("dependency", dependencyID), zap.String("reason", r.Reason))
			reasons = append(reasons, f.PresentableName()+": "+r.Reason)
		}
	}
	if len(reasons) == 0 {
		return NotFound{Reason: fmt.Sprintf("Dependency %s is not found: no finders configured", dependencyID)}, nil
	}
	return NotFound{Reason: strings.Join(reasons, "\n")}, nil
}

// NewHostFinder looks among the bundled plugins of host first and then
// for the newest build in repo compatible with host.
func NewHostFinder(host *core.Host, repo core.Repository, cache plugindetails.Cache) *CompositeFinder {
	return NewCompositeFinder(
		NewBundledFinder(host, cache),
		NewRepositoryFinder(repo, LastCompatible{Host: host.Version}, cache),
	)
}
