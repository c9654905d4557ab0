// Package ide opens host builds, either an installed distribution or a
// compiled source checkout, as class resolvers.
package ide

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/resolver"
	"github.com/git-pkgs/pluginverifier/version"
)

// Layout is the on-disk shape of a host build.
type Layout int

const (
	// Invalid is neither a distribution nor a compiled checkout.
	Invalid Layout = iota
	// Distribution is an installed build with lib/*.jar.
	Distribution
	// CompiledCommunity is a compiled community checkout.
	CompiledCommunity
	// CompiledUltimate is a compiled checkout with a nested community/ project.
	CompiledUltimate
)

func (l Layout) String() string {
	switch l {
	case Distribution:
		return "distribution"
	case CompiledCommunity:
		return "compiled community"
	case CompiledUltimate:
		return "compiled ultimate"
	default:
		return "invalid"
	}
}

// InvalidIdeError reports a path that does not hold a usable host build.
type InvalidIdeError struct {
	Path   string
	Reason string
}

func (e *InvalidIdeError) Error() string {
	return fmt.Sprintf("invalid IDE at %s: %s", e.Path, e.Reason)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CompiledClassesRoot returns the directory holding one compiler output
// directory per module.
func CompiledClassesRoot(path string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(path, "out", "production"),
		filepath.Join(path, "out", "classes", "production"),
		filepath.Join(path, "out", "compilation", "classes", "production"),
	} {
		if isDir(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// DetectLayout inspects path.
func DetectLayout(path string) Layout {
	project := isDir(filepath.Join(path, ".idea"))
	if !project {
		if isDir(filepath.Join(path, "lib")) {
			return Distribution
		}
		return Invalid
	}
	if _, ok := CompiledClassesRoot(path); !ok {
		return Invalid
	}
	if isDir(filepath.Join(path, "community", ".idea")) {
		return CompiledUltimate
	}
	return CompiledCommunity
}

// ReadBuildNumber parses build.txt of a distribution, or of the community
// project of a compiled checkout.
func ReadBuildNumber(path string) (version.Version, error) {
	var lastErr error
	for _, candidate := range []string{
		filepath.Join(path, "build.txt"),
		filepath.Join(path, "community", "build.txt"),
	} {
		data, err := os.ReadFile(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		v, err := version.Parse(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", candidate, err)
		}
		return v, nil
	}
	return nil, &InvalidIdeError{Path: path, Reason: fmt.Sprintf("build number is not available: %v", lastErr)}
}

// Ide is a host build on disk.
type Ide struct {
	Path    string
	Layout  Layout
	Version version.Version
	// MavenRepository is where repository libraries of a compiled checkout
	// are looked up.
	MavenRepository string
	Bundled         []*core.BundledPlugin
}

// Option configures Open.
type Option func(*Ide)

// WithVersion overrides the build number read from build.txt.
func WithVersion(v version.Version) Option {
	return func(i *Ide) {
		i.Version = v
	}
}

// WithMavenRepository sets the local maven repository. Defaults to
// ~/.m2/repository.
func WithMavenRepository(dir string) Option {
	return func(i *Ide) {
		i.MavenRepository = dir
	}
}

// WithBundledPlugins records the plugins shipped with the build.
func WithBundledPlugins(plugins ...*core.BundledPlugin) Option {
	return func(i *Ide) {
		i.Bundled = append(i.Bundled, plugins...)
	}
}

// Open detects the layout of path and reads its build number.
func Open(path string, opts ...Option) (*Ide, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	i := &Ide{Path: abs, Layout: DetectLayout(abs)}
	if home, err := os.UserHomeDir(); err == nil {
		i.MavenRepository = filepath.Join(home, ".m2", "repository")
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.Layout == Invalid {
		return nil, &InvalidIdeError{Path: abs, Reason: "neither a distribution nor a compiled checkout"}
	}
	if i.Version == nil {
		if i.Version, err = ReadBuildNumber(abs); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Ide) String() string {
	return i.Version.String()
}

// Host describes the build for dependency resolution.
func (i *Ide) Host() *core.Host {
	return &core.Host{Version: i.Version, Plugins: i.Bundled}
}

// Resolver opens the classes of the build. A distribution contributes its
// lib jars. A compiled checkout contributes lib jars, repository libraries,
// every compiled module and, for ultimate checkouts, community/lib.
func (i *Ide) Resolver(ctx context.Context, mode resolver.ReadMode) (resolver.Resolver, error) {
	host := i.Version.String()
	switch i.Layout {
	case Distribution:
		return libJars(ctx, filepath.Join(i.Path, "lib"), mode, resolver.IdeLibDirectory{Host: host})
	case CompiledCommunity, CompiledUltimate:
		return i.compiledResolver(ctx, mode, host)
	default:
		return nil, &InvalidIdeError{Path: i.Path, Reason: fmt.Sprintf("unsupported layout %s", i.Layout)}
	}
}

// CreateResolver opens the build at path in one step.
func CreateResolver(ctx context.Context, path string, mode resolver.ReadMode, opts ...Option) (resolver.Resolver, error) {
	i, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return i.Resolver(ctx, mode)
}

// libJars composes the jars of dir and of dir/ant/lib. A missing dir
// yields Empty.
func libJars(ctx context.Context, dir string, mode resolver.ReadMode, origin resolver.Origin) (resolver.Resolver, error) {
	if !isDir(dir) {
		return resolver.Empty, nil
	}
	jars, err := resolver.JarsInDirectory(dir)
	if err != nil {
		return nil, err
	}
	ant, err := resolver.JarsInDirectory(filepath.Join(dir, "ant", "lib"))
	if err != nil {
		return nil, err
	}
	children, err := resolver.BuildJars(ctx, append(jars, ant...), mode, origin)
	if err != nil {
		return nil, err
	}
	return resolver.Compose(children...), nil
}

func (i *Ide) compiledResolver(ctx context.Context, mode resolver.ReadMode, host string) (resolver.Resolver, error) {
	builders := []resolver.Builder{
		func() (resolver.Resolver, error) {
			return libJars(ctx, filepath.Join(i.Path, "lib"), mode, resolver.SourceLibDirectory{Host: host})
		},
		func() (resolver.Resolver, error) {
			jars, err := RepositoryLibraryJars(i.Path, i.MavenRepository)
			if err != nil {
				return nil, err
			}
			children, err := resolver.BuildJars(ctx, jars, mode, resolver.RepositoryLibrary{Host: host})
			if err != nil {
				return nil, err
			}
			return resolver.Compose(children...), nil
		},
	}

	root, _ := CompiledClassesRoot(i.Path)
	modules, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing compiled modules: %w", err)
	}
	for _, m := range modules {
		if !m.IsDir() {
			continue
		}
		dir := filepath.Join(root, m.Name())
		origin := resolver.CompiledModule{Host: host, Module: m.Name()}
		builders = append(builders, func() (resolver.Resolver, error) {
			r, err := resolver.NewDirectory(dir, resolver.WithReadMode(mode), resolver.WithOrigin(origin))
			if err != nil {
				return nil, err
			}
			return r, nil
		})
	}

	if i.Layout == CompiledUltimate {
		builders = append(builders, func() (resolver.Resolver, error) {
			return libJars(ctx, filepath.Join(i.Path, "community", "lib"), mode, resolver.SourceLibDirectory{Host: host})
		})
	}

	composite, err := resolver.BuildComposite(builders...)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("opened compiled IDE",
		zap.String("path", i.Path), zap.String("layout", i.Layout.String()), zap.Int("modules", len(modules)))
	return composite, nil
}
