package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Builder constructs one resolver.
type Builder func() (Resolver, error)

// Build runs builders in order. If one fails, the resolvers already built
// are closed before the error is returned.
func Build(builders ...Builder) ([]Resolver, error) {
	built := make([]Resolver, 0, len(builders))
	for _, build := range builders {
		r, err := build()
		if err != nil {
			return nil, multierr.Append(err, CloseAll(built))
		}
		built = append(built, r)
	}
	return built, nil
}

// BuildComposite builds the children and composes them in order.
func BuildComposite(builders ...Builder) (*CompositeResolver, error) {
	children, err := Build(builders...)
	if err != nil {
		return nil, err
	}
	return NewComposite(children...), nil
}

// IsJarOrZip reports whether path names a jar or zip archive.
func IsJarOrZip(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jar" || ext == ".zip"
}

// BuildJars opens the archives in paths concurrently and returns them in
// the order of paths. Each archive gets a JarOrZip origin below parent.
// If any archive fails to open, every archive opened so far is closed.
func BuildJars(ctx context.Context, paths []string, mode ReadMode, parent Origin) ([]Resolver, error) {
	built := make([]Resolver, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			jar, err := NewJar(path,
				WithReadMode(mode),
				WithOrigin(JarOrZip{Name: filepath.Base(path), In: parent}))
			if err != nil {
				return err
			}
			built[i] = jar
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		opened := slices.DeleteFunc(built, func(r Resolver) bool { return r == nil })
		return nil, multierr.Append(err, CloseAll(opened))
	}
	return built, nil
}

// JarsInDirectory lists the jar and zip archives directly inside dir,
// sorted by name. A missing directory yields no archives.
func JarsInDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var jars []string
	for _, e := range entries {
		if !e.IsDir() && IsJarOrZip(e.Name()) {
			jars = append(jars, filepath.Join(dir, e.Name()))
		}
	}
	return jars, nil
}

// NewJarsDirectory composes every archive in dir. A missing directory
// yields Empty.
func NewJarsDirectory(ctx context.Context, dir string, mode ReadMode, parent Origin) (Resolver, error) {
	jars, err := JarsInDirectory(dir)
	if err != nil {
		return nil, err
	}
	children, err := BuildJars(ctx, jars, mode, parent)
	if err != nil {
		return nil, err
	}
	return Compose(children...), nil
}
