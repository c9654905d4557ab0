package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ForPluginFile opens the classes of a plugin stored at path. A jar is
// resolved as a single archive; a directory contributes classes/ followed
// by every archive in lib/. plugin labels the origins.
func ForPluginFile(ctx context.Context, path string, mode ReadMode, plugin string) (Resolver, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin %s: %w", plugin, err)
	}

	if !info.IsDir() {
		if !IsJarOrZip(path) {
			return nil, fmt.Errorf("opening plugin %s: unsupported file %s", plugin, filepath.Base(path))
		}
		jar, err := NewJar(path, WithReadMode(mode), WithOrigin(SingleJar{Plugin: plugin}))
		if err != nil {
			return nil, err
		}
		return jar, nil
	}

	classes := filepath.Join(path, "classes")
	composite, err := BuildComposite(
		func() (Resolver, error) {
			if _, err := os.Stat(classes); os.IsNotExist(err) {
				return Empty, nil
			}
			dir, err := NewDirectory(classes, WithReadMode(mode), WithOrigin(PluginClassesDirectory{Plugin: plugin}))
			if err != nil {
				return nil, err
			}
			return dir, nil
		},
		func() (Resolver, error) {
			return NewJarsDirectory(ctx, filepath.Join(path, "lib"), mode, PluginLibDirectory{Plugin: plugin})
		},
	)
	if err != nil {
		return nil, err
	}
	return composite, nil
}
