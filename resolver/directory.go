package resolver

import (
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// DirectoryResolver resolves class files below a directory.
type DirectoryResolver struct {
	*indexed[string]
	root string
}

// NewDirectory indexes every class file below root.
//
// In Signatures mode only names are indexed; unreadable subdirectories are
// skipped and per-class read or decode failures surface from ResolveClass.
// In Full mode every class is decoded up front and the first broken class
// fails construction.
func NewDirectory(root string, opts ...Option) (*DirectoryResolver, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening class directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening class directory: %s is not a directory", root)
	}
	o := buildOptions(opts)
	if o.origin == nil {
		o.origin = Directory{Path: root}
	}
	return newDirectory(os.DirFS(root), root, o)
}

// NewDirectoryFS indexes every class file in fsys. name labels the tree in
// diagnostics.
func NewDirectoryFS(fsys fs.FS, name string, opts ...Option) (*DirectoryResolver, error) {
	o := buildOptions(opts)
	if o.origin == nil {
		o.origin = Directory{Path: name}
	}
	return newDirectory(fsys, name, o)
}

func newDirectory(fsys fs.FS, root string, o options) (*DirectoryResolver, error) {
	r := &DirectoryResolver{
		indexed: newIndexed(o.mode, o.origin, "directory "+root, func(path string) ([]byte, error) {
			return fs.ReadFile(fsys, path)
		}),
		root: root,
	}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == "." || o.mode == Full {
				return err
			}
			zap.L().Debug("skipping unreadable path",
				zap.String("root", root),
				zap.String("path", path),
				zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if name, ok := ClassName(path); ok {
			r.add(name, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if o.mode == Full {
		if err := r.decodeAll(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Root returns the indexed directory.
func (r *DirectoryResolver) Root() string {
	return r.root
}
