package resolver

import (
	"fmt"
	"io/fs"

	"github.com/git-pkgs/pluginverifier/internal/jrtfs"
)

type moduleEntry struct {
	module string
	path   string
}

// RuntimeImageResolver resolves the built-in classes of a JDK from its
// module image.
type RuntimeImageResolver struct {
	*indexed[moduleEntry]
	home   string
	handle *jrtfs.Handle
}

// RuntimeOption configures NewRuntimeImage.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	mode     ReadMode
	strategy jrtfs.Strategy
}

// WithRuntimeReadMode sets how classes are decoded. The default is Signatures.
func WithRuntimeReadMode(m ReadMode) RuntimeOption {
	return func(o *runtimeOptions) {
		o.mode = m
	}
}

// WithSharedFileSystem forces reusing (true) or privately creating (false)
// the module filesystem. By default the image's Java version decides.
func WithSharedFileSystem(shared bool) RuntimeOption {
	return func(o *runtimeOptions) {
		if shared {
			o.strategy = jrtfs.Reuse
		} else {
			o.strategy = jrtfs.Create
		}
	}
}

// NewRuntimeImage walks every module of the JDK at home once, indexing which
// module owns each class.
func NewRuntimeImage(home string, opts ...RuntimeOption) (*RuntimeImageResolver, error) {
	o := runtimeOptions{mode: Signatures, strategy: jrtfs.Auto}
	for _, opt := range opts {
		opt(&o)
	}

	handle, err := jrtfs.Obtain(home, o.strategy)
	if err != nil {
		return nil, fmt.Errorf("opening runtime image %s: %w", home, err)
	}

	r := &RuntimeImageResolver{home: home, handle: handle}
	r.indexed = newIndexed(o.mode, JdkOrigin{Path: home}, "JDK "+home, r.read)
	r.release = handle.Release

	for _, module := range handle.Modules() {
		mod, _ := handle.Module(module)
		err := fs.WalkDir(mod, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if name, ok := ClassName(path); ok {
				r.add(name, moduleEntry{module: module, path: path})
			}
			return nil
		})
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("indexing module %s of %s: %w", module, home, err)
		}
	}
	return r, nil
}

func (r *RuntimeImageResolver) read(e moduleEntry) ([]byte, error) {
	mod, ok := r.handle.Module(e.module)
	if !ok {
		return nil, fmt.Errorf("module %s: %w", e.module, fs.ErrNotExist)
	}
	return fs.ReadFile(mod, e.path)
}

// ModuleOf returns the module that owns a class.
func (r *RuntimeImageResolver) ModuleOf(name string) (string, bool) {
	e, ok := r.locs[name]
	return e.module, ok
}

// Modules returns the module names of the image.
func (r *RuntimeImageResolver) Modules() []string {
	return r.handle.Modules()
}

// Home returns the JDK location.
func (r *RuntimeImageResolver) Home() string {
	return r.home
}
