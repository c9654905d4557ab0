package resolver

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/git-pkgs/pluginverifier/classfile"
)

// indexed is a resolver over a name index built once at construction.
// L locates the bytes of a class inside the container.
type indexed[L any] struct {
	mode     ReadMode
	origin   Origin
	order    []string
	locs     map[string]L
	packages *PackageSet
	read     func(L) ([]byte, error)
	describe string

	// decoded holds classes decoded ahead of time, if any.
	decoded map[string]*classfile.ClassFile

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

func newIndexed[L any](mode ReadMode, origin Origin, describe string, read func(L) ([]byte, error)) *indexed[L] {
	if origin == nil {
		origin = Unknown
	}
	return &indexed[L]{
		mode:     mode,
		origin:   origin,
		locs:     make(map[string]L),
		packages: NewPackageSet(),
		read:     read,
		describe: describe,
	}
}

// add indexes name at loc unless it is already known.
func (r *indexed[L]) add(name string, loc L) {
	if _, ok := r.locs[name]; ok {
		return
	}
	r.locs[name] = loc
	r.order = append(r.order, name)
	r.packages.AddClass(name)
}

// decodeAll decodes every indexed class, failing on the first broken one.
func (r *indexed[L]) decodeAll() error {
	r.decoded = make(map[string]*classfile.ClassFile, len(r.order))
	for _, name := range r.order {
		data, err := r.read(r.locs[name])
		if err != nil {
			return fmt.Errorf("reading class %s from %s: %w", name, r.describe, err)
		}
		cf, err := classfile.Decode(name, data, r.mode)
		if err != nil {
			return err
		}
		r.decoded[name] = cf
	}
	return nil
}

func (r *indexed[L]) ReadMode() ReadMode {
	return r.mode
}

func (r *indexed[L]) ResolveClass(name string) Result {
	if cf, ok := r.decoded[name]; ok {
		return Found{Class: cf, Origin: r.origin}
	}
	loc, ok := r.locs[name]
	if !ok {
		return NotFound{}
	}
	data, err := r.read(loc)
	if err != nil {
		return FailedToRead{
			Reason: fmt.Sprintf("Unable to read class '%s' from %s: %v", name, r.describe, err),
			Err:    err,
		}
	}
	cf, err := classfile.Decode(name, data, r.mode)
	if err != nil {
		return Invalid{Reason: err.Error()}
	}
	return Found{Class: cf, Origin: r.origin}
}

func (r *indexed[L]) ContainsClass(name string) bool {
	_, ok := r.locs[name]
	return ok
}

func (r *indexed[L]) ContainsPackage(pkg string) bool {
	return r.packages.Contains(pkg)
}

func (r *indexed[L]) AllClasses() iter.Seq[string] {
	return slices.Values(r.order)
}

func (r *indexed[L]) AllPackages() iter.Seq[string] {
	return r.packages.All()
}

func (r *indexed[L]) ProcessAllClasses(visit func(Result) bool) bool {
	for _, name := range r.order {
		if !visit(r.ResolveClass(name)) {
			return false
		}
	}
	return true
}

// Len returns the number of indexed classes.
func (r *indexed[L]) Len() int {
	return len(r.order)
}

// Origin returns the origin attached to every class of this container.
func (r *indexed[L]) Origin() Origin {
	return r.origin
}

func (r *indexed[L]) String() string {
	return r.describe
}

func (r *indexed[L]) Close() error {
	r.closeOnce.Do(func() {
		if r.release != nil {
			r.closeErr = r.release()
		}
	})
	return r.closeErr
}
