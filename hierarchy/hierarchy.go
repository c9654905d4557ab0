// Package hierarchy answers subclass and supertype questions over any
// resolver. Every call uses its own visited set, so a Walker can be shared
// between goroutines as long as the resolver behind it can.
package hierarchy

import (
	"github.com/git-pkgs/pluginverifier/classfile"
	"github.com/git-pkgs/pluginverifier/resolver"
)

// ObjectClass is the root of every class hierarchy.
const ObjectClass = "java/lang/Object"

// ClassResolver is the part of resolver.Resolver the walker needs.
type ClassResolver interface {
	ResolveClass(name string) resolver.Result
}

// Walker traverses superclass and, optionally, interface edges.
type Walker struct {
	Resolver   ClassResolver
	Interfaces bool
}

// New returns a walker that follows both superclasses and interfaces.
func New(r ClassResolver) *Walker {
	return &Walker{Resolver: r, Interfaces: true}
}

// IsSubclassOf reports whether ancestor is reachable from child's parents.
// Parents that cannot be resolved are dead ends, not errors.
func (w *Walker) IsSubclassOf(child, ancestor string) bool {
	if ancestor == ObjectClass {
		return true
	}
	cf, ok := w.resolve(child)
	if !ok {
		return false
	}
	return w.IsClassSubclassOf(cf, ancestor)
}

// IsSubclassOrSelf is IsSubclassOf that also accepts child == ancestor.
func (w *Walker) IsSubclassOrSelf(child, ancestor string) bool {
	return child == ancestor || w.IsSubclassOf(child, ancestor)
}

// IsClassSubclassOf is IsSubclassOf for an already resolved class.
func (w *Walker) IsClassSubclassOf(child *classfile.ClassFile, ancestor string) bool {
	if ancestor == ObjectClass {
		return true
	}

	visited := map[string]struct{}{child.Name: {}}
	queue := child.Parents(w.Interfaces)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}

		if name == ancestor {
			return true
		}
		cf, ok := w.resolve(name)
		if !ok {
			continue
		}
		queue = append(queue, cf.Parents(w.Interfaces)...)
	}
	return false
}

func (w *Walker) resolve(name string) (*classfile.ClassFile, bool) {
	if found, ok := w.Resolver.ResolveClass(name).(resolver.Found); ok {
		return found.Class, true
	}
	return nil, false
}
