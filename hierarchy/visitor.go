package hierarchy

import (
	"github.com/git-pkgs/pluginverifier/classfile"
	"github.com/git-pkgs/pluginverifier/resolver"
)

// Visitor receives callbacks from VisitParents. Nil callbacks are skipped.
type Visitor struct {
	// OnEnter is called before a class's parents are visited. Returning
	// false prunes the class: its parents are skipped and OnExit is not called.
	OnEnter func(cf *classfile.ClassFile) bool

	// OnExit is called after all parents of a class have been visited.
	OnExit func(cf *classfile.ClassFile)

	// OnUnresolved is called once for each parent name that does not
	// resolve, with the class that references it and the lookup result.
	OnUnresolved func(name string, child *classfile.ClassFile, res resolver.Result)
}

// VisitParents walks the parent graph of start depth first. When visitSelf
// is false, start itself gets no callbacks but its parents are walked.
// Each class is visited at most once.
func (w *Walker) VisitParents(start *classfile.ClassFile, visitSelf bool, v Visitor) {
	visited := make(map[string]struct{})
	w.visit(start, visitSelf, v, visited)
}

func (w *Walker) visit(cf *classfile.ClassFile, self bool, v Visitor, visited map[string]struct{}) {
	visited[cf.Name] = struct{}{}
	if self && v.OnEnter != nil && !v.OnEnter(cf) {
		return
	}

	for _, parent := range cf.Parents(w.Interfaces) {
		if _, ok := visited[parent]; ok {
			continue
		}
		res := w.Resolver.ResolveClass(parent)
		found, ok := res.(resolver.Found)
		if !ok {
			visited[parent] = struct{}{}
			if v.OnUnresolved != nil {
				v.OnUnresolved(parent, cf, res)
			}
			continue
		}
		w.visit(found.Class, true, v, visited)
	}

	if self && v.OnExit != nil {
		v.OnExit(cf)
	}
}

// Supertypes returns the names of every resolvable supertype of start in
// visiting order, followed by the names that could not be resolved.
func (w *Walker) Supertypes(start *classfile.ClassFile) (resolved, unresolved []string) {
	w.VisitParents(start, false, Visitor{
		OnEnter: func(cf *classfile.ClassFile) bool {
			resolved = append(resolved, cf.Name)
			return true
		},
		OnUnresolved: func(name string, _ *classfile.ClassFile, _ resolver.Result) {
			unresolved = append(unresolved, name)
		},
	})
	return resolved, unresolved
}
