package resolver

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CompositeResolver consults its children in order. The first child that
// knows a class wins; later definitions of the same name are shadowed.
type CompositeResolver struct {
	children []Resolver
}

// NewComposite composes children in priority order. The composite owns the
// children and closes them on Close.
func NewComposite(children ...Resolver) *CompositeResolver {
	return &CompositeResolver{children: slices.Clone(children)}
}

// Compose is like NewComposite but avoids wrapping when there are zero or
// one children.
func Compose(children ...Resolver) Resolver {
	switch len(children) {
	case 0:
		return Empty
	case 1:
		return children[0]
	default:
		return NewComposite(children...)
	}
}

// Children returns the composed resolvers in priority order.
func (c *CompositeResolver) Children() []Resolver {
	return slices.Clone(c.children)
}

// ReadMode is Full only when every child reads fully.
func (c *CompositeResolver) ReadMode() ReadMode {
	for _, child := range c.children {
		if child.ReadMode() != Full {
			return Signatures
		}
	}
	return Full
}

func (c *CompositeResolver) ResolveClass(name string) Result {
	for _, child := range c.children {
		if res := child.ResolveClass(name); !isNotFound(res) {
			return res
		}
	}
	return NotFound{}
}

func (c *CompositeResolver) ContainsClass(name string) bool {
	for _, child := range c.children {
		if child.ContainsClass(name) {
			return true
		}
	}
	return false
}

func (c *CompositeResolver) ContainsPackage(pkg string) bool {
	for _, child := range c.children {
		if child.ContainsPackage(pkg) {
			return true
		}
	}
	return false
}

// AllClasses yields the classes of every child. A name indexed by several
// children is yielded once per child.
func (c *CompositeResolver) AllClasses() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, child := range c.children {
			for name := range child.AllClasses() {
				if !yield(name) {
					return
				}
			}
		}
	}
}

// AllPackages yields each package of every child once.
func (c *CompositeResolver) AllPackages() iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]struct{})
		for _, child := range c.children {
			for pkg := range child.AllPackages() {
				if _, ok := seen[pkg]; ok {
					continue
				}
				seen[pkg] = struct{}{}
				if !yield(pkg) {
					return
				}
			}
		}
	}
}

func (c *CompositeResolver) ProcessAllClasses(visit func(Result) bool) bool {
	for _, child := range c.children {
		if !child.ProcessAllClasses(visit) {
			return false
		}
	}
	return true
}

// Close closes the children in reverse order. Every child is closed even
// if some fail; the failures are combined.
func (c *CompositeResolver) Close() error {
	return CloseAll(c.children)
}

func (c *CompositeResolver) String() string {
	names := make([]string, len(c.children))
	for i, child := range c.children {
		names[i] = fmt.Sprint(child)
	}
	return "CompositeResolver[" + strings.Join(names, ", ") + "]"
}

// CloseAll closes resolvers in reverse order, logging and combining failures.
func CloseAll(resolvers []Resolver) error {
	var err error
	for i := len(resolvers) - 1; i >= 0; i-- {
		if closeErr := resolvers[i].Close(); closeErr != nil {
			zap.L().Warn("closing resolver", zap.Stringer("resolver", stringer{resolvers[i]}), zap.Error(closeErr))
			err = multierr.Append(err, closeErr)
		}
	}
	return err
}

func isNotFound(r Result) bool {
	_, ok := r.(NotFound)
	return ok
}

type stringer struct {
	v any
}

func (s stringer) String() string {
	return fmt.Sprint(s.v)
}
