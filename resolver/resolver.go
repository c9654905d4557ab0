// Package resolver looks up and enumerates compiled classes across the
// containers a verification target is made of: directories of class files,
// jar and zip archives, the runtime module image of a JDK, and priority
// ordered compositions of those.
//
// Every resolver answers class lookups with a Result that keeps track of
// where a class came from (its Origin), and distinguishes classes that are
// absent from classes whose bytes cannot be read or decoded.
//
//	jar, err := resolver.NewJar("plugin.jar", resolver.WithOrigin(resolver.SingleJar{Plugin: "com.example"}))
//	if err != nil {
//		return err
//	}
//	defer jar.Close()
//
//	switch res := jar.ResolveClass("com/example/Action").(type) {
//	case resolver.Found:
//		fmt.Println(res.Class.SuperName, resolver.Describe(res.Origin))
//	case resolver.Invalid:
//		fmt.Println("broken class:", res.Reason)
//	}
package resolver

import (
	"io"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/git-pkgs/pluginverifier/classfile"
)

// ReadMode selects how much of each class is decoded.
type ReadMode = classfile.ReadMode

const (
	Signatures = classfile.Signatures
	Full       = classfile.Full
)

// Resolver is the lookup and enumeration contract shared by every class source.
//
// Resolvers are not mutated after construction and are safe for concurrent
// reads. Close releases every handle the resolver opened.
type Resolver interface {
	// ReadMode reports how classes returned by ResolveClass are decoded.
	ReadMode() ReadMode

	// ResolveClass looks up a class by binary name ("a/b/C").
	ResolveClass(name string) Result

	// ContainsClass reports whether name is indexed, without decoding it.
	ContainsClass(name string) bool

	// ContainsPackage reports whether any class lives in pkg or below it.
	ContainsPackage(pkg string) bool

	// AllClasses enumerates binary names. The sequence may be iterated more than once.
	AllClasses() iter.Seq[string]

	// AllPackages enumerates binary package names, parents included.
	AllPackages() iter.Seq[string]

	// ProcessAllClasses resolves every class in turn and hands the result to
	// visit. It stops as soon as visit returns false and reports whether all
	// classes were visited.
	ProcessAllClasses(visit func(Result) bool) bool

	io.Closer
}

// PackageSet records binary package names together with all their parents,
// so that "a/b/C" makes both "a/b" and "a" known.
type PackageSet struct {
	packages map[string]struct{}
}

// NewPackageSet returns an empty set.
func NewPackageSet() *PackageSet {
	return &PackageSet{packages: make(map[string]struct{})}
}

// AddClass records the package of a binary class name.
func (s *PackageSet) AddClass(binaryName string) {
	s.AddPackage(classfile.Package(binaryName))
}

// AddPackage records pkg and its parents.
func (s *PackageSet) AddPackage(pkg string) {
	for pkg != "" {
		if _, ok := s.packages[pkg]; ok {
			return
		}
		s.packages[pkg] = struct{}{}
		i := strings.LastIndexByte(pkg, '/')
		if i < 0 {
			return
		}
		pkg = pkg[:i]
	}
}

// Contains reports whether pkg was recorded.
func (s *PackageSet) Contains(pkg string) bool {
	_, ok := s.packages[pkg]
	return ok
}

// All enumerates recorded packages in sorted order.
func (s *PackageSet) All() iter.Seq[string] {
	return slices.Values(slices.Sorted(maps.Keys(s.packages)))
}

// Len returns the number of recorded packages.
func (s *PackageSet) Len() int {
	return len(s.packages)
}

// ClassName converts a path inside a container ("a/b/C.class") to a binary
// class name. ok is false for paths that do not name a class file.
func ClassName(path string) (name string, ok bool) {
	if !strings.HasSuffix(path, ".class") {
		return "", false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(path, "/"), ".class")
	if name == "" {
		return "", false
	}
	return strings.ReplaceAll(name, "\\", "/"), true
}
