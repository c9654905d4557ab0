package resolver

import "strings"

// Origin describes the container a class was read from. Origins form an
// immutable chain towards the outermost container through Parent.
type Origin interface {
	// Parent returns the enclosing origin, or nil.
	Parent() Origin
	// String describes this link of the chain only.
	String() string
}

// IdeLibDirectory is the lib directory of a host distribution.
type IdeLibDirectory struct {
	Host string
}

func (IdeLibDirectory) Parent() Origin   { return nil }
func (o IdeLibDirectory) String() string { return "lib directory of " + o.Host }

// RepositoryLibrary is a third-party library referenced by a host built from sources.
type RepositoryLibrary struct {
	Host string
}

func (RepositoryLibrary) Parent() Origin   { return nil }
func (o RepositoryLibrary) String() string { return "repository library of " + o.Host }

// SourceLibDirectory is the lib directory of a host source checkout.
type SourceLibDirectory struct {
	Host string
}

func (SourceLibDirectory) Parent() Origin   { return nil }
func (o SourceLibDirectory) String() string { return "source lib directory of " + o.Host }

// CompiledModule is the compiler output of one module of a host source checkout.
type CompiledModule struct {
	Host   string
	Module string
}

func (CompiledModule) Parent() Origin { return nil }
func (o CompiledModule) String() string {
	return "compiled module " + o.Module + " of " + o.Host
}

// SingleJar is a plugin distributed as one jar.
type SingleJar struct {
	Plugin string
}

func (SingleJar) Parent() Origin   { return nil }
func (o SingleJar) String() string { return "plugin " + o.Plugin }

// PluginLibDirectory is the lib directory of a plugin distributed as a directory.
type PluginLibDirectory struct {
	Plugin string
}

func (PluginLibDirectory) Parent() Origin   { return nil }
func (o PluginLibDirectory) String() string { return "lib directory of plugin " + o.Plugin }

// PluginClassesDirectory is the classes directory of a plugin distributed as a directory.
type PluginClassesDirectory struct {
	Plugin string
}

func (PluginClassesDirectory) Parent() Origin   { return nil }
func (o PluginClassesDirectory) String() string { return "classes directory of plugin " + o.Plugin }

// JarOrZip is an archive, possibly nested in another container.
type JarOrZip struct {
	Name string
	In   Origin
}

func (o JarOrZip) Parent() Origin { return o.In }
func (o JarOrZip) String() string { return "jar " + o.Name }

// Directory is a plain directory of class files.
type Directory struct {
	Path string
	In   Origin
}

func (o Directory) Parent() Origin { return o.In }
func (o Directory) String() string { return "directory " + o.Path }

// JdkOrigin is the runtime module image of a JDK.
type JdkOrigin struct {
	Path string
}

func (JdkOrigin) Parent() Origin   { return nil }
func (o JdkOrigin) String() string { return "JDK " + o.Path }

type unknownOrigin struct{}

func (unknownOrigin) Parent() Origin { return nil }
func (unknownOrigin) String() string { return "unknown origin" }

// Unknown is used when a container does not carry provenance.
var Unknown Origin = unknownOrigin{}

// Chain returns o followed by all its parents.
func Chain(o Origin) []Origin {
	var chain []Origin
	for ; o != nil; o = o.Parent() {
		chain = append(chain, o)
	}
	return chain
}

// Describe renders the whole chain, innermost first:
// "jar util.jar inside lib directory of plugin com.example".
func Describe(o Origin) string {
	chain := Chain(o)
	parts := make([]string, len(chain))
	for i, link := range chain {
		parts[i] = link.String()
	}
	return strings.Join(parts, " inside ")
}

// Find returns the first origin of type T in the chain of o.
func Find[T Origin](o Origin) (T, bool) {
	for ; o != nil; o = o.Parent() {
		if t, ok := o.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
