package resolver

import "iter"

type emptyResolver struct{}

// Empty resolves nothing. It stands in for optional containers that do not exist.
var Empty Resolver = emptyResolver{}

func (emptyResolver) ReadMode() ReadMode                       { return Full }
func (emptyResolver) ResolveClass(string) Result               { return NotFound{} }
func (emptyResolver) ContainsClass(string) bool                { return false }
func (emptyResolver) ContainsPackage(string) bool              { return false }
func (emptyResolver) AllClasses() iter.Seq[string]             { return func(func(string) bool) {} }
func (emptyResolver) AllPackages() iter.Seq[string]            { return func(func(string) bool) {} }
func (emptyResolver) ProcessAllClasses(func(Result) bool) bool { return true }
func (emptyResolver) Close() error                             { return nil }
func (emptyResolver) String() string                           { return "EmptyResolver" }
