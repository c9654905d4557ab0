// Package plugindetails opens plugins for verification and caches the
// downloaded files they come from.
package plugindetails

import (
	"context"
	"errors"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/resolver"
)

// Details is an opened plugin: where its files live and a resolver over
// its classes.
type Details struct {
	Plugin   core.PluginInfo
	Path     string
	Resolver resolver.Resolver
}

// Close releases the plugin's class resolver.
func (d *Details) Close() error {
	if d.Resolver == nil {
		return nil
	}
	return d.Resolver.Close()
}

// Result is one of Provided, FileNotFound, FailedToDownload or BadPlugin.
type Result interface {
	isResult()
}

// Provided carries the opened plugin.
type Provided struct {
	Details *Details
}

// FileNotFound means the plugin's files do not exist at their source.
type FileNotFound struct {
	Reason string
}

// FailedToDownload means the plugin's files could not be fetched.
type FailedToDownload struct {
	Reason string
	Err    error
}

// BadPlugin means the plugin's files were obtained but cannot be opened.
type BadPlugin struct {
	Reason string
}

func (Provided) isResult()         {}
func (FileNotFound) isResult()     {}
func (FailedToDownload) isResult() {}
func (BadPlugin) isResult()        {}

func (f FailedToDownload) Unwrap() error { return f.Err }

// Entry is a lease on a cache result. Close it once the plugin is no
// longer used.
type Entry struct {
	result Result
}

// NewEntry wraps a result. Closing the entry closes provided details.
func NewEntry(r Result) *Entry {
	return &Entry{result: r}
}

// Result returns the outcome of the lookup.
func (e *Entry) Result() Result {
	return e.result
}

// Close releases the plugin held by the entry, if any.
func (e *Entry) Close() error {
	if p, ok := e.result.(Provided); ok && p.Details != nil {
		return p.Details.Close()
	}
	return nil
}

// Cache provides opened plugins. Get returns an error only when ctx is
// done; every other outcome is a Result.
type Cache interface {
	Get(ctx context.Context, plugin core.PluginInfo) (*Entry, error)
}

// ErrClosed is returned by Get after the cache has been closed.
var ErrClosed = errors.New("plugin details cache is closed")
