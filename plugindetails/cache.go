package plugindetails

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/git-pkgs/pluginverifier/fetch"
	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/resolver"
)

const (
	lockSuffix     = ".lock"
	unpackedSuffix = ".d"
)

// FileCache keeps downloaded plugin artifacts under a directory as
// <dir>/<id>/<version>.<ext> and opens a fresh resolver for every Get.
// Local and bundled plugins are opened in place.
//
// Concurrent Gets of the same artifact share one download, and a file lock
// next to the target keeps separate processes from downloading it twice.
type FileCache struct {
	dir        string
	downloader fetch.Downloader[core.PluginInfo]
	mode       resolver.ReadMode
	lockRetry  time.Duration

	group  singleflight.Group
	closed atomic.Bool
}

var _ Cache = (*FileCache)(nil)

// Option configures a FileCache.
type Option func(*FileCache)

// WithReadMode sets how classes of opened plugins are decoded.
func WithReadMode(m resolver.ReadMode) Option {
	return func(c *FileCache) {
		c.mode = m
	}
}

// WithLockRetryDelay sets how often a held file lock is polled.
func WithLockRetryDelay(d time.Duration) Option {
	return func(c *FileCache) {
		c.lockRetry = d
	}
}

// NewFileCache creates a cache rooted at dir.
func NewFileCache(dir string, downloader fetch.Downloader[core.PluginInfo], opts ...Option) *FileCache {
	c := &FileCache{
		dir:        dir,
		downloader: downloader,
		mode:       resolver.Signatures,
		lockRetry:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache root.
func (c *FileCache) Dir() string {
	return c.dir
}

// Close stops the cache from serving new Gets. Entries already handed out
// stay valid until closed by their holders.
func (c *FileCache) Close() error {
	c.closed.Store(true)
	return nil
}

// Get implements Cache.
func (c *FileCache) Get(ctx context.Context, plugin core.PluginInfo) (*Entry, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var path string
	switch p := plugin.(type) {
	case *core.LocalPlugin:
		path = p.Path
	case *core.BundledPlugin:
		path = p.Path
	default:
		res, err := c.fetch(ctx, plugin)
		if err != nil {
			return nil, err
		}
		switch r := res.(type) {
		case fetch.Downloaded:
			path = r.Path
		case fetch.DownloadNotFound:
			return NewEntry(FileNotFound{Reason: r.Reason}), nil
		case fetch.FailedToDownload:
			return NewEntry(FailedToDownload{Reason: r.Reason, Err: r.Err}), nil
		}
	}

	if path == "" {
		return NewEntry(FileNotFound{Reason: fmt.Sprintf("Plugin %s has no files", plugin.PresentableName())}), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewEntry(FileNotFound{Reason: fmt.Sprintf("Plugin file %s is not found", path)}), nil
	}
	return c.open(ctx, plugin, path)
}

func (c *FileCache) open(ctx context.Context, plugin core.PluginInfo, path string) (*Entry, error) {
	r, err := resolver.ForPluginFile(ctx, path, c.mode, plugin.PresentableName())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return NewEntry(BadPlugin{Reason: fmt.Sprintf("Plugin %s is invalid: %v", plugin.PresentableName(), err)}), nil
	}
	return NewEntry(Provided{Details: &Details{Plugin: plugin, Path: path, Resolver: r}}), nil
}

func (c *FileCache) fetch(ctx context.Context, plugin core.PluginInfo) (fetch.DownloadResult, error) {
	// The shared download outlives any single caller; each caller stops
	// waiting on its own cancellation only.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(plugin.Key(), func() (any, error) {
		return c.download(shared, plugin)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("joined in-flight plugin download", zap.String("plugin", plugin.PresentableName()))
		}
		return res.Val.(fetch.DownloadResult), nil
	}
}

// target is the cache path of plugin without an extension.
func (c *FileCache) target(plugin core.PluginInfo) string {
	info := plugin.Info()
	return filepath.Join(c.dir, safeName(info.PluginID), safeName(info.Version))
}

func (c *FileCache) download(ctx context.Context, plugin core.PluginInfo) (fetch.DownloadResult, error) {
	target := c.target(plugin)
	if path, ok := cached(target); ok {
		return downloaded(path), nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fetch.FailedToDownload{Reason: fmt.Sprintf("Unable to create cache directory for %s: %v", plugin.PresentableName(), err), Err: err}, nil
	}

	lock := flock.New(target + lockSuffix)
	locked, err := lock.TryLockContext(ctx, c.lockRetry)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return fetch.FailedToDownload{Reason: fmt.Sprintf("Unable to lock %s: %v", target, err), Err: err}, nil
	}
	defer func() { _ = lock.Unlock() }()

	if path, ok := cached(target); ok {
		return downloaded(path), nil
	}

	zap.L().Debug("downloading plugin", zap.String("plugin", plugin.PresentableName()), zap.String("target", target))
	res, err := c.downloader.Download(ctx, plugin, target)
	if err != nil {
		return nil, err
	}

	d, ok := res.(fetch.Downloaded)
	if !ok || d.IsDirectory || d.Extension != "zip" {
		return res, nil
	}
	root, unpacked, err := unpackDistribution(d.Path, target+unpackedSuffix)
	if err != nil {
		return fetch.FailedToDownload{Reason: fmt.Sprintf("Unable to extract %s: %v", plugin.PresentableName(), err), Err: err}, nil
	}
	if unpacked {
		zap.L().Info("extracted plugin", zap.String("plugin", plugin.PresentableName()), zap.String("path", root))
		return fetch.Downloaded{Path: root, IsDirectory: true}, nil
	}
	return res, nil
}

func downloaded(path string) fetch.Downloaded {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fetch.Downloaded{Path: path, IsDirectory: true}
	}
	return fetch.Downloaded{Path: path, Extension: strings.TrimPrefix(filepath.Ext(path), ".")}
}

// cached finds a completed download of target, preferring an extracted
// distribution.
func cached(target string) (string, bool) {
	if root, ok := unpackedRoot(target + unpackedSuffix); ok {
		return root, true
	}
	for _, ext := range []string{"jar", "zip"} {
		if info, err := os.Stat(target + "." + ext); err == nil && !info.IsDir() {
			return target + "." + ext, true
		}
	}
	return "", false
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
