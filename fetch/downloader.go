package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/git-pkgs/pluginverifier/internal/core"
)

// DownloadResult is one of Downloaded, DownloadNotFound or FailedToDownload.
type DownloadResult interface {
	isDownloadResult()
}

// Downloaded is a file or directory available on the local file system.
// Directories are referenced in place, never copied.
type Downloaded struct {
	Path        string
	Extension   string
	IsDirectory bool
}

// DownloadNotFound means the source answered that the resource does not exist.
type DownloadNotFound struct {
	Reason string
}

// FailedToDownload means the resource could not be fetched.
type FailedToDownload struct {
	Reason string
	Err    error
}

func (Downloaded) isDownloadResult()       {}
func (DownloadNotFound) isDownloadResult() {}
func (FailedToDownload) isDownloadResult() {}

func (f FailedToDownload) Unwrap() error { return f.Err }

// Outcome names the kind of r for logs and metrics.
func Outcome(r DownloadResult) string {
	switch r.(type) {
	case Downloaded:
		return "downloaded"
	case DownloadNotFound:
		return "not_found"
	case FailedToDownload:
		return "failed"
	default:
		return "unknown"
	}
}

// Downloader fetches the artifact identified by key. Files are written to
// target plus a detected extension. A non-nil error is returned only when
// ctx is done.
type Downloader[K any] interface {
	Download(ctx context.Context, key K, target string) (DownloadResult, error)
}

// DownloadObserver is notified of every download outcome.
type DownloadObserver interface {
	ObserveDownload(outcome string)
}

// URLDownloader downloads keys that map to file:// or http(s) URLs.
type URLDownloader[K any] struct {
	source   Source
	urlFor   func(K) (string, error)
	describe func(K) string
	observer DownloadObserver
}

// DownloaderOption configures a URLDownloader.
type DownloaderOption func(*downloaderOptions)

type downloaderOptions struct {
	observer DownloadObserver
}

// WithDownloadObserver reports every outcome to o.
func WithDownloadObserver(o DownloadObserver) DownloaderOption {
	return func(opts *downloaderOptions) {
		opts.observer = o
	}
}

// NewURLDownloader creates a downloader that fetches http(s) URLs from
// source. describe names a key in failure messages.
func NewURLDownloader[K any](source Source, urlFor func(K) (string, error), describe func(K) string, opts ...DownloaderOption) *URLDownloader[K] {
	var o downloaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &URLDownloader[K]{source: source, urlFor: urlFor, describe: describe, observer: o.observer}
}

// NewPluginDownloader downloads plugin artifacts located by r.
func NewPluginDownloader(source Source, r *Resolver, opts ...DownloaderOption) *URLDownloader[core.PluginInfo] {
	return NewURLDownloader(source,
		func(p core.PluginInfo) (string, error) {
			info, err := r.Resolve(p)
			if err != nil {
				return "", err
			}
			return info.URL, nil
		},
		func(p core.PluginInfo) string { return p.PresentableName() },
		opts...,
	)
}

// Download implements Downloader.
func (d *URLDownloader[K]) Download(ctx context.Context, key K, target string) (DownloadResult, error) {
	res, err := d.download(ctx, key, target)
	if err != nil {
		return nil, err
	}
	if d.observer != nil {
		d.observer.ObserveDownload(Outcome(res))
	}
	return res, nil
}

func (d *URLDownloader[K]) download(ctx context.Context, key K, target string) (DownloadResult, error) {
	rawURL, err := d.urlFor(key)
	if err != nil {
		return d.failed(key, err), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return d.failed(key, err), nil
	}

	switch u.Scheme {
	case "file":
		return d.copyLocal(key, rawURL, filepath.FromSlash(u.Path), target), nil
	case "http", "https":
		return d.fetchRemote(ctx, key, rawURL, target)
	default:
		return d.failed(key, fmt.Errorf("unsupported URL scheme %q", u.Scheme)), nil
	}
}

func (d *URLDownloader[K]) failed(key K, err error) FailedToDownload {
	return FailedToDownload{
		Reason: fmt.Sprintf("Unable to download %s: %v", d.describe(key), err),
		Err:    err,
	}
}

func notFound(rawURL string) DownloadNotFound {
	return DownloadNotFound{Reason: "Resource is not found by URL " + rawURL}
}

func (d *URLDownloader[K]) copyLocal(key K, rawURL, src, target string) DownloadResult {
	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		return notFound(rawURL)
	}
	if err != nil {
		return d.failed(key, err)
	}
	if info.IsDir() {
		return Downloaded{Path: src, IsDirectory: true}
	}

	ext := GuessExtension("", "", src)
	in, err := os.Open(src)
	if err != nil {
		return d.failed(key, err)
	}
	defer func() { _ = in.Close() }()

	dst, err := writeAtomically(in, target, ext)
	if err != nil {
		return d.failed(key, err)
	}
	return Downloaded{Path: dst, Extension: ext}
}

func (d *URLDownloader[K]) fetchRemote(ctx context.Context, key K, rawURL, target string) (DownloadResult, error) {
	artifact, err := d.source.Fetch(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNotFound) {
			return notFound(rawURL), nil
		}
		return d.failed(key, err), nil
	}
	defer func() { _ = artifact.Body.Close() }()

	ext := GuessExtension(artifact.ContentDisposition, artifact.ContentType, rawURL)
	dst, err := writeAtomically(artifact.Body, target, ext)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return d.failed(key, err), nil
	}
	zap.L().Debug("downloaded artifact", zap.String("url", rawURL), zap.String("path", dst))
	return Downloaded{Path: dst, Extension: ext}, nil
}

// writeAtomically copies r into a temporary sibling of target and renames
// it to target.ext once complete.
func writeAtomically(r io.Reader, target, ext string) (path string, err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp := filepath.Join(dir, filepath.Base(target)+".download-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	_, err = io.Copy(f, r)
	err = multierr.Append(err, f.Close())
	if err != nil {
		return "", err
	}

	dst := target + "." + ext
	if err = os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}

var knownExtensions = []string{"tar.gz", "tar.bz2", "jar", "zip", "txt", "html", "xml", "json"}

// GuessExtension picks the file extension of a download from the
// Content-Disposition file name, then the content type, then the URL path.
// It falls back to "zip".
func GuessExtension(contentDisposition, contentType, rawURL string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if ext := extensionOf(params["filename"]); ext != "" {
				return ext
			}
		}
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "application/java-archive":
				return "jar"
			case "application/json":
				return "json"
			}
		}
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext := extensionOf(p); ext != "" {
		return ext
	}
	return "zip"
}

func extensionOf(name string) string {
	name = strings.ToLower(name)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(name, "."+ext) {
			return ext
		}
	}
	return ""
}
