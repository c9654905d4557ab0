// Package pluginverifier resolves the classes of plugins and host builds
// and finds the plugin builds a plugin depends on.
//
// The root package re-exports the plugin model and the repository
// registry. Class resolution lives in the resolver, hierarchy and ide
// packages; build selection and dependency lookup in dependencies.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/pluginverifier"
//		_ "github.com/git-pkgs/pluginverifier/all"
//	)
//
//	repo, err := pluginverifier.New("marketplace", "", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	host := version.MustParse("IU-241.15989")
//	plugin, err := repo.LastCompatibleVersionOfPlugin(context.Background(), host, "org.jetbrains.kotlin")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(plugin.PresentableName())
//
// Repository kinds register themselves when their package is imported;
// the all package imports every kind.
package pluginverifier

import (
	"context"

	"github.com/git-pkgs/pluginverifier/client"
	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

// Re-export types from internal/core
type (
	// Repository is the query contract every plugin repository implements.
	Repository = core.Repository

	// PluginInfo is a plugin build: bundled, local or repository-hosted.
	PluginInfo = core.PluginInfo

	// Identity holds what every plugin build declares about itself.
	Identity = core.Identity

	BundledPlugin  = core.BundledPlugin
	LocalPlugin    = core.LocalPlugin
	PluginArtifact = core.PluginArtifact

	// Host is a build plugins are verified against.
	Host = core.Host

	// PURL is a parsed package URL naming a plugin.
	PURL = core.PURL
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for repository APIs.
	Client = client.Client

	// URLBuilder constructs URLs for a repository.
	URLBuilder = client.URLBuilder

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter

	// Option configures a Client.
	Option = client.Option
)

// Re-export errors
var (
	ErrNotFound        = core.ErrNotFound
	ErrNotSerializable = core.ErrNotSerializable
)

// Error types
type (
	HTTPError      = client.HTTPError
	NotFoundError  = core.NotFoundError
	RateLimitError = client.RateLimitError
)

// EmptyRepository knows no plugins.
var EmptyRepository = core.EmptyRepository

// New creates a repository of the given kind.
// If baseURL is empty, the kind's default URL is used.
// If c is nil, DefaultClient() is used.
//
// Supported kinds: "marketplace", "custom", "maven"
func New(kind string, baseURL string, c *Client) (Repository, error) {
	return core.New(kind, baseURL, c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// WithRateLimiter paces every request through a limiter.
var WithRateLimiter = client.WithRateLimiter

// NewRateLimiter returns a token bucket limiter; a non-positive rate means unlimited.
var NewRateLimiter = client.NewRateLimiter

// SupportedKinds returns all registered repository kinds.
// Note: kinds must be imported to be registered.
func SupportedKinds() []string {
	return core.SupportedKinds()
}

// DefaultURL returns the default URL of a repository kind.
func DefaultURL(kind string) string {
	return core.DefaultURL(kind)
}

// BuildURLs returns a map of all non-empty URLs for a plugin build.
// Keys are "browse", "download", "source", and "purl".
func BuildURLs(urls URLBuilder, pluginID, version string) map[string]string {
	return client.BuildURLs(urls, pluginID, version)
}

// NewLocalRepository serves plugins found on disk.
func NewLocalRepository(plugins ...*LocalPlugin) Repository {
	return core.NewLocalRepository(plugins...)
}

// NewBundledRepository serves the plugins bundled with host.
func NewBundledRepository(host *Host) Repository {
	return core.NewBundledRepository(host)
}

// ParsePURL parses a Package URL string into its components.
// Supports plugin PURLs (pkg:jetbrains/org.example) and version PURLs
// (pkg:jetbrains/org.example@1.0).
func ParsePURL(purl string) (*PURL, error) {
	return core.ParsePURL(purl)
}

// PluginPURL renders the package URL of a plugin build.
func PluginPURL(plugin PluginInfo) string {
	return core.PluginPURL(plugin)
}

// NewFromPURL creates a repository from a PURL and returns the parsed components.
// Returns the repository, plugin id, and version (empty if not in PURL).
func NewFromPURL(purl string, c *Client) (Repository, string, string, error) {
	return core.NewFromPURL(purl, c)
}

// FetchPluginFromPURL looks up the exact plugin build named by a PURL.
// Returns an error if the PURL doesn't include a version.
func FetchPluginFromPURL(ctx context.Context, purl string, c *Client) (PluginInfo, error) {
	return core.FetchPluginFromPURL(ctx, purl, c)
}

// LastCompatible returns the newest build of id compatible with host, or
// nil when there is none.
func LastCompatible(ctx context.Context, repo Repository, host version.Version, id string) (PluginInfo, error) {
	return repo.LastCompatibleVersionOfPlugin(ctx, host, id)
}

// BulkLastCompatible looks up the last compatible build of every id in parallel.
// Ids that fail or have no compatible build are omitted.
// Returns a map of plugin id to PluginInfo.
func BulkLastCompatible(ctx context.Context, repo Repository, host version.Version, ids []string) map[string]PluginInfo {
	return core.BulkLastCompatible(ctx, repo, host, ids)
}

// BulkLastCompatibleWithConcurrency is BulkLastCompatible with a custom concurrency limit.
func BulkLastCompatibleWithConcurrency(ctx context.Context, repo Repository, host version.Version, ids []string, concurrency int) map[string]PluginInfo {
	return core.BulkLastCompatibleWithConcurrency(ctx, repo, host, ids, concurrency)
}
