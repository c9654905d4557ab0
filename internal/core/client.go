package core

import (
	"github.com/git-pkgs/pluginverifier/client"
)

// Type aliases so repository implementations only import core.
type (
	RateLimiter    = client.RateLimiter
	Client         = client.Client
	Option         = client.Option
	URLBuilder     = client.URLBuilder
	BaseURLs       = client.BaseURLs
	HTTPError      = client.HTTPError
	RateLimitError = client.RateLimitError
)

// Function aliases.
var (
	DefaultClient   = client.DefaultClient
	NewClient       = client.NewClient
	WithTimeout     = client.WithTimeout
	WithMaxRetries  = client.WithMaxRetries
	WithRateLimiter = client.WithRateLimiter
	NewRateLimiter  = client.NewRateLimiter
	BuildURLs       = client.BuildURLs
)
