package main

import (
	"fmt"

	"github.com/git-pkgs/pluginverifier/client"
	"github.com/git-pkgs/pluginverifier/fetch"
	"github.com/git-pkgs/pluginverifier/internal/core"
)

// urlProvider is implemented by repositories that can build download URLs
// from plugin coordinates.
type urlProvider interface {
	URLs() core.URLBuilder
}

func (a *app) httpClient() *client.Client {
	h := a.cfg.HTTP
	c := client.NewClient(
		client.WithTimeout(h.Timeout),
		client.WithMaxRetries(h.MaxRetries),
		client.WithRateLimiter(client.NewRateLimiter(h.RateLimit, 1)),
	)
	if h.UserAgent != "" {
		c = c.WithUserAgent(h.UserAgent)
	}
	return c
}

// repositories creates the configured repositories and registers their
// URL builders with urls, when not nil.
func (a *app) repositories(urls *fetch.Resolver) ([]core.Repository, error) {
	c := a.httpClient()
	repos := make([]core.Repository, 0, len(a.cfg.Repositories))
	for i, rc := range a.cfg.Repositories {
		repo, err := core.New(rc.Kind, rc.URL, c)
		if err != nil {
			return nil, fmt.Errorf("repositories[%d]: %w", i, err)
		}
		if p, ok := repo.(urlProvider); ok && urls != nil {
			urls.RegisterURLs(repo.PresentableName(), p.URLs())
		}
		repos = append(repos, repo)
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("no repositories configured")
	}
	return repos, nil
}
