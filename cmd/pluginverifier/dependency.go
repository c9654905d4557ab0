package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/git-pkgs/pluginverifier/dependencies"
	"github.com/git-pkgs/pluginverifier/fetch"
	"github.com/git-pkgs/pluginverifier/ide"
	"github.com/git-pkgs/pluginverifier/plugindetails"
	"github.com/git-pkgs/pluginverifier/resolver"
)

// services wires the download stack behind a plugin details cache.
type services struct {
	fetcher *fetch.Fetcher
	cache   *plugindetails.FileCache
	urls    *fetch.Resolver
}

func (a *app) newServices() *services {
	h := a.cfg.HTTP
	fetcher := fetch.NewFetcher(
		fetch.WithUserAgent(h.UserAgent),
		fetch.WithMaxRetries(h.MaxRetries),
	)
	urls := fetch.NewResolver()
	downloader := fetch.NewPluginDownloader(
		fetch.NewCircuitBreakerFetcher(fetcher), urls,
		fetch.WithDownloadObserver(a.metrics),
	)
	cache := plugindetails.NewFileCache(a.cfg.Cache.Dir, downloader, plugindetails.WithReadMode(a.cfg.Mode()))
	return &services{fetcher: fetcher, cache: cache, urls: urls}
}

func (s *services) Close() error {
	return multierr.Append(s.cache.Close(), s.fetcher.Close())
}

func newDependencyCmd(a *app) *cobra.Command {
	var (
		idePath string
		module  bool
	)
	cmd := &cobra.Command{
		Use:   "dependency <id>",
		Short: "Resolve a plugin dependency against a host build and the repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if idePath == "" {
				idePath = a.cfg.IDE.Path
			}
			if idePath == "" {
				return fmt.Errorf("--ide or ide.path is required")
			}
			opts, err := a.ideOptions()
			if err != nil {
				return err
			}
			host, err := ide.Open(idePath, opts...)
			if err != nil {
				return err
			}

			svc := a.newServices()
			defer func() { err = multierr.Append(err, svc.Close()) }()
			repos, err := a.repositories(svc.urls)
			if err != nil {
				return err
			}

			finders := []dependencies.Finder{dependencies.NewBundledFinder(host.Host(), svc.cache)}
			for _, repo := range repos {
				finders = append(finders, dependencies.NewRepositoryFinder(repo, dependencies.LastCompatible{Host: host.Version}, svc.cache))
			}
			res, err := dependencies.NewCompositeFinder(finders...).FindPluginDependency(cmd.Context(), args[0], module)
			if err != nil {
				return err
			}
			return printDependency(cmd.OutOrStdout(), args[0], res)
		},
	}
	cmd.Flags().StringVar(&idePath, "ide", "", "host build (defaults to ide.path)")
	cmd.Flags().BoolVar(&module, "module", false, "treat the argument as a module name")
	return cmd
}

func printDependency(out io.Writer, id string, res dependencies.Result) error {
	switch r := res.(type) {
	case dependencies.NotFound:
		fmt.Fprintf(out, "%s is not resolved:\n%s\n", id, r.Reason)
		return nil
	case dependencies.DetailsProvided:
		defer func() { _ = r.Entry.Close() }()
		switch d := r.Entry.Result().(type) {
		case plugindetails.Provided:
			classes := 0
			for range d.Details.Resolver.AllClasses() {
				classes++
			}
			fmt.Fprintf(out, "%s resolved to %s at %s (%d classes, %s)\n",
				id, d.Details.Plugin.PresentableName(), d.Details.Path, classes, describeRoot(d.Details.Resolver))
		case plugindetails.FileNotFound:
			fmt.Fprintf(out, "%s: %s\n", id, d.Reason)
		case plugindetails.FailedToDownload:
			fmt.Fprintf(out, "%s: %s\n", id, d.Reason)
		case plugindetails.BadPlugin:
			fmt.Fprintf(out, "%s: %s\n", id, d.Reason)
		}
		return nil
	default:
		return fmt.Errorf("unexpected result %T", res)
	}
}

func describeRoot(r resolver.Resolver) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return "classes"
}
