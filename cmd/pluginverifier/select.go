package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pluginverifier/dependencies"
	"github.com/git-pkgs/pluginverifier/version"
)

func selector(strategy, exact, host string) (dependencies.VersionSelector, error) {
	switch strategy {
	case "last":
		return dependencies.Last{}, nil
	case "exact":
		if exact == "" {
			return nil, fmt.Errorf("--version is required with --strategy exact")
		}
		return dependencies.Exact{Version: exact}, nil
	case "last-compatible":
		if host == "" {
			return nil, fmt.Errorf("--host is required with --strategy last-compatible")
		}
		v, err := version.Parse(host)
		if err != nil {
			return nil, err
		}
		return dependencies.LastCompatible{Host: v}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (last, exact, last-compatible)", strategy)
	}
}

func newSelectCmd(a *app) *cobra.Command {
	var (
		strategy string
		exact    string
		host     string
		module   bool
	)
	cmd := &cobra.Command{
		Use:   "select <plugin-id>",
		Short: "Pick a plugin build from the configured repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := selector(strategy, exact, host)
			if err != nil {
				return err
			}
			repos, err := a.repositories(nil)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for _, repo := range repos {
				var sel dependencies.Selection
				if module {
					sel, err = s.SelectByModule(ctx, args[0], repo)
				} else {
					sel, err = s.SelectVersion(ctx, args[0], repo)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", repo.PresentableName(), err)
				}
				switch r := sel.(type) {
				case dependencies.Selected:
					info := r.Plugin.Info()
					fmt.Fprintf(out, "%s from %s (%s)\n", r.Plugin.PresentableName(), repo.PresentableName(), info.PresentableSinceUntil())
					return nil
				case dependencies.NotSelected:
					fmt.Fprintln(out, r.Reason)
				}
			}
			return fmt.Errorf("no build of %s selected", args[0])
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "last", "last, exact or last-compatible")
	cmd.Flags().StringVar(&exact, "version", "", "version for --strategy exact")
	cmd.Flags().StringVar(&host, "host", "", "host build for --strategy last-compatible")
	cmd.Flags().BoolVar(&module, "module", false, "treat the argument as a module name")
	return cmd
}
