package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pluginverifier/internal/jrtfs"
	"github.com/git-pkgs/pluginverifier/resolver"
)

func newJDKCmd(a *app) *cobra.Command {
	var modules bool
	cmd := &cobra.Command{
		Use:   "jdk [home]",
		Short: "Describe a JDK runtime image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := a.cfg.JDKPath()
			if len(args) == 1 {
				home, err = args[0], nil
			}
			if err != nil {
				return err
			}
			home = jrtfs.ResolveHome(home)

			out := cmd.OutOrStdout()
			release, err := jrtfs.ReadRelease(home)
			if err == nil {
				for _, key := range []string{"IMPLEMENTOR", "JAVA_VERSION"} {
					if v, ok := release[key]; ok {
						fmt.Fprintf(out, "%s: %s\n", key, v)
					}
				}
			}
			fmt.Fprintf(out, "feature version: %d\n", jrtfs.JavaVersion(home))

			if !modules {
				return nil
			}
			r, err := resolver.NewRuntimeImage(home, resolver.WithRuntimeReadMode(a.cfg.Mode()))
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()
			for _, m := range slices.Sorted(slices.Values(r.Modules())) {
				fmt.Fprintln(out, m)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&modules, "modules", false, "list the modules of the image")
	return cmd
}
