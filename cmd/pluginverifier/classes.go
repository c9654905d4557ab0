package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/git-pkgs/pluginverifier/hierarchy"
	"github.com/git-pkgs/pluginverifier/ide"
	"github.com/git-pkgs/pluginverifier/resolver"
)

// openClasses composes the classes of paths in order, optionally followed
// by the configured JDK. Each path may be a host build, a plugin jar, a
// plugin directory or a plain directory of class files.
func (a *app) openClasses(ctx context.Context, paths []string, withJDK bool) (resolver.Resolver, error) {
	mode := a.cfg.Mode()
	builders := make([]resolver.Builder, 0, len(paths)+1)
	for _, path := range paths {
		builders = append(builders, func() (resolver.Resolver, error) {
			return a.openPath(ctx, path, mode)
		})
	}
	if withJDK {
		home, err := a.cfg.JDKPath()
		if err != nil {
			return nil, err
		}
		builders = append(builders, func() (resolver.Resolver, error) {
			r, err := resolver.NewRuntimeImage(home, resolver.WithRuntimeReadMode(mode))
			if err != nil {
				return nil, err
			}
			return r, nil
		})
	}

	composite, err := resolver.BuildComposite(builders...)
	if err != nil {
		return nil, err
	}
	return resolver.Instrument(composite, a.metrics), nil
}

func (a *app) openPath(ctx context.Context, path string, mode resolver.ReadMode) (resolver.Resolver, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return resolver.ForPluginFile(ctx, path, mode, filepath.Base(path))
	}

	if layout := ide.DetectLayout(path); layout != ide.Invalid {
		opts, err := a.ideOptions()
		if err != nil {
			return nil, err
		}
		zap.L().Debug("opening host build", zap.String("path", path), zap.Stringer("layout", layout))
		return ide.CreateResolver(ctx, path, mode, opts...)
	}

	if isDir(filepath.Join(path, "classes")) || isDir(filepath.Join(path, "lib")) {
		return resolver.ForPluginFile(ctx, path, mode, filepath.Base(path))
	}
	dir, err := resolver.NewDirectory(path, resolver.WithReadMode(mode), resolver.WithOrigin(resolver.Directory{Path: path}))
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func (a *app) ideOptions() ([]ide.Option, error) {
	v, err := a.cfg.IDEVersion()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return []ide.Option{ide.WithVersion(v)}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func newClassesCmd(a *app) *cobra.Command {
	var packages bool
	cmd := &cobra.Command{
		Use:   "classes <path>...",
		Short: "List the classes, or packages, of plugins and host builds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openClasses(cmd.Context(), args, false)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			seq := r.AllClasses()
			if packages {
				seq = r.AllPackages()
			}
			names := slices.Sorted(seq)
			out := cmd.OutOrStdout()
			for _, name := range slices.Compact(names) {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&packages, "packages", false, "list packages instead of classes")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		paths []string
		jdk   bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <class>...",
		Short: "Show where classes resolve from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openClasses(cmd.Context(), paths, jdk)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			out := cmd.OutOrStdout()
			for _, name := range args {
				fmt.Fprintf(out, "%s: %s\n", name, describeResult(r.ResolveClass(binaryName(name))))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&paths, "path", "p", nil, "class sources in priority order")
	cmd.Flags().BoolVar(&jdk, "jdk", false, "append the configured JDK")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newSubclassCmd(a *app) *cobra.Command {
	var (
		paths []string
		jdk   bool
	)
	cmd := &cobra.Command{
		Use:   "subclass <child> <ancestor>",
		Short: "Check whether a class inherits from another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openClasses(cmd.Context(), paths, jdk)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			child, ancestor := binaryName(args[0]), binaryName(args[1])
			w := hierarchy.New(r)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s extends %s: %t\n", child, ancestor, w.IsSubclassOrSelf(child, ancestor))

			if found, ok := r.ResolveClass(child).(resolver.Found); ok {
				resolved, unresolved := w.Supertypes(found.Class)
				fmt.Fprintf(out, "supertypes: %s\n", strings.Join(resolved, ", "))
				if len(unresolved) > 0 {
					fmt.Fprintf(out, "unresolved: %s\n", strings.Join(unresolved, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&paths, "path", "p", nil, "class sources in priority order")
	cmd.Flags().BoolVar(&jdk, "jdk", false, "append the configured JDK")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// binaryName accepts both "a.b.C" and "a/b/C".
func binaryName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

func describeResult(res resolver.Result) string {
	switch r := res.(type) {
	case resolver.Found:
		return resolver.Describe(r.Origin)
	case resolver.NotFound:
		return "not found"
	case resolver.Invalid:
		return "invalid: " + r.Reason
	case resolver.FailedToRead:
		return "failed to read: " + r.Reason
	default:
		return resolver.Kind(res)
	}
}
