package main

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "github.com/git-pkgs/pluginverifier/all"
	"github.com/git-pkgs/pluginverifier/config"
	"github.com/git-pkgs/pluginverifier/internal/logging"
	"github.com/git-pkgs/pluginverifier/internal/metrics"
)

// Version information set by build flags.
var (
	buildVersion = "dev"
	commit       = "none"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfgFile     string
	logLevel    string
	readMode    string
	showMetrics bool

	cfg      *config.Config
	metrics  *metrics.Metrics
	closeLog func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pluginverifier",
		Short:         "Inspect plugin classes and resolve plugin dependencies",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")
	root.PersistentFlags().StringVar(&a.readMode, "read-mode", "", "override read_mode (signatures, full)")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "print counters to stderr on exit")

	root.AddCommand(
		newClassesCmd(a),
		newResolveCmd(a),
		newSubclassCmd(a),
		newSelectCmd(a),
		newDependencyCmd(a),
		newJDKCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.readMode != "" {
		cfg.ReadMode = a.readMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog, err := logging.Install(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.closeLog = closeLog
	a.metrics = metrics.New()
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.closeLog != nil {
		defer a.closeLog()
	}
	if a.showMetrics && a.metrics != nil {
		return a.metrics.WriteText(cmd.ErrOrStderr())
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pluginverifier %s (%s)\n", buildVersion, commit)
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
