// Package cmd implements the reactbind CLI commands.
//
// The root command loads reactbind.yaml, sets up logging and tracing, and
// dispatches to subcommands (run, check, init, version).
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/config"
	"github.com/go-drift/reactbind/cmd/reactbind/internal/tracing"
	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

var (
	cfgFile  string
	cfg      config.Config
	provider *tracing.Provider
	closeLog func()
)

var rootCmd = &cobra.Command{
	Use:   "reactbind",
	Short: "Run and check reactbind component scenarios",
	Long: `reactbind drives component scenarios through the reactive state engine:
state cells, observer tracking, the update gate and lifecycle callbacks.

Scenarios are YAML files describing component types and steps.
Use "reactbind <command> --help" for more information about a command.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return teardown(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./reactbind.yaml or the module root's)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging and stack traces")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print contained errors and stack traces")
}

func setup(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	_ = v.BindPFlag("debug", cmd.Flags().Lookup("debug"))
	_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	cfg, err = config.Load(v, cfgFile, dir)
	if err != nil {
		return err
	}

	switch {
	case cfg.Log.File != "":
		closeLog, err = log.Init(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	case cfg.Debug:
		log.SetOutput(cmd.ErrOrStderr())
	}
	log.SetMinLevel(cfg.LogLevel())
	core.SetDebugMode(cfg.Debug)
	errors.SetHandler(&errors.LogHandler{Verbose: cfg.Verbose, Out: cmd.ErrOrStderr()})

	provider, err = tracing.NewProvider(cmd.Context(), cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	log.Debug(log.CatConfig, "configured", "debug", cfg.Debug, "tracing", provider.Enabled())
	return nil
}

func teardown(ctx context.Context) error {
	var err error
	if provider != nil {
		err = provider.Shutdown(ctx)
		provider = nil
	}
	if closeLog != nil {
		closeLog()
		closeLog = nil
	}
	return err
}

// runtimeOptions are the core options every scenario run gets.
func runtimeOptions() []core.Option {
	if provider == nil {
		return nil
	}
	return []core.Option{core.WithTracer(provider.Tracer())}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
