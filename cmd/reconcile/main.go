// Package main is the entry point for the reconcile CLI.
package main

import (
	"fmt"
	"os"

	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func main() {
	defer logger.Sync()
	if err := newRootCommand().Execute(); err != nil {
		logger.GetLogger().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Sync()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile tables across two databases",
		Long: `reconcile compares the rows of configured tables between pairs of data
sources and writes a review-only SQL report per source pair: rows missing on
either side, values that differ, and schema warnings.

Nothing in a report is executed. Every INSERT, UPDATE and DELETE is left inside
a comment block for an operator to review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to reconcile.yaml (default: ./reconcile.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of reconcile",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	})
	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// load reads configuration and prepares the process logger.
func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.SetLogPath(cfg.Log.File)
	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	o.cfg = cfg
	return nil
}
