package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vsinha/blendplan/pkg/infrastructure/logging"
	"github.com/vsinha/blendplan/pkg/interfaces/cli/commands"
)

type rootOptions struct {
	config      commands.Config
	verbosity   int
	development bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "blendplan",
		Short:         "Plan monthly purchasing, storage and refining of blended raw materials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.config.ConfigFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	root.PersistentFlags().BoolVar(&opts.development, "dev-log", false, "Use development logging")

	root.AddCommand(newPlanCommand(opts), newExportCommand(opts), newConfigCommand(opts))
	return root
}

func (o *rootOptions) logger() (logr.Logger, error) {
	return logging.NewLogger(o.verbosity, o.development)
}

func addDataFlags(flags *pflag.FlagSet, cfg *commands.Config) {
	flags.StringVar(&cfg.MaterialsFile, "materials", "", "Path to materials CSV file (overrides data.materials)")
	flags.StringVar(&cfg.PricesFile, "prices", "", "Path to market prices CSV file (overrides data.prices)")
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Solve the blending model and print the plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			return commands.NewPlanCommand(opts.config, logger, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	flags := cmd.Flags()
	addDataFlags(flags, &opts.config)
	flags.StringVarP(&opts.config.Format, "format", "f", "text", "Output format: text, json, csv")
	flags.StringVarP(&opts.config.OutputDir, "output", "o", "", "Output directory for results (optional)")
	flags.StringVar(&opts.config.ExportMPS, "export-mps", "", "Also write the model in MPS format to this file")
	flags.StringVar(&opts.config.MetricsFile, "metrics-file", "", "Write prometheus metrics to this file after the run")
	flags.DurationVar(&opts.config.Timeout, "timeout", 0, "Solver time limit (overrides solver.timeout)")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the blending model in MPS format without solving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			return commands.NewExportCommand(opts.config, logger, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	addDataFlags(cmd.Flags(), &opts.config)
	cmd.Flags().StringVarP(&opts.config.ExportMPS, "output", "o", "", "MPS file to write (default stdout)")
	return cmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.NewConfigCommand(opts.config, cmd.OutOrStdout()).Execute()
		},
	}
}
