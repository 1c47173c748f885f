package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	get_diagnostics "github.com/walteh/gonunjucks/cmd/gonunjucks/get-diagnostics"
	hover_cmd "github.com/walteh/gonunjucks/cmd/gonunjucks/hover"
	parse_cmd "github.com/walteh/gonunjucks/cmd/gonunjucks/parse"
	logging "github.com/walteh/gonunjucks/pkg/debug"
	"github.com/walteh/gonunjucks/pkg/settings"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gonunjucks",
		Short: "Tooling for Nunjucks templates",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a .yaml or .hcl settings file")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	settings.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return opts.setup(cmd)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	})
	rootCmd.AddCommand(parse_cmd.NewParseCommand())
	rootCmd.AddCommand(hover_cmd.NewHoverCommand())
	rootCmd.AddCommand(get_diagnostics.NewGetDiagnosticsCommand())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	return rootCmd
}

// setup loads the settings and installs them and the logger on the command context.
func (opts *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := settings.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("invalid settings: %w", err)
	}

	level := cfg.Level()
	if opts.debug {
		level = zerolog.DebugLevel
	}
	logger := logging.NewLogger(cmd.ErrOrStderr(), level, !color.NoColor)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(cfg.WithContext(ctx))
	cmd.SetContext(ctx)

	logger.Debug().Str("command", cmd.Name()).Str("config", opts.configPath).Msg("settings loaded")
	return nil
}
