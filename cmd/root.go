package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

// rootState is filled once flags are parsed, before any subcommand runs.
type rootState struct {
	opts rootOptions
	app  *app
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rt := &rootState{}

	rootCmd := &cobra.Command{
		Use:           "narrator",
		Short:         "Ambient narrator: in-character commentary for roleplay sessions",
		Long:          "narrator watches dice rolls, vitals, locations and the real-world clock of a roleplay session and decides when one of its personas should speak, generating the line through an OpenAI-compatible endpoint or falling back to static lines.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			level := slog.LevelWarn
			if rt.opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			app, err := wireApp(cmd.Context(), rt.opts.configFile, logger)
			if err != nil {
				return err
			}
			rt.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.app == nil {
				return nil
			}
			return rt.app.close(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.opts.configFile, "config", "", "Config file (default ~/.narrator/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&rt.opts.verbose, "verbose", "v", false, "Log engine decisions to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(rt),
		newSpeakCmd(rt),
		newStatusCmd(rt),
	)

	return rootCmd
}
