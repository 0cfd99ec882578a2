// Package cli contains the Cobra commands of grawstream.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	graw "github.com/jamesprial/go-reddit-stream"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	settings *Settings
	logger   *slog.Logger
}

func (a *app) client() (*graw.Client, error) {
	return graw.NewClient(a.settings.ClientConfig(a.logger))
}

// NewRoot constructs the root command and registers the subcommands.
func NewRoot() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "grawstream",
		Short:         "Follow Reddit listings as JSON lines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")

			logger, err := newLogger(cmd.ErrOrStderr(), level)
			if err != nil {
				return err
			}
			settings, err := LoadSettings(path)
			if err != nil {
				return err
			}

			a.logger = logger
			a.settings = settings
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")

	root.AddCommand(
		newSubmissionsCommand(a),
		newCommentsCommand(a),
		newInfoCommand(a),
	)
	return root
}
