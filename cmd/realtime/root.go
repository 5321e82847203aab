package main

import (
	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "InterestConnect realtime presence and messaging server",
		Long: `Realtime serves the InterestConnect websocket endpoint: presence,
direct and group chat, typing indicators and live notifications.

Running without a subcommand is the same as "realtime serve".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file or directory (default ./config.yaml, ./config/config.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// loadConfig reads configuration and initialises the global logger.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "realtime",
	})
	return cfg, nil
}
