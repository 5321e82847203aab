package main

import (
	"github.com/interestconnect/realtime/internal/store"
	"github.com/interestconnect/realtime/pkg/database"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the messages and users tables",
		Long: `Migrate runs GORM auto-migration against the configured SQL database.
The users table is normally owned by the account service; migrating it is
meant for local development on SQLite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			db, err := database.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.AutoMigrate(db, store.Models()...); err != nil {
				return err
			}

			l := log.L()
			l.Info().Str("driver", cfg.Database.Driver).Msg("migration complete")
			return nil
		},
	}
}
