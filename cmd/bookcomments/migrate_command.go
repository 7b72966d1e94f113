package main

import (
	"fmt"

	"bookcomments/config"
	"bookcomments/internal/app"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect Postgres schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.StorageType != config.StoragePostgres {
				return fmt.Errorf("migrations apply to postgres storage only (storage_type is %q)", cfg.StorageType)
			}

			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.Postgres.GetDSN())
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			return app.Migrate(cmd.Context(), pool, cfg.MigrationsDir, command)
		},
	}
}
