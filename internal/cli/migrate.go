package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"live-quiz-service/internal/config"
	pgstore "live-quiz-service/internal/infra/postgres"
)

// NewMigrateCmd applies (or with --rollback reverts) the postgres quiz schema.
func NewMigrateCmd(root *rootOptions) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres quiz source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if rollback {
				return withDB(cfg, func(db *bun.DB) error { return pgstore.Rollback(cmd.Context(), db) })
			}
			return runMigrationsWithConfig(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "revert the last applied migration group")
	bindEnv(cmd.Flags())
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	return withDB(cfg, func(db *bun.DB) error { return pgstore.Migrate(ctx, db) })
}

func withDB(cfg config.Config, fn func(db *bun.DB) error) error {
	if cfg.Postgres.URL == "" {
		return errors.New("postgres.url not configured")
	}
	db := pgstore.OpenDB(cfg.Postgres.URL)
	defer db.Close()
	return fn(db)
}
