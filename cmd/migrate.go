package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/lite"
	"github.com/pricetrail/reconcile-cli/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch cfg.Store.Driver {
		case "sqlite":
			s, err := lite.Open(cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Migrate(ctx); err != nil {
				return err
			}

		case "postgres":
			pool, err := db.Open(ctx, cfg.Store.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrate.Run(ctx, pool); err != nil {
				return err
			}

		default:
			return eris.Errorf("unknown store driver %q", cfg.Store.Driver)
		}

		zap.L().Info("migrations complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
