package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/config"
	mysqlp "github.com/bryanwahyu/propvest/internal/infra/db/mysql"
	"github.com/bryanwahyu/propvest/internal/infra/db/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema for the configured store driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch cfg.Store.Driver {
		case config.DriverPostgres:
			conn, err := postgres.Connect(ctx, cfg.Store.DSN, cfg.Store.Pool)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := postgres.Migrate(ctx, conn); err != nil {
				return err
			}
		case config.DriverMySQL:
			conn, err := mysqlp.Connect(ctx, cfg.Store.DSN, cfg.Store.Pool)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := mysqlp.Migrate(ctx, conn); err != nil {
				return err
			}
		default:
			zap.L().Info("nothing to migrate", zap.String("driver", cfg.Store.Driver))
			return nil
		}
		zap.L().Info("schema applied", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}
