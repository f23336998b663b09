package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/asubt-console/internal/migrations"
	"github.com/frahmantamala/asubt-console/internal/session/postgres"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "Apply the embedded session store migrations",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	lg := initLogger(cfg)

	db, err := postgres.OpenSQL(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateRollback {
		if err := migrations.Down(ctx, db, cfg.Session.Driver, lg); err != nil {
			return err
		}
	} else {
		if _, err := migrations.Up(ctx, db, cfg.Session.Driver, lg); err != nil {
			return err
		}
	}

	version, err := migrations.Version(ctx, db, cfg.Session.Driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session store at version %d\n", version)
	return nil
}
