package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/startup"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Applies every pending migration bundled with the binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startup.RunMigrations(cfg.DatabaseURL())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := startup.NewMigrator(cfg.DatabaseURL())
		if err != nil {
			return err
		}
		defer startup.CloseMigrator(m)
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("rolled back one migration")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := startup.NewMigrator(cfg.DatabaseURL())
		if err != nil {
			return err
		}
		defer startup.CloseMigrator(m)
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%v)\n", version, dirty)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateDownCmd, migrateVersionCmd)
}
