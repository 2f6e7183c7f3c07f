package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/bootstrap"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/database"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	var dir string

	migrator := func() (*database.Migrator, error) {
		cfg, err := bootstrap.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		log, err := bootstrap.CreateLogger(cfg)
		if err != nil {
			return nil, err
		}
		return database.NewMigrator(cfg.Database, dir, log), nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", database.DefaultMigrationsPath, "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Up()
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Down(steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
