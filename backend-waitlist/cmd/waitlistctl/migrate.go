package main

import (

	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&source, "source", "", "migration source URL (defaults to MIGRATIONS_PATH)")

	run := func(fn func(m *database.Migrator, out *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			src := source
			if src == "" {
				src = cfg.Migrations.Path
			}
			m, err := database.NewMigrator(cfg.Database.URL(), src, cfg.Database.DBName)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, c)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(m *database.Migrator, c *cobra.Command) error {
				if err := m.Up(); err != nil {
					return err
				}
				c.Println("migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: run(func(m *database.Migrator, c *cobra.Command) error {
				if err := m.Down(); err != nil {
					return err
				}
				c.Println("migrations rolled back")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: run(func(m *database.Migrator, c *cobra.Command) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				c.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
	)
	return cmd
}
