package main

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/migrations"
)

var migrateCommands = []struct {
	use   string
	short string
}{
	{"up", "Apply all pending migrations"},
	{"down", "Roll back the latest migration"},
	{"status", "Print migration status"},
	{"version", "Print the current schema version"},
}

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run embedded goose migrations",
	}
	for _, mc := range migrateCommands {
		command := mc.use
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: mc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.migrate(cmd, command)
			},
		})
	}
	return cmd
}

func (c *cli) migrate(cmd *cobra.Command, command string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", c.dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	c.logger.Info("running migrations", zap.String("command", command))
	if err := goose.RunContext(cmd.Context(), command, db, "."); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
