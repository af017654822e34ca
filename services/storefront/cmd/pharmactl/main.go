// Command pharmactl административные операции storefront: миграции, seed каталога,
// создание администратора и применение разовых SQL-правок.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/byteracerx/upkar-pharma-orders-sub001/platform/logging"
)

type cli struct {
	dsn    string
	logger *zap.Logger
}

func main() {
	_ = godotenv.Load() // .env необязателен

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	root := newRootCmd(c)
	err := root.ExecuteContext(ctx)
	if c.logger != nil {
		platformlogging.Sync(c.logger)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "pharmactl",
		Short:         "Admin CLI for the Upkar pharma storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.dsn == "" {
				return fmt.Errorf("postgres DSN is required (--dsn or STOREFRONT_POSTGRES_DSN)")
			}
			logger, err := platformlogging.New(platformlogging.Config{
				ServiceName: "pharmactl",
				Env:         envOr("APP_ENV", "local"),
				Level:       os.Getenv("LOG_LEVEL"),
				Format:      "console",
			})
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.dsn, "dsn", os.Getenv("STOREFRONT_POSTGRES_DSN"), "Postgres DSN (env STOREFRONT_POSTGRES_DSN)")

	root.AddCommand(newMigrateCmd(c))
	root.AddCommand(newSeedCmd(c))
	root.AddCommand(newCreateAdminCmd(c))
	root.AddCommand(newApplySQLCmd(c))
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
