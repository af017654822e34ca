package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/postgres"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

func newCreateAdminCmd(c *cli) *cobra.Command {
	var in service.CreateAdminInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an approved administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pgxpool.New(cmd.Context(), c.dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			// сессии и события для создания администратора не нужны
			accounts := service.NewAccountService(
				c.logger,
				postgres.NewTxManager(pool),
				postgres.NewAccountRepository(pool),
				nil,
				postgres.NewOutboxRepository(pool),
				service.Topics{},
				nil,
				time.Hour,
			)
			acc, err := accounts.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), acc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Admin password (min 8 characters)")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Admin full name")
	for _, f := range []string{"email", "password", "name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
