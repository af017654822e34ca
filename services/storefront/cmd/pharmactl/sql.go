package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newApplySQLCmd(c *cli) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "apply-sql",
		Short: "Execute an ad-hoc SQL file in a single transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			script := strings.TrimSpace(string(data))
			if script == "" {
				return fmt.Errorf("%s is empty", file)
			}

			pool, err := pgxpool.New(cmd.Context(), c.dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			affected, err := applySQL(cmd.Context(), pool, script, dryRun)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			c.logger.Info("sql applied",
				zap.String("file", file),
				zap.Int64("rows_affected", affected),
				zap.Bool("dry_run", dryRun),
			)
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d rows affected, rolled back\n", affected)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "committed: %d rows affected\n", affected)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "SQL file to execute")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Roll back instead of committing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// applySQL без аргументов pgx использует simple protocol, поэтому файл может содержать несколько выражений
func applySQL(ctx context.Context, pool *pgxpool.Pool, script string, dryRun bool) (int64, error) {
	var affected int64
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, script)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return affected, nil
	}
	return affected, err
}

var errDryRun = errors.New("dry run")
