package cmd

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [args]",
	Short: "Apply interview table migrations (goose commands: up, down, status, ...)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigrate читает только POSTGRES_*, остальной конфиг релея для миграций не нужен
func runMigrate(cmd *cobra.Command, args []string) error {
	pg, err := env.ParseAs[config.PostgresConfig]()
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	goose.SetBaseFS(migrations.MigrationsFS)

	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", pg.DSN())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("close migration db", slog.Any(constant.Error, err))
		}
	}()

	if err = goose.RunContext(cmd.Context(), args[0], db, ".", args[1:]...); err != nil {
		return fmt.Errorf("goose %s: %w", args[0], err)
	}

	return nil
}
