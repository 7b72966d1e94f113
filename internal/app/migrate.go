package app

import (
	"context"
	"fmt"

	"bookcomments/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"
)

// Migrate runs a goose command ("up", "down", "status", ...) against the
// pool's database using the SQL migrations in dir.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir, command string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	logger.FromContext(ctx).Info("running migrations", "command", command, "dir", dir)
	if err := goose.Run(command, db, dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
