// Command medsql-migrate applies or rolls back the store schema migrations
// bundled with the service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/medsql/medsql/internal/config"
	"github.com/medsql/medsql/internal/migrations"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	if err := run(*direction, *steps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(direction string, steps int) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("invalid direction: %s", direction)
	}

	cfg, err := config.LoadFromEnv("medsql-migrate")
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.Store.DSN == "" {
		return errors.New("MEDSQL_STORE_DSN is required")
	}

	db, err := sql.Open("pgx", cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("database open error: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping error: %w", err)
	}

	runner := migrations.NewRunner()
	if direction == "up" {
		applied, err := runner.Up(ctx, db, steps)
		if err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
		return nil
	}

	rolledBack, err := runner.Down(ctx, db, steps)
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	fmt.Printf("rolled back %d migration(s)\n", rolledBack)
	return nil
}
