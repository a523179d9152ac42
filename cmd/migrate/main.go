package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emberline/faregate/internal/pkg/config"
)

var migrationFiles = []string{
	"migrations/001_init.sql",
	"migrations/002_fare_tables.sql",
	"migrations/003_staff_tables.sql",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|status>")
	}

	cfg, err := config.Load("faregate-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := ensureVersionTable(ctx, pool); err != nil {
		log.Fatalf("version table: %v", err)
	}

	switch os.Args[1] {
	case "up":
		migrateUp(ctx, pool)
	case "status":
		showStatus(ctx, pool)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func ensureVersionTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func applied(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		done[f] = true
	}
	return done, rows.Err()
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) {
	done, err := applied(ctx, pool)
	if err != nil {
		log.Fatalf("read applied migrations: %v", err)
	}

	ran := 0
	for _, f := range migrationFiles {
		if done[f] {
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1)`, f); err != nil {
			log.Fatalf("record %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
		ran++
	}

	log.Printf("%d migration(s) applied, %d already current", ran, len(migrationFiles)-ran)
}

func showStatus(ctx context.Context, pool *pgxpool.Pool) {
	done, err := applied(ctx, pool)
	if err != nil {
		log.Fatalf("read applied migrations: %v", err)
	}
	for _, f := range migrationFiles {
		state := "pending"
		if done[f] {
			state = "applied"
		}
		fmt.Printf("%-8s %s\n", state, f)
	}
}
