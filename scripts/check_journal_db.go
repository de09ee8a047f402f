package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"canteen-tracker/internal/config"
	"canteen-tracker/internal/database"
)

// Checks that the journal database configured through DB_* variables is reachable
// and applies the journal schema.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	var coupons, transitions int64
	if err := pool.QueryRow(ctx, "SELECT (SELECT COUNT(*) FROM coupons), (SELECT COUNT(*) FROM order_transitions)").
		Scan(&coupons, &transitions); err != nil {
		fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to database: %s (%d coupons, %d transitions)\n", dbName, coupons, transitions)
}
