package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"eventhub-ticketing/internal/config"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/storage"
)

func main() {
	envFlag := flag.String("env", "development", "Environment (development, staging, production)")
	envFileFlag := flag.String("env-file", "", "Path to .env file")
	migrationFlag := flag.String("migration", "", "Optional SQL file to run after the schema is created")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	if loaded := config.LoadEnv(*envFlag, *envFileFlag); loaded != "" {
		log.Info("ENV", "Loaded "+loaded)
	}
	cfg := config.Load()

	store, err := openSQLStore(cfg, log)
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	defer store.Close()
	log.LogProcess("MIGRATE", "Schema is up to date")

	if *migrationFlag == "" {
		return
	}

	statements, err := readStatements(*migrationFlag)
	if err != nil {
		log.Fatal("MIGRATE", "Failed to read migration file: "+err.Error())
	}

	ctx := context.Background()
	for i, stmt := range statements {
		if _, err := store.DB().ExecContext(ctx, stmt); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("statement %d failed: %v", i+1, err))
		}
	}
	log.LogProcess("MIGRATE", fmt.Sprintf("Executed %d statements from %s", len(statements), *migrationFlag))
}

// openSQLStore creates the schema as a side effect of opening the store.
func openSQLStore(cfg *config.Config, log *logger.Logger) (*storage.SQLStore, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		log.LogProcess("MIGRATE", "Migrating SQLite database at "+cfg.Database.SQLitePath)
		return storage.NewSQLiteStore(cfg.Database.SQLitePath, log)
	case "mysql":
		log.LogProcess("MIGRATE", fmt.Sprintf("Connecting to MySQL at %s:%s as %s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Username))
		return storage.NewMySQLStore(cfg.Database, log)
	default:
		return nil, fmt.Errorf("driver %q has no schema to migrate", cfg.Database.Driver)
	}
}

// readStatements splits a SQL file on semicolons. It does not understand
// semicolons inside string literals.
func readStatements(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(string(raw), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}
