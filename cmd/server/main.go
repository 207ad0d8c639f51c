// Package main is the entry point for the inventory service.
//
// COMMANDS:
//
//	inventory-service [serve]          run the HTTP API (default)
//	inventory-service migrate up       apply pending schema migrations
//	inventory-service migrate down     roll every migration back
//	inventory-service migrate version  print the applied schema version
//
// All actual logic lives in imported packages (internal/server,
// internal/service, etc.). main only reads configuration and hands off.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/inventory-service/internal/config"
	sqliteRepo "github.com/sakif/inventory-service/internal/repository/sqlite"
	"github.com/sakif/inventory-service/internal/server"
)

const defaultDBPath = "data/inventory.db"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := cfg.NewLogger(os.Stdout)

		srv, err := server.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		return srv.Start()
	}

	root := &cobra.Command{
		Use:           "inventory-service",
		Short:         "Multi-tenant inventory and order API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serve,
	})
	root.AddCommand(newMigrateCmd())

	return root
}

// newMigrateCmd manages the schema without starting the server. It only
// needs a database path, so it skips the full config (and its JWT secret
// requirement).
func newMigrateCmd() *cobra.Command {
	var dbPath string

	open := func() (*sqliteRepo.DB, error) {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.Open(dbPath)
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	defaultPath := os.Getenv("DB_PATH")
	if defaultPath == "" {
		defaultPath = defaultDBPath
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "SQLite database file (defaults to $DB_PATH)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateUp(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			version, dirty, ok, err := db.MigrationVersion()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !ok:
				fmt.Fprintln(out, "no migrations applied")
			case dirty:
				fmt.Fprintf(out, "version %d (dirty)\n", version)
			default:
				fmt.Fprintf(out, "version %d\n", version)
			}
			return nil
		},
	})

	return cmd
}
