package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prajwal99452/todo-summary/internal/pg"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the todos table if it does not exist",
	Long: `Ensure the database schema exists.

Creation strategies are tried in order until one succeeds:
  1. The create_todos_table() database function (RPC)
  2. Raw CREATE TABLE IF NOT EXISTS DDL
  3. The Supabase REST endpoint, when SUPABASE_REST_URL is configured

With --sql-only, only the raw DDL strategy runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		db, err := pg.Open(pg.Config{
			DSN:        cfg.DatabaseURL,
			RestURL:    cfg.SupabaseRestURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Logger:     log.New(os.Stderr, "[pg] ", log.LstdFlags),
		})
		if err != nil {
			return err
		}
		defer db.Close()

		sqlOnly, _ := cmd.Flags().GetBool("sql-only")
		if sqlOnly {
			err = db.Migrate(cmd.Context())
		} else {
			err = db.EnsureSchema(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Println("Schema is ready")
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("sql-only", false, "Run only the raw DDL strategy")
	rootCmd.AddCommand(initCmd)
}
