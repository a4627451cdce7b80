package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage mode and database reachability",
	Long: `Show the persisted storage decision, the local mirror contents, and
whether the database and its todos table are reachable.

With --reset, the persisted storage decision is cleared so the next
session probes the database again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		local, err := localstore.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}

		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			if err := local.ClearState(); err != nil {
				return fmt.Errorf("failed to clear storage state: %w", err)
			}
			fmt.Println("Storage state cleared; next session will probe the database")
			return nil
		}

		fmt.Printf("Data directory: %s\n", local.Dir())

		state := local.LoadState()
		if state.Initialized {
			fmt.Printf("Persisted mode:  %s\n", state.Mode)
		} else {
			fmt.Println("Persisted mode:  none (next session probes the database)")
		}

		todos, err := local.List(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Local mirror:    %d todos\n", len(todos))

		if cfg.DatabaseURL == "" {
			fmt.Println("Database:        not configured")
			return nil
		}

		db, err := pg.Open(pg.Config{
			DSN:    cfg.DatabaseURL,
			Logger: log.New(os.Stderr, "[pg] ", log.LstdFlags),
		})
		if err != nil {
			fmt.Printf("Database:        unreachable (%v)\n", err)
			return nil
		}
		defer db.Close()

		switch err := db.Probe(cmd.Context()); {
		case err == nil:
			dbTodos, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Database:        reachable, %d todos\n", len(dbTodos))
		case pg.IsMissingRelation(err):
			fmt.Println("Database:        reachable, todos table missing (run 'todo-summary init')")
		default:
			fmt.Printf("Database:        error (%v)\n", err)
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("reset", false, "Clear the persisted storage decision")
	rootCmd.AddCommand(statusCmd)
}
