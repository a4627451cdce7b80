package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
	"github.com/Prajwal99452/todo-summary/internal/server"
	"github.com/Prajwal99452/todo-summary/internal/summary"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the todo API server",
	Long: `Start the HTTP API server.

On startup the server decides which store owns the todo collection: it
probes the database, and if the todos table is missing it falls back to a
local file mirror and remembers that decision for future sessions.

Connected WebSocket clients receive live updates:
- todo_update: Todo created, updated, or deleted
- storage_mode: Active storage mode (database or localStorage)
- summary_sent: A summary was delivered to the webhook

Example usage:
  todo-summary serve                # Start on the configured port (default 8080)
  todo-summary serve --port 9000    # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}

		var logOut io.Writer = os.Stderr
		if cfg.LogFile != "" {
			logOut = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}
		logger := log.New(logOut, "[server] ", log.LstdFlags)

		local, err := localstore.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}

		var db *pg.DB
		if cfg.DatabaseURL != "" {
			db, err = pg.Open(pg.Config{
				DSN:        cfg.DatabaseURL,
				RestURL:    cfg.SupabaseRestURL,
				ServiceKey: cfg.SupabaseServiceKey,
				Logger:     log.New(logOut, "[pg] ", log.LstdFlags),
			})
			if err != nil {
				// The server still starts; storage mode stays undetermined
				// until /init succeeds or the database comes back.
				logger.Printf("Warning: database unavailable: %v", err)
			} else {
				defer db.Close()
			}
		}

		var gen summary.Generator
		if cfg.AnthropicAPIKey != "" {
			gen = summary.NewAnthropicGenerator(cfg.AnthropicAPIKey)
		}

		srv := server.NewServer(&server.Config{
			Port:       cfg.Port,
			Logger:     logger,
			DB:         db,
			Local:      local,
			Generator:  gen,
			App:        cfg,
			WatchLocal: true,
		})

		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		fmt.Printf("Todo API server started on http://localhost:%d\n", cfg.Port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", cfg.Port)
		fmt.Printf("Health check: http://localhost:%d/health\n", cfg.Port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down server...")
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}

		fmt.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
