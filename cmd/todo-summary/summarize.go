package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
	"github.com/Prajwal99452/todo-summary/internal/reconcile"
	"github.com/Prajwal99452/todo-summary/internal/summary"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize pending todos and post to the webhook",
	Long: `Generate an LLM summary of all pending todos and post it to a
Slack-style incoming webhook.

The todos come from whichever store currently owns the collection. The
webhook URL comes from --webhook or SLACK_WEBHOOK_URL; the summary needs
ANTHROPIC_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		webhook, _ := cmd.Flags().GetString("webhook")
		if webhook == "" {
			webhook = cfg.SlackWebhookURL
		}

		logger := log.New(os.Stderr, "[summary] ", log.LstdFlags)

		local, err := localstore.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}

		var db *pg.DB
		if cfg.DatabaseURL != "" {
			db, err = pg.Open(pg.Config{DSN: cfg.DatabaseURL, Logger: logger})
			if err != nil {
				return err
			}
			defer db.Close()
		}

		probe := func(ctx context.Context) ([]*todo.Todo, error) {
			if db == nil {
				return nil, apperr.Configuration("database URL is not configured")
			}
			return db.List(ctx)
		}

		rec := reconcile.New(local, probe, logger)
		res, err := rec.Resolve(cmd.Context())
		if err != nil {
			return err
		}

		var gen summary.Generator
		if cfg.AnthropicAPIKey != "" {
			gen = summary.NewAnthropicGenerator(cfg.AnthropicAPIKey)
		}

		disp := summary.New(gen, nil, logger)
		result, err := disp.Dispatch(cmd.Context(), summary.Request{
			WebhookURL: webhook,
			Todos:      res.Todos,
			HasInline:  true,
		})
		if err != nil {
			return err
		}

		if result.NothingToDo {
			fmt.Println("No pending todos to summarize")
			return nil
		}

		fmt.Printf("Summary of %d todos sent to webhook:\n\n%s\n", result.TodoCount, result.Summary)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("webhook", "", "Webhook URL (default: SLACK_WEBHOOK_URL)")
	rootCmd.AddCommand(summarizeCmd)
}
