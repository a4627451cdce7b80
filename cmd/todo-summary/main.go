// Command todo-summary runs the todo list service: a Postgres-backed CRUD
// API with a local-mirror fallback and an LLM summary pipeline that posts
// to a Slack-style webhook.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prajwal99452/todo-summary/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "todo-summary",
	Short: "Todo list service with AI summaries",
	Long: `todo-summary manages a todo list backed by Postgres, with an automatic
fallback to a local file mirror when the todos table is missing, and can
summarize pending todos with an LLM and post the result to a Slack webhook.

Configuration comes from environment variables (DATABASE_URL,
ANTHROPIC_API_KEY, SLACK_WEBHOOK_URL, ...) or a YAML file via --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
