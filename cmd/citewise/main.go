package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/citewise/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "citewise",
		Short: "Citewise CLI - cited answers from your documents",
		Long: `Citewise CLI asks questions against a citewise server and manages chat history.

Environment variables:
  CITEWISE_API_KEY   API key for authentication (required)
  CITEWISE_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.AnalyzeCmd())
	rootCmd.AddCommand(client.SessionsCmd())
	rootCmd.AddCommand(client.FeedbackCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.AuthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
