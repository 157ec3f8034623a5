package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/citewise/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "citewised",
		Short: "Citewise server and indexing tool",
		Long:  "Citewise daemon for running the cited-answer API server and indexing source documents",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
