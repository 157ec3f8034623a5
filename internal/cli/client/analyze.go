package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Analysis is the complexity assessment of a question.
type Analysis struct {
	Score       int    `json:"score"`
	Budget      int    `json:"budget"`
	Explanation string `json:"explanation"`
}

// AnalyzeCmd creates the analyze command.
func AnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <question>",
		Short: "Show how many sources a question would retrieve",
		Long:  "Scores the complexity of a question and prints the resulting chunk budget without asking it.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAnalyze(api, cmd.OutOrStdout(), strings.Join(args, " "), outputJSON(cmd))
		},
	}
}

func runAnalyze(api *APIClient, out io.Writer, question string, asJSON bool) error {
	resp, err := api.Post("/analyze", map[string]string{"question": question})
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}
	var a Analysis
	if err := json.Unmarshal(resp.Data, &a); err != nil {
		return fmt.Errorf("failed to parse analysis: %w", err)
	}

	if asJSON {
		return printJSON(out, a)
	}

	fmt.Fprintln(out, a.Explanation)
	fmt.Fprintf(out, "Chunk budget: %d\n", a.Budget)
	return nil
}
