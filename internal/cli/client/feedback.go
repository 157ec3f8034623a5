package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// FeedbackRequest is the body of POST /sessions/{id}/feedback.
type FeedbackRequest struct {
	TurnIndex *int   `json:"turn_index"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Feedback  string `json:"feedback"`
}

// FeedbackCmd creates the feedback command.
func FeedbackCmd() *cobra.Command {
	var question, answer string

	cmd := &cobra.Command{
		Use:   "feedback <session-id> <turn-index> <positive|negative>",
		Short: "Rate an answer",
		Long: `Records a thumbs up or down for one assistant turn.

The turn index is the one shown by 'citewise sessions show'.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			turn, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid turn index %q", args[1])
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runFeedback(api, cmd.OutOrStdout(), args[0], FeedbackRequest{
				TurnIndex: &turn,
				Question:  question,
				Answer:    answer,
				Feedback:  args[2],
			})
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "Question text to store with the rating")
	cmd.Flags().StringVar(&answer, "answer", "", "Answer text to store with the rating")

	return cmd
}

func runFeedback(api *APIClient, out io.Writer, sessionID string, req FeedbackRequest) error {
	if req.Feedback != "positive" && req.Feedback != "negative" {
		return fmt.Errorf("feedback must be positive or negative")
	}
	if err := sendFeedback(api, sessionID, req); err != nil {
		return err
	}
	fmt.Fprintf(out, "Recorded %s feedback for turn %d\n", req.Feedback, *req.TurnIndex)
	return nil
}

func sendFeedback(api *APIClient, sessionID string, req FeedbackRequest) error {
	if _, err := api.Post("/sessions/"+url.PathEscape(sessionID)+"/feedback", req); err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}
	return nil
}
