package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// SessionSummary is one entry of the recent sessions list.
type SessionSummary struct {
	SessionID     string `json:"session_id"`
	FirstQuestion string `json:"first_question"`
	SessionStart  string `json:"session_start"`
	LastActivity  string `json:"last_activity"`
}

// SessionList is one page of recent sessions.
type SessionList struct {
	Items   []SessionSummary `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

// Turn is one stored message of a session.
type Turn struct {
	Index     int      `json:"index"`
	Role      string   `json:"role"`
	Text      string   `json:"text"`
	Sources   []Source `json:"sources,omitempty"`
	ChunkInfo string   `json:"chunk_info,omitempty"`
	Feedback  string   `json:"feedback,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// SessionDetail is a stored session with all its turns.
type SessionDetail struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}

// SessionsCmd creates the sessions parent command.
func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse and manage chat history",
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsDeleteCmd())
	cmd.AddCommand(sessionsClearCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSessionsList(api, cmd.OutOrStdout(), limit, cursor, outputJSON(cmd))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of sessions")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the turns of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSessionsShow(api, cmd.OutOrStdout(), args[0], outputJSON(cmd))
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/sessions/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func sessionsClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all of your sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all sessions without --yes")
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSessionsClear(api, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}

func runSessionsList(api *APIClient, out io.Writer, limit int, cursor string, asJSON bool) error {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	var list SessionList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse sessions: %w", err)
	}

	if asJSON {
		return printJSON(out, list)
	}

	if len(list.Items) == 0 {
		fmt.Fprintln(out, "No sessions yet.")
		return nil
	}
	for _, s := range list.Items {
		fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(s.SessionID), preview(s.FirstQuestion, 60))
		fmt.Fprintf(out, "   %s\n", dimStyle.Render("started "+s.SessionStart+", last active "+s.LastActivity))
	}
	if list.HasMore {
		fmt.Fprintf(out, "\nMore sessions: --cursor %s\n", list.Cursor)
	}
	return nil
}

func runSessionsShow(api *APIClient, out io.Writer, sessionID string, asJSON bool) error {
	resp, err := api.Get("/sessions/" + url.PathEscape(sessionID))
	if err != nil {
		return fmt.Errorf("show failed: %w", err)
	}
	var detail SessionDetail
	if err := json.Unmarshal(resp.Data, &detail); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}

	if asJSON {
		return printJSON(out, detail)
	}

	if len(detail.Turns) == 0 {
		fmt.Fprintln(out, "Session has no turns.")
		return nil
	}
	for _, t := range detail.Turns {
		label := fmt.Sprintf("#%d %s", t.Index, t.Role)
		if t.Feedback != "" {
			label += " (" + t.Feedback + ")"
		}
		fmt.Fprintln(out, headerStyle.Render(label))
		if t.Role == "assistant" {
			fmt.Fprintln(out, renderAnswer(t.Text, len(t.Sources)))
		} else {
			fmt.Fprintln(out, t.Text)
		}
		if t.ChunkInfo != "" {
			fmt.Fprintln(out, dimStyle.Render(t.ChunkInfo))
		}
		if s := renderSources(t.Sources); s != "" {
			fmt.Fprint(out, s)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runSessionsClear(api *APIClient, out io.Writer) error {
	resp, err := api.Delete("/sessions")
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d session(s)\n", result.Deleted)
	return nil
}
