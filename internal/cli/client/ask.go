package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest is the body of POST /sessions/{id}/ask.
type AskRequest struct {
	Question    string `json:"question"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	ShowSources *bool  `json:"show_sources,omitempty"`
}

// AskResponse is a cited answer for one turn.
type AskResponse struct {
	SessionID    string   `json:"session_id"`
	TurnIndex    int      `json:"turn_index"`
	Answer       string   `json:"answer"`
	HTML         string   `json:"html"`
	DownloadText string   `json:"download_text"`
	Grounded     bool     `json:"grounded"`
	Sources      []Source `json:"sources"`
	Score        int      `json:"score"`
	Budget       int      `json:"budget"`
	Explanation  string   `json:"explanation"`
	ChunkInfo    string   `json:"chunk_info,omitempty"`
	OutOfRange   []int    `json:"out_of_range,omitempty"`
}

// NewSessionResponse is returned by POST /sessions.
type NewSessionResponse struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

type askOptions struct {
	sessionID string
	dateFrom  string
	dateTo    string
	noSources bool
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the document index",
		Long: `Asks one question and prints the cited answer.

Without --session a new session is started; its id is printed so follow-up
questions can continue the conversation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAsk(api, cmd.OutOrStdout(), strings.Join(args, " "), opts, outputJSON(cmd))
		},
	}

	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Continue an existing session")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "Only use sources effective on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "Only use sources effective on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.noSources, "no-sources", false, "Do not link citations to sources")

	return cmd
}

func runAsk(api *APIClient, out io.Writer, question string, opts askOptions, asJSON bool) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question cannot be empty")
	}

	sessionID := opts.sessionID
	if sessionID == "" {
		sess, err := createSession(api)
		if err != nil {
			return err
		}
		sessionID = sess.SessionID
	}

	resp, err := askQuestion(api, sessionID, question, opts)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(out, resp)
	}

	printAnswer(out, resp)
	fmt.Fprintln(out, dimStyle.Render("session: "+resp.SessionID))
	return nil
}

func createSession(api *APIClient) (*NewSessionResponse, error) {
	resp, err := api.Post("/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	var sess NewSessionResponse
	if err := json.Unmarshal(resp.Data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &sess, nil
}

func askQuestion(api *APIClient, sessionID, question string, opts askOptions) (*AskResponse, error) {
	req := AskRequest{
		Question: question,
		DateFrom: opts.dateFrom,
		DateTo:   opts.dateTo,
	}
	if opts.noSources {
		show := false
		req.ShowSources = &show
	}

	resp, err := api.Post("/sessions/"+url.PathEscape(sessionID)+"/ask", req)
	if err != nil {
		return nil, fmt.Errorf("ask failed: %w", err)
	}
	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return nil, fmt.Errorf("failed to parse answer: %w", err)
	}
	return &answer, nil
}

func printAnswer(out io.Writer, resp *AskResponse) {
	fmt.Fprintln(out, renderAnswer(resp.Answer, len(resp.Sources)))
	fmt.Fprintln(out)
	if resp.ChunkInfo != "" {
		fmt.Fprintln(out, dimStyle.Render(resp.ChunkInfo+" · "+resp.Explanation))
	}
	if len(resp.OutOfRange) > 0 {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("cited sources not retrieved: %v", resp.OutOfRange)))
	}
	if s := renderSources(resp.Sources); s != "" {
		fmt.Fprint(out, s)
	}
}
