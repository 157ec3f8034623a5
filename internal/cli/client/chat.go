package client

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /new             start a new session
  /good, /bad      rate the last answer
  /save <file>     write the last answer as plain text
  /sources on|off  toggle citation links to sources
  /quit            leave`

// ChatCmd creates the interactive chat command.
func ChatCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runChat(api, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Resume an existing session")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "Only use sources effective on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "Only use sources effective on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.noSources, "no-sources", false, "Do not link citations to sources")

	return cmd
}

type chatState struct {
	opts     askOptions
	question string
	last     *AskResponse
}

func runChat(api *APIClient, in io.Reader, out io.Writer, opts askOptions) error {
	state := &chatState{opts: opts}

	if state.opts.sessionID == "" {
		sess, err := createSession(api)
		if err != nil {
			return err
		}
		state.opts.sessionID = sess.SessionID
		fmt.Fprintln(out, sess.Greeting)
	}
	fmt.Fprintln(out, dimStyle.Render("session "+state.opts.sessionID+" · /help for commands"))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, headerStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := state.command(api, out, line)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		resp, err := askQuestion(api, state.opts.sessionID, line, state.opts)
		if err != nil {
			// the turn was not recorded; the session can continue
			fmt.Fprintln(out, "error:", err)
			continue
		}
		state.question = line
		state.last = resp
		printAnswer(out, resp)
	}
}

func (s *chatState) command(api *APIClient, out io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/new":
		sess, err := createSession(api)
		if err != nil {
			return false, err
		}
		s.opts.sessionID = sess.SessionID
		s.last = nil
		fmt.Fprintln(out, sess.Greeting)
		fmt.Fprintln(out, dimStyle.Render("session "+sess.SessionID))
	case "/good", "/bad":
		if s.last == nil {
			return false, fmt.Errorf("no answer to rate yet")
		}
		rating := "positive"
		if fields[0] == "/bad" {
			rating = "negative"
		}
		if err := sendFeedback(api, s.opts.sessionID, FeedbackRequest{
			TurnIndex: intPtr(s.last.TurnIndex),
			Question:  s.question,
			Answer:    s.last.Answer,
			Feedback:  rating,
		}); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Thanks for the feedback.")
	case "/save":
		if s.last == nil {
			return false, fmt.Errorf("no answer to save yet")
		}
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /save <file>")
		}
		if err := os.WriteFile(fields[1], []byte(s.last.DownloadText+"\n"), 0644); err != nil {
			return false, fmt.Errorf("failed to save answer: %w", err)
		}
		fmt.Fprintf(out, "Saved to %s\n", fields[1])
	case "/sources":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			return false, fmt.Errorf("usage: /sources on|off")
		}
		s.opts.noSources = fields[1] == "off"
		fmt.Fprintf(out, "Sources %s\n", fields[1])
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func intPtr(n int) *int {
	return &n
}
