package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/accountplan/internal/app"
	"github.com/mohammad-safakhou/accountplan/internal/conversation"
	"github.com/mohammad-safakhou/accountplan/internal/synth"
)

type chatStyles struct {
	prompt   lipgloss.Style
	reply    lipgloss.Style
	progress lipgloss.Style
	warning  lipgloss.Style
	plan     lipgloss.Style
}

func newChatStyles() chatStyles {
	return chatStyles{
		prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		reply:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		progress: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		plan:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1),
	}
}

func chatCMD(cfgPath *string) *cobra.Command {
	var sessionID string
	var showProgress bool
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the research assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return repl(cmd.Context(), a.Controller, sessionID, showProgress, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	chat.Flags().StringVar(&sessionID, "session", "", "session id (random when empty)")
	chat.Flags().BoolVar(&showProgress, "progress", false, "print progress steps")
	return chat
}

// repl reads one message per line. "/reset" clears the session; "/edit
// <section> <content>" and "/dig <topic>" call the matching flows.
func repl(ctx context.Context, conv *conversation.Controller, sessionID string, showProgress bool, in io.Reader, out io.Writer) error {
	st := newChatStyles()
	fmt.Fprintln(out, st.progress.Render("session "+sessionID+" (ctrl-d to quit)"))
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, st.prompt.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var (
			res synth.Result
			err error
		)
		switch {
		case line == "/reset":
			if err := conv.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, st.reply.Render("Session cleared. Start fresh!"))
			continue
		case strings.HasPrefix(line, "/edit "):
			section, content, _ := strings.Cut(strings.TrimPrefix(line, "/edit "), " ")
			res, err = conv.EditSection(ctx, sessionID, section, content)
		case strings.HasPrefix(line, "/dig "):
			res, err = conv.DigDeeper(ctx, sessionID, strings.TrimPrefix(line, "/dig "))
		default:
			res, err = conv.Handle(ctx, conversation.Message{Text: line, SessionID: sessionID})
		}
		if err != nil {
			fmt.Fprintln(out, st.warning.Render("error: "+err.Error()))
			continue
		}
		render(out, st, res, showProgress)
	}
}

func render(out io.Writer, st chatStyles, res synth.Result, showProgress bool) {
	if showProgress {
		for _, p := range res.Progress {
			fmt.Fprintln(out, st.progress.Render("  · "+p.Msg))
		}
	}
	if res.Reply != "" {
		fmt.Fprintln(out, st.reply.Render(res.Reply))
	}
	if res.Error != "" {
		fmt.Fprintln(out, st.warning.Render(res.Error))
	}
	if res.Summary != "" {
		fmt.Fprintln(out, st.reply.Render(res.Summary))
	}
	if res.Reconciliation != "" {
		fmt.Fprintln(out, st.reply.Render(res.Reconciliation))
	}
	if len(res.Conflicts) > 0 {
		if b, err := json.MarshalIndent(res.Conflicts, "", "  "); err == nil {
			fmt.Fprintln(out, st.warning.Render(string(b)))
		}
	}
	if res.Plan != nil {
		fmt.Fprintln(out, st.plan.Render(res.Plan.Indent()))
	}
}

