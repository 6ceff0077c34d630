package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
)

const renderWidth = 80

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. Type a message and press Enter.

Commands:
  /reset   Close the session and start over from the greeting
  /quit    Exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), newClient(), renderFlag)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runAsk(ctx, cmd.OutOrStdout(), newClient(), strings.Join(args, " "), renderFlag)
	},
}

// printer streams each delta to out as it is applied.
type printer struct {
	inner chat.Streamer
	out   io.Writer
	quiet bool
}

func (p *printer) Stream(ctx context.Context, messages []chat.Message, apply func(chat.Mutation)) (string, error) {
	return p.inner.Stream(ctx, messages, func(m chat.Mutation) {
		if !p.quiet {
			fmt.Fprint(p.out, m.Delta)
		}
		apply(m)
	})
}

// runChat reads lines from in until EOF or /quit, sending each as a turn.
func runChat(ctx context.Context, in io.Reader, out io.Writer, streamer chat.Streamer, render bool) error {
	p := &printer{inner: streamer, out: out, quiet: render}
	session := chat.NewSession(p)

	printAssistant(out, session.Messages()[0].Content, false)
	fmt.Fprintln(out, hintStyle.Render("/reset to start over, /quit to exit"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userLabelStyle.Render("you")+" › ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			session.Close()
			printAssistant(out, session.Messages()[0].Content, false)
			continue
		}

		if err := sendTurn(ctx, out, session, line, render); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// runAsk sends a single question on a fresh session.
func runAsk(ctx context.Context, out io.Writer, streamer chat.Streamer, question string, render bool) error {
	p := &printer{inner: streamer, out: out, quiet: render}
	session := chat.NewSession(p)
	return sendTurn(ctx, out, session, question, render)
}

func sendTurn(ctx context.Context, out io.Writer, session *chat.Session, text string, render bool) error {
	if !render {
		fmt.Fprint(out, assistantLabelStyle.Render("assistant")+" › ")
	}
	err := session.Send(ctx, text)
	if err != nil && errors.Is(err, chat.ErrEmptyInput) {
		return err
	}

	msgs := session.Messages()
	reply := msgs[len(msgs)-1].Content
	switch {
	case err != nil:
		if !render {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, errorStyle.Render(errorHint(err)))
		printAssistant(out, reply, render)
	case render:
		printAssistant(out, reply, true)
	default:
		fmt.Fprintln(out)
	}
	return err
}

func printAssistant(out io.Writer, content string, render bool) {
	if render {
		if rendered, err := renderMarkdown(content, renderWidth); err == nil {
			fmt.Fprintln(out, assistantLabelStyle.Render("assistant"))
			fmt.Fprint(out, rendered)
			return
		}
	}
	fmt.Fprintln(out, assistantLabelStyle.Render("assistant")+" › "+content)
}
