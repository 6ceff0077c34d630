// Package cli implements chatctl, a terminal client for the portfolio chat
// endpoint. It drives the same chat.Session the site's widget models.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
)

const defaultChatURL = "http://localhost:8080/functions/v1/chat"

var (
	// Global flags
	urlFlag    string
	keyFlag    string
	renderFlag bool

	// Version info (set at build time)
	Version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Terminal client for the portfolio chat assistant",
	Long: `chatctl talks to the portfolio chat endpoint and streams the
assistant's replies into the terminal.

Examples:
  chatctl chat                          Start an interactive session
  chatctl ask "What is CAMS?"           Ask a single question
  chatctl --url https://site/functions/v1/chat chat`,
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&urlFlag, "url", "u", envOr("CHAT_URL", defaultChatURL), "Chat endpoint URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", os.Getenv("CHAT_KEY"), "Bearer key sent to the chat endpoint")
	rootCmd.PersistentFlags().BoolVarP(&renderFlag, "render", "r", false, "Render replies as markdown once complete instead of streaming raw text")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}

func newClient() *chat.Client {
	return chat.NewClient(urlFlag, keyFlag, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// errorHint turns a chat error into a short line for stderr.
func errorHint(err error) string {
	switch {
	case chat.IsRateLimited(err):
		return "rate limit exceeded, try again later"
	case chat.IsServiceUnavailable(err):
		return "the assistant is temporarily unavailable"
	}
	return fmt.Sprintf("error: %v", err)
}
