package cli

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorUser    = lipgloss.Color("#9ece6a")
	colorDim     = lipgloss.Color("#565f89")
	colorError   = lipgloss.Color("#f7768e")
)

var (
	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	userLabelStyle      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	hintStyle           = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	errorStyle          = lipgloss.NewStyle().Foreground(colorError)
)

// renderMarkdown formats an assistant reply for the terminal.
func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
