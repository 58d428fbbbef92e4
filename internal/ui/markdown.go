package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const replyWrapWidth = 100

// FormatForTerminal renders markdown for the terminal. On renderer failure
// the input is returned unchanged.
func FormatForTerminal(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(replyWrapWidth),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimSpace(rendered)
}
