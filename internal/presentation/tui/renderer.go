package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// NewRenderer returns a function that renders markdown using glamour,
// wrapped to the terminal width. Without a terminal the input is returned
// unchanged.
func NewRenderer(f *os.File) func(string) (string, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}
