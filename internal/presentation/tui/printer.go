package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/wayfarer/pkg/events"
)

// Printer writes stream events for an interactive chat.
type Printer struct {
	w      io.Writer
	out    *termenv.Output
	render func(string) (string, error)
}

// NewPrinter creates a printer. render may be nil for plain output.
func NewPrinter(w io.Writer, render func(string) (string, error)) *Printer {
	if render == nil {
		render = func(s string) (string, error) { return s, nil }
	}
	return &Printer{w: w, out: termenv.NewOutput(w), render: render}
}

func (p *Printer) dim(s string) termenv.Style {
	return p.out.String(s).Faint()
}

// Event prints one event. Plans and the final answer go through the markdown
// renderer; status events are one faint line each.
func (p *Printer) Event(ev events.Event) {
	switch ev.Kind {
	case events.KindThinking, events.KindSearching, events.KindProgress:
		fmt.Fprintln(p.w, p.dim("· "+ev.Content))
	case events.KindQuestion:
		fmt.Fprintln(p.w, p.out.String(ev.Content).Bold())
		for _, q := range questions(ev) {
			fmt.Fprintf(p.w, "  - %s\n", q)
		}
	case events.KindPlan:
		p.Markdown(ev.Content)
	case events.KindError:
		fmt.Fprintln(p.w, p.out.String(ev.Content).Foreground(p.out.Color("1")))
	case events.KindComplete:
		fmt.Fprintln(p.w, p.out.String(ev.Content).Foreground(p.out.Color("2")))
	default:
		fmt.Fprintln(p.w, ev.Content)
	}
}

// Markdown renders md, falling back to the raw text.
func (p *Printer) Markdown(md string) {
	out, err := p.render(md)
	if err != nil {
		out = md
	}
	fmt.Fprintln(p.w, strings.TrimRight(out, "\n"))
}

func questions(ev events.Event) []string {
	switch qs := ev.Metadata[events.MetaQuestions].(type) {
	case []string:
		return qs
	case []any:
		out := make([]string, 0, len(qs))
		for _, q := range qs {
			if s, ok := q.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
