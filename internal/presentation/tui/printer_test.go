package tui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/wayfarer/pkg/events"
)

func TestPrinter_Event(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.Event(events.Event{Kind: events.KindThinking, Content: "Analyzing your request..."})
	p.Event(events.Event{
		Kind:     events.KindQuestion,
		Content:  "I have a few questions:",
		Metadata: map[string]any{events.MetaQuestions: []any{"When?", "Budget?"}},
	})
	p.Event(events.Event{Kind: events.KindPlan, Content: "# Paris\n\n"})

	out := buf.String()
	assert.Contains(t, out, "· Analyzing your request...")
	assert.Contains(t, out, "I have a few questions:")
	assert.Contains(t, out, "  - When?\n  - Budget?\n")
	assert.Contains(t, out, "# Paris\n")
}

func TestPrinter_MarkdownFallsBack(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, func(string) (string, error) { return "", errors.New("no style") })

	p.Markdown("**bold**")
	assert.Equal(t, "**bold**\n", buf.String())
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), `\__/\  /`)
}
