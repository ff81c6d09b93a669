package events

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the category of a stream event.
type Kind string

const (
	KindThinking  Kind = "thinking"
	KindQuestion  Kind = "question"
	KindSearching Kind = "searching"
	KindProgress  Kind = "progress"
	KindPlan      Kind = "plan"
	KindError     Kind = "error"
	KindComplete  Kind = "complete"
)

// Metadata keys attached by the convenience emitters.
const (
	MetaQuestions = "questions"
	MetaQuery     = "query"
	MetaStep      = "step"
	MetaIsFinal   = "is_final"
	MetaErrorType = "error_type"
	MetaTerminal  = "terminal"
)

// Event is an immutable progress record delivered to stream consumers.
type Event struct {
	Kind      Kind           `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	switch e.Kind {
	case KindComplete:
		return true
	case KindError:
		t, ok := e.Metadata[MetaTerminal].(bool)
		return !ok || t
	default:
		return false
	}
}

// String renders the event for logs and plain terminals.
func (e Event) String() string {
	content := strings.TrimSpace(e.Content)
	if len(content) > 80 {
		content = content[:77] + "..."
	}
	return fmt.Sprintf("[%s] %s", e.Kind, content)
}
