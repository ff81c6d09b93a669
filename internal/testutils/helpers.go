// Package testutils holds scripted collaborators for tests that drive the
// travel flow without a model or a search backend.
package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Canned analysis replies.
const (
	ParisAnalysis = "```yaml\nextracted_info:\n  destination: Paris\n  duration_days: 2 days\n  travelers: 2\n  travel_style: null\n  interests:\n    - food\n    - museums\n    - jazz\nneeds_clarification: false\nreasoning: enough to plan\nquestions: []\n```"
	VagueAnalysis = "```yaml\nextracted_info:\n  destination: null\nneeds_clarification: true\nreasoning: no destination yet\nquestions:\n  - Where would you like to go?\n  - How many days do you have?\n```"
	RomeAnalysis  = "```yaml\nextracted_info:\n  destination: Rome\n  duration_days: 1\nneeds_clarification: true\nreasoning: could know more\nquestions:\n  - Anything else?\n```"
)

// Canned guides.
const (
	Guide        = "# Your Paris guide"
	RevisedGuide = "# Your revised Paris guide"
)

// PromptKind names the node a prompt came from.
func PromptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "analyzing a user's travel request"):
		return "analyze"
	case strings.Contains(prompt, "Identify the top 5"):
		return "identify"
	case strings.HasPrefix(prompt, "Plan day "):
		return "day"
	case strings.HasPrefix(prompt, "Create a budget breakdown"):
		return "budget"
	case strings.HasPrefix(prompt, "Write the final travel guide"):
		return "combine"
	case strings.HasPrefix(prompt, "Revise this travel plan"):
		return "replan"
	default:
		return "other"
	}
}

// Model answers each prompt kind with canned text and counts calls.
// Analyze picks the reply for analysis prompts; by default a conversation
// mentioning Paris is enough to plan and anything else is vague.
type Model struct {
	mu      sync.Mutex
	calls   map[string]int
	fail    map[string]error
	Analyze func(prompt string) string
	// Gate, when set, is received from before every reply.
	Gate chan struct{}
}

// NewModel creates a Model with the default replies.
func NewModel() *Model {
	return &Model{
		calls: map[string]int{},
		fail:  map[string]error{},
		Analyze: func(prompt string) string {
			if strings.Contains(prompt, "Paris") {
				return ParisAnalysis
			}
			return VagueAnalysis
		},
	}
}

// Fail makes every prompt of kind return err. A nil err clears it.
func (m *Model) Fail(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, kind)
		return
	}
	m.fail[kind] = err
}

func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	kind := PromptKind(prompt)
	m.mu.Lock()
	m.calls[kind]++
	err := m.fail[kind]
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	switch kind {
	case "analyze":
		return m.Analyze(prompt), nil
	case "identify":
		return "```yaml\nplaces:\n  - Louvre\n  - Le Comptoir\n```", nil
	case "day":
		return "```yaml\nmorning: Louvre\nafternoon: Seine walk\nevening: Jazz club\nmeals: Bistro lunch\ntips: Buy a museum pass\n```", nil
	case "budget":
		return "Total: 1200 EUR", nil
	case "combine":
		return Guide, nil
	case "replan":
		return RevisedGuide, nil
	}
	return "", nil
}

// Count returns how many prompts of kind were answered or failed.
func (m *Model) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

// Search returns one result per query and records the queries.
type Search struct {
	mu      sync.Mutex
	queries []string
}

func (f *Search) Search(_ context.Context, q string) []domain.SearchResult {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return []domain.SearchResult{{Title: "About " + q, URL: "https://example.com", Snippet: "Snippet for " + q}}
}

// Count returns the number of searches run.
func (f *Search) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns the searches run so far.
func (f *Search) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
