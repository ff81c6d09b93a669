package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/extract"
	"github.com/aretw0/wayfarer/pkg/flow"
)

const defaultQuestion = "What destination are you considering?"

// ErrNoDestination fails a run that used every clarification round without
// learning where the user wants to go.
var ErrNoDestination = errors.New("no destination given")

// getUserRequest records the opening message, or pauses until one arrives.
type getUserRequest struct {
	flow.Base
	*env
}

func (n getUserRequest) Post(_ context.Context, s *flow.Store, _, _ any) (string, error) {
	markVisited(s, NodeGetUserRequest)
	if s.Has(KeyUserRequest) {
		return flow.DefaultAction, nil
	}
	in := takeInput(s)
	if in == "" {
		n.em.Question("Tell me about the trip you have in mind.", nil)
		return pause(s, AwaitingRequest), nil
	}
	s.Set(KeyUserRequest, in)
	s.Append(KeyConversation, "Initial request: "+in)
	s.Delete(KeyAwaiting)
	return flow.DefaultAction, nil
}

type analyzeInput struct {
	Conversation []string
	Known        string
}

type analysis struct {
	ExtractedInfo      domain.TripInfo `mapstructure:"extracted_info"`
	NeedsClarification bool            `mapstructure:"needs_clarification"`
	Reasoning          string          `mapstructure:"reasoning"`
	Questions          []string        `mapstructure:"questions"`
}

// analyzeRequest asks the model to extract trip details from the conversation.
// It does nothing once planning has started or when nothing was said since
// the last analysis.
type analyzeRequest struct {
	flow.Base
	*env
}

func (n analyzeRequest) Prep(_ context.Context, s *flow.Store) (any, error) {
	history := s.Strings(KeyConversation)
	if s.Bool(KeyPlanningStarted) || len(history) == s.Int(KeyAnalyzedLen) {
		return nil, nil
	}
	n.em.Thinking("Analyzing your travel request...")
	return &analyzeInput{Conversation: history, Known: describe(TripInfo(s))}, nil
}

func (n analyzeRequest) Exec(ctx context.Context, input any) (any, error) {
	in, _ := input.(*analyzeInput)
	if in == nil {
		return nil, nil
	}
	prompt, err := render("analyze", in)
	if err != nil {
		return nil, err
	}
	text, err := n.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	a, err := extract.DecodeWithRepair[analysis](ctx, n.deps.Completer, text)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (n analyzeRequest) Post(_ context.Context, s *flow.Store, input, result any) (string, error) {
	markVisited(s, NodeAnalyzeRequest)
	in, _ := input.(*analyzeInput)
	a, _ := result.(*analysis)
	if in == nil || a == nil {
		return flow.DefaultAction, nil
	}

	info := mergeTripInfo(TripInfo(s), a.ExtractedInfo)
	save(s, KeyTripInfo, info)
	s.Set(KeyNeedsClarification, a.NeedsClarification)
	save(s, KeyDynamicQuestions, cleanQuestions(a.Questions))
	s.Set(KeyReasoning, a.Reasoning)
	s.Set(KeyAnalyzedLen, len(in.Conversation))

	n.log.Debug("request analyzed",
		"destination", info.Destination,
		"needs_clarification", a.NeedsClarification,
		"questions", len(a.Questions))
	if info.Destination != "" {
		n.em.Progress(fmt.Sprintf("Understood: a trip to %s.", info.Destination), NodeAnalyzeRequest)
	}
	return flow.DefaultAction, nil
}

func cleanQuestions(qs []string) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		q = strings.TrimSpace(q)
		if q == "" || strings.HasPrefix(q, "<") {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Decision is everything decide_need_info looks at.
type Decision struct {
	PlanningStarted    bool
	AwaitingAnswer     bool
	HasDestination     bool
	NeedsClarification bool
	Round              int
	MaxRounds          int
}

// Decide routes between asking another question and starting the research.
// A destination is required before planning; without one, intake gives up
// once MaxRounds rounds were asked. Otherwise clarification stops after
// MaxRounds rounds.
func Decide(d Decision) string {
	switch {
	case d.PlanningStarted:
		return ActionProceed
	case d.AwaitingAnswer:
		return ActionClarify
	case !d.HasDestination && d.Round >= d.MaxRounds:
		return ActionGiveUp
	case !d.HasDestination:
		return ActionClarify
	case d.Round >= d.MaxRounds:
		return ActionProceed
	case d.NeedsClarification:
		return ActionClarify
	default:
		return ActionProceed
	}
}

type decideNeedInfo struct {
	flow.Base
	*env
}

func (n decideNeedInfo) Prep(_ context.Context, s *flow.Store) (any, error) {
	maxRounds := s.Int(KeyMaxRounds)
	if maxRounds <= 0 {
		maxRounds = n.cfg.MaxClarificationRounds
	}
	return Decision{
		PlanningStarted:    s.Bool(KeyPlanningStarted),
		AwaitingAnswer:     s.String(KeyAwaiting) == AwaitingClarification,
		HasDestination:     TripInfo(s).Destination != "",
		NeedsClarification: s.Bool(KeyNeedsClarification),
		Round:              s.Int(KeyRound),
		MaxRounds:          maxRounds,
	}, nil
}

func (n decideNeedInfo) Exec(_ context.Context, input any) (any, error) {
	return Decide(input.(Decision)), nil
}

func (n decideNeedInfo) Post(_ context.Context, s *flow.Store, input, result any) (string, error) {
	markVisited(s, NodeDecideNeedInfo)
	action := result.(string)
	d := input.(Decision)
	if action == ActionGiveUp {
		// The next reply is taken as the answer and analyzed once more
		// without opening a new round.
		save(s, KeyClarificationQuestions, []string{defaultQuestion})
		s.Set(KeyAwaiting, AwaitingClarification)
		return "", fmt.Errorf("%w after %d rounds", ErrNoDestination, d.Round)
	}
	if action == ActionProceed && !d.PlanningStarted {
		s.Set(KeyPlanningStarted, true)
		n.em.Progress("I have what I need. Researching your trip now.", NodeDecideNeedInfo)
	}
	return action, nil
}

type askInput struct {
	Questions []string
}

// askClarification publishes the next round of questions. A round already
// waiting for its answer is not asked again.
type askClarification struct {
	flow.Base
	*env
}

func (n askClarification) Prep(_ context.Context, s *flow.Store) (any, error) {
	if s.String(KeyAwaiting) == AwaitingClarification {
		return nil, nil
	}
	return &askInput{Questions: s.Strings(KeyDynamicQuestions)}, nil
}

func (n askClarification) Exec(_ context.Context, input any) (any, error) {
	return input, nil
}

func (n askClarification) Post(_ context.Context, s *flow.Store, input, _ any) (string, error) {
	markVisited(s, NodeAskClarification)
	in, _ := input.(*askInput)
	if in == nil {
		return flow.DefaultAction, nil
	}
	qs := in.Questions
	if len(qs) == 0 {
		qs = []string{defaultQuestion}
	}
	save(s, KeyClarificationQuestions, qs)
	round := s.Incr(KeyRound, 1)
	s.Set(KeyAwaiting, AwaitingClarification)
	n.log.Debug("asking for clarification", "round", round, "questions", len(qs))
	n.em.Question("I have a few questions to help plan your perfect trip:", qs)
	return flow.DefaultAction, nil
}

// getUserClarification records the answer to the outstanding questions,
// or pauses until it arrives.
type getUserClarification struct {
	flow.Base
	*env
}

func (n getUserClarification) Post(_ context.Context, s *flow.Store, _, _ any) (string, error) {
	markVisited(s, NodeGetUserClarification)
	answer := takeInput(s)
	if answer == "" {
		return pause(s, AwaitingClarification), nil
	}
	qs := s.Strings(KeyClarificationQuestions)
	s.Append(KeyConversation, "Questions asked: "+strings.Join(qs, " | "))
	s.Append(KeyConversation, "User answered: "+answer)
	s.Delete(KeyAwaiting)
	return ActionAnalyze, nil
}
