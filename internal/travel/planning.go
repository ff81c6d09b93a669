package travel

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/extract"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// DayPlan is one day of the itinerary.
type DayPlan struct {
	Morning   string `json:"morning" mapstructure:"morning"`
	Afternoon string `json:"afternoon" mapstructure:"afternoon"`
	Evening   string `json:"evening" mapstructure:"evening"`
	Meals     string `json:"meals" mapstructure:"meals"`
	Tips      string `json:"tips" mapstructure:"tips"`
}

var satisfiedReplies = []string{"done", "yes", "looks good", "perfect", ""}

// Satisfied reports whether a reply to the plan review accepts the plan.
func Satisfied(reply string) bool {
	r := strings.Trim(strings.ToLower(strings.TrimSpace(reply)), ".! ")
	return slices.Contains(satisfiedReplies, r)
}

// DayKey names the daily_plans entry for a day.
func DayKey(day int) string {
	return "day_" + strconv.Itoa(day)
}

type dayInput struct {
	Day      int
	Days     int
	Info     domain.TripInfo
	Known    string
	Research string
	Reviews  string
}

type planDailyItinerary struct {
	flow.BatchBase
	*env
}

func (n planDailyItinerary) Prep(_ context.Context, s *flow.Store) ([]any, error) {
	if s.Has(KeyDailyPlans) {
		return nil, nil
	}
	info := TripInfo(s)
	days := info.DurationDays
	if days <= 0 {
		days = n.cfg.DefaultDays
	}
	days = min(days, n.cfg.MaxDays)

	known := describe(info)
	research := formatResults(load[[]QueryResults](s, KeyDestinationInfo), 3)
	reviews := formatReviews(load[[]PlaceReview](s, KeyPlaceReviews))
	n.em.Thinking(fmt.Sprintf("Planning %d days in %s...", days, info.Destination))

	items := make([]any, days)
	for i := range days {
		items[i] = &dayInput{
			Day:      i + 1,
			Days:     days,
			Info:     info,
			Known:    known,
			Research: research,
			Reviews:  reviews,
		}
	}
	return items, nil
}

func (n planDailyItinerary) Exec(ctx context.Context, item any) (any, error) {
	in := item.(*dayInput)
	prompt, err := render("day", in)
	if err != nil {
		return nil, err
	}
	resp, err := n.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	plan, err := extract.DecodeWithRepair[DayPlan](ctx, n.deps.Completer, resp)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (n planDailyItinerary) Post(_ context.Context, s *flow.Store, items, results []any) (string, error) {
	markVisited(s, NodePlanDailyItinerary)
	if len(items) == 0 {
		return flow.DefaultAction, nil
	}
	plans := make(map[string]DayPlan, len(results))
	for i, r := range results {
		plans[DayKey(i+1)] = r.(DayPlan)
	}
	save(s, KeyDailyPlans, plans)
	n.em.Progress(fmt.Sprintf("Created %d daily itineraries", len(plans)), NodePlanDailyItinerary)
	return flow.DefaultAction, nil
}

type budgetInput struct {
	Known          string
	Accommodations string
	Plans          string
}

// calculateBudget writes a budget breakdown. A failing model degrades to a
// placeholder so the guide can still be written.
type calculateBudget struct {
	flow.Base
	*env
}

func (n calculateBudget) Prep(_ context.Context, s *flow.Store) (any, error) {
	if s.Has(KeyBudget) {
		return nil, nil
	}
	n.em.Thinking("Calculating your budget...")
	return &budgetInput{
		Known:          describe(TripInfo(s)),
		Accommodations: formatResults(load[[]QueryResults](s, KeyAccommodations), 2),
		Plans:          formatDays(load[map[string]DayPlan](s, KeyDailyPlans)),
	}, nil
}

func (n calculateBudget) Exec(ctx context.Context, input any) (any, error) {
	in, _ := input.(*budgetInput)
	if in == nil {
		return nil, nil
	}
	prompt, err := render("budget", in)
	if err != nil {
		return nil, err
	}
	return n.deps.Completer.Complete(ctx, prompt)
}

func (n calculateBudget) ExecFallback(_ context.Context, _ any, err error) (any, error) {
	n.log.Warn("budget calculation failed", "err", err)
	return "Budget breakdown unavailable.", nil
}

func (n calculateBudget) Post(_ context.Context, s *flow.Store, input, result any) (string, error) {
	markVisited(s, NodeCalculateBudget)
	if input == nil {
		return flow.DefaultAction, nil
	}
	s.Set(KeyBudget, result.(string))
	return flow.DefaultAction, nil
}

type combineInput struct {
	Info           domain.TripInfo
	Known          string
	Plans          string
	Budget         string
	Transportation string
	Restaurants    string
	Reviews        string
}

type combineFinalPlan struct {
	flow.Base
	*env
}

func (n combineFinalPlan) Prep(_ context.Context, s *flow.Store) (any, error) {
	if s.Has(KeyGuide) {
		return nil, nil
	}
	info := TripInfo(s)
	n.em.Thinking("Writing your travel guide...")
	return &combineInput{
		Info:           info,
		Known:          describe(info),
		Plans:          formatDays(load[map[string]DayPlan](s, KeyDailyPlans)),
		Budget:         s.String(KeyBudget),
		Transportation: formatResults([]QueryResults{load[QueryResults](s, KeyTransportation)}, 1),
		Restaurants:    formatResults(load[[]QueryResults](s, KeyRestaurants), 1),
		Reviews:        formatReviews(load[[]PlaceReview](s, KeyPlaceReviews)),
	}, nil
}

func (n combineFinalPlan) Exec(ctx context.Context, input any) (any, error) {
	in, _ := input.(*combineInput)
	if in == nil {
		return nil, nil
	}
	prompt, err := render("combine", in)
	if err != nil {
		return nil, err
	}
	return n.deps.Completer.Complete(ctx, prompt)
}

func (n combineFinalPlan) Post(_ context.Context, s *flow.Store, input, result any) (string, error) {
	markVisited(s, NodeCombineFinalPlan)
	if input == nil {
		return flow.DefaultAction, nil
	}
	s.Set(KeyGuide, result.(string))
	s.Incr(KeyRevisions, 1)
	n.em.Progress("Travel guide generated!", NodeCombineFinalPlan)
	return flow.DefaultAction, nil
}

// evaluatePlan shows the plan and waits for the traveller's verdict.
type evaluatePlan struct {
	flow.Base
	*env
}

func (n evaluatePlan) Post(_ context.Context, s *flow.Store, _, _ any) (string, error) {
	markVisited(s, NodeEvaluatePlan)
	maxRevisions := s.Int(KeyMaxRevisions)
	if maxRevisions <= 0 {
		maxRevisions = n.cfg.MaxPlanRevisions
	}
	if s.Int(KeyRevisions) >= maxRevisions {
		s.Delete(KeyAwaiting)
		s.Delete(KeyPendingInput)
		n.em.Progress("Maximum revisions reached", NodeEvaluatePlan)
		return ActionDone, nil
	}
	if !s.Bool(KeyPlanReview) {
		return ActionDone, nil
	}

	if s.String(KeyAwaiting) == AwaitingFeedback && s.Has(KeyPendingInput) {
		reply := takeInput(s)
		s.Delete(KeyAwaiting)
		if Satisfied(reply) {
			return ActionDone, nil
		}
		s.Set(KeyFeedback, reply)
		s.Append(KeyConversation, "User feedback on plan: "+reply)
		return ActionRevise, nil
	}

	n.em.Plan(s.String(KeyGuide), false)
	n.em.Question("Are you happy with this plan? Reply 'done' to finish, or tell me what to change.", nil)
	return pause(s, AwaitingFeedback), nil
}

type replanInput struct {
	Plan     string
	Feedback string
	Known    string
}

type replanFromFeedback struct {
	flow.Base
	*env
}

func (n replanFromFeedback) Prep(_ context.Context, s *flow.Store) (any, error) {
	n.em.Thinking("Revising your plan based on your feedback...")
	return &replanInput{
		Plan:     s.String(KeyGuide),
		Feedback: s.String(KeyFeedback),
		Known:    describe(TripInfo(s)),
	}, nil
}

func (n replanFromFeedback) Exec(ctx context.Context, input any) (any, error) {
	prompt, err := render("replan", input)
	if err != nil {
		return nil, err
	}
	return n.deps.Completer.Complete(ctx, prompt)
}

func (n replanFromFeedback) Post(_ context.Context, s *flow.Store, _, result any) (string, error) {
	markVisited(s, NodeReplanFromFeedback)
	s.Set(KeyGuide, result.(string))
	s.Set(KeyPlanEmitted, false)
	rev := s.Incr(KeyRevisions, 1)
	n.em.Progress(fmt.Sprintf("Plan updated (revision #%d)", rev), NodeReplanFromFeedback)
	return ActionEvaluate, nil
}

func formatResults(qrs []QueryResults, limit int) string {
	var b strings.Builder
	for i, qr := range qrs {
		if i == limit {
			break
		}
		if qr.Query == "" {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", qr.Query)
		for _, r := range qr.Results {
			fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
		}
	}
	if b.Len() == 0 {
		return "N/A\n"
	}
	return b.String()
}

func formatReviews(reviews []PlaceReview) string {
	var b strings.Builder
	for _, r := range reviews {
		fmt.Fprintf(&b, "%s", r.Name)
		if r.Details.Rating > 0 {
			fmt.Fprintf(&b, " (rated %.1f", r.Details.Rating)
			if r.Details.RatingCount > 0 {
				fmt.Fprintf(&b, " from %d reviews", r.Details.RatingCount)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
		for _, snip := range r.ReviewSnippets {
			fmt.Fprintf(&b, "- %s\n", snip)
		}
	}
	if b.Len() == 0 {
		return "N/A\n"
	}
	return b.String()
}

func formatDays(plans map[string]DayPlan) string {
	if len(plans) == 0 {
		return "N/A\n"
	}
	var b strings.Builder
	for day := 1; day <= len(plans); day++ {
		p, ok := plans[DayKey(day)]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Day %d\n  Morning: %s\n  Afternoon: %s\n  Evening: %s\n  Meals: %s\n  Tips: %s\n",
			day, p.Morning, p.Afternoon, p.Evening, p.Meals, p.Tips)
	}
	return b.String()
}
