package travel

import (
	"log/slog"

	"github.com/aretw0/wayfarer/pkg/dsl"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// env is what every node closes over for one run.
type env struct {
	cfg  Config
	deps Deps
	em   *events.Emitter
	log  *slog.Logger
}

// NewGraph wires the travel planner:
//
//	get_user_request >> analyze_request >> decide_need_info
//	decide_need_info -clarify-> ask_clarification >> get_user_clarification -analyze-> analyze_request
//	decide_need_info -proceed-> research_destination >> gather_travel_details >> identify_places
//	  >> get_place_reviews >> plan_daily_itinerary >> calculate_budget >> combine_final_plan >> evaluate_plan
//	evaluate_plan -revise-> replan_from_feedback -evaluate-> evaluate_plan
//
// Nodes that need the user return ActionWait, which has no edge, so the run
// ends there and the next run replays from the start; nodes whose output is
// already in the Store skip their work. A nil emitter discards events.
// The collaborators in deps are only called while a flow runs.
func NewGraph(cfg Config, deps Deps, em *events.Emitter) (*flow.Graph, error) {
	cfg = cfg.withDefaults()
	if em == nil {
		em = events.Discard()
	}
	e := &env{cfg: cfg, deps: deps, em: em, log: deps.logger()}

	llm := flow.WithRetries(cfg.LLMRetries, cfg.RetryWait)
	par := flow.WithParallelism(cfg.Parallelism)

	b := dsl.New()
	b.Add(NodeGetUserRequest, getUserRequest{env: e}).Then(NodeAnalyzeRequest)
	b.Add(NodeAnalyzeRequest, analyzeRequest{env: e}, llm).Then(NodeDecideNeedInfo)
	b.Add(NodeDecideNeedInfo, decideNeedInfo{env: e}).
		On(ActionClarify, NodeAskClarification).
		On(ActionProceed, NodeResearchDestination)
	b.Add(NodeAskClarification, askClarification{env: e}).Then(NodeGetUserClarification)
	b.Add(NodeGetUserClarification, getUserClarification{env: e}).On(ActionAnalyze, NodeAnalyzeRequest)

	b.Batch(NodeResearchDestination, researchDestination{env: e}, par).Then(NodeGatherTravelDetails)
	b.Batch(NodeGatherTravelDetails, gatherTravelDetails{env: e}, par).Then(NodeIdentifyPlaces)
	b.Add(NodeIdentifyPlaces, identifyPlaces{env: e}, llm).Then(NodeGetPlaceReviews)
	b.Batch(NodeGetPlaceReviews, getPlaceReviews{env: e}, par).Then(NodePlanDailyItinerary)
	b.Batch(NodePlanDailyItinerary, planDailyItinerary{env: e}, llm, par).Then(NodeCalculateBudget)
	b.Add(NodeCalculateBudget, calculateBudget{env: e}, llm).Then(NodeCombineFinalPlan)
	b.Add(NodeCombineFinalPlan, combineFinalPlan{env: e}, llm).Then(NodeEvaluatePlan)
	b.Add(NodeEvaluatePlan, evaluatePlan{env: e}).On(ActionRevise, NodeReplanFromFeedback)
	b.Add(NodeReplanFromFeedback, replanFromFeedback{env: e}, llm).On(ActionEvaluate, NodeEvaluatePlan)

	return b.Start(NodeGetUserRequest).Build()
}
