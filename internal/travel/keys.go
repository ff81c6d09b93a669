package travel

// Store keys shared by the travel nodes and the runner.
const (
	KeyConversation           = "conversation_history"
	KeyTripInfo               = "trip_info"
	KeyUserRequest            = "user_request"
	KeyRound                  = "clarification_round"
	KeyMaxRounds              = "max_clarification_rounds"
	KeyNeedsClarification     = "needs_clarification"
	KeyDynamicQuestions       = "dynamic_questions"
	KeyClarificationQuestions = "clarification_questions"
	KeyReasoning              = "analysis_reasoning"
	KeyAnalyzedLen            = "analyzed_history_len"
	KeyPlanningStarted        = "planning_started"
	KeyDestinationInfo        = "destination_info"
	KeyAccommodations         = "accommodations"
	KeyTransportation         = "transportation"
	KeyActivities             = "activities"
	KeyRestaurants            = "restaurants"
	KeyDetailsGathered        = "details_gathered"
	KeyPlacesToReview         = "places_to_review"
	KeyPlacesIdentified       = "places_identified"
	KeyPlaceReviews           = "place_reviews"
	KeyDailyPlans             = "daily_plans"
	KeyBudget                 = "budget_breakdown"
	KeyGuide                  = "final_travel_guide"
	KeyRevisions              = "plan_revision_count"
	KeyMaxRevisions           = "max_plan_revisions"
	KeyPlanReview             = "plan_review"
	KeyFeedback               = "user_feedback"
	KeyPendingInput           = "pending_input"
	KeyAwaiting               = "awaiting"
	KeyFlowStatus             = "flow_status"
	KeyPlanEmitted            = "plan_emitted"
	KeyVisited                = "visited_nodes"
	KeyAPIMode                = "api_mode"
)

// Values of KeyAwaiting: what the paused flow needs from the user.
const (
	AwaitingRequest       = "request"
	AwaitingClarification = "clarification"
	AwaitingFeedback      = "feedback"
)

// Values of KeyFlowStatus.
const (
	FlowProcessing   = "processing"
	FlowWaitingInput = "waiting_input"
	FlowComplete     = "complete"
	FlowError        = "error"
)

// Node names.
const (
	NodeGetUserRequest       = "get_user_request"
	NodeAnalyzeRequest       = "analyze_request"
	NodeDecideNeedInfo       = "decide_need_info"
	NodeAskClarification     = "ask_clarification"
	NodeGetUserClarification = "get_user_clarification"
	NodeResearchDestination  = "research_destination"
	NodeGatherTravelDetails  = "gather_travel_details"
	NodeIdentifyPlaces       = "identify_places"
	NodeGetPlaceReviews      = "get_place_reviews"
	NodePlanDailyItinerary   = "plan_daily_itinerary"
	NodeCalculateBudget      = "calculate_budget"
	NodeCombineFinalPlan     = "combine_final_plan"
	NodeEvaluatePlan         = "evaluate_plan"
	NodeReplanFromFeedback   = "replan_from_feedback"
)

// Actions.
const (
	ActionClarify  = "clarify"
	ActionProceed  = "proceed"
	ActionAnalyze  = "analyze"
	ActionRevise   = "revise"
	ActionEvaluate = "evaluate"
	ActionDone     = "done"
	// ActionWait has no edge anywhere in the graph: returning it pauses the run.
	ActionWait = "wait"
	// ActionGiveUp ends intake when every round passed without a destination.
	ActionGiveUp = "give_up"
)

// InitialState returns the Store contents of a new session.
func InitialState(cfg Config) map[string]any {
	cfg = cfg.withDefaults()
	return map[string]any{
		KeyConversation:    []any{},
		KeyTripInfo:        map[string]any{},
		KeyRound:           0,
		KeyMaxRounds:       cfg.MaxClarificationRounds,
		KeyDestinationInfo: []any{},
		KeyAccommodations:  []any{},
		KeyTransportation:  map[string]any{},
		KeyActivities:      []any{},
		KeyRestaurants:     []any{},
		KeyDailyPlans:      map[string]any{},
		KeyGuide:           "",
		KeyRevisions:       0,
		KeyMaxRevisions:    cfg.MaxPlanRevisions,
		KeyPlanReview:      cfg.PlanReview,
	}
}

// InputNodes are the nodes that can pause a run to wait for the user.
var InputNodes = []string{NodeGetUserRequest, NodeGetUserClarification, NodeEvaluatePlan}
