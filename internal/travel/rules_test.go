package travel_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/wayfarer/internal/travel"
	"github.com/aretw0/wayfarer/pkg/domain"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		in   travel.Decision
		want string
	}{
		{"no destination", travel.Decision{Round: 2, MaxRounds: 5}, travel.ActionClarify},
		{"no destination at cap", travel.Decision{Round: 5, MaxRounds: 5}, travel.ActionGiveUp},
		{"no destination awaiting answer", travel.Decision{AwaitingAnswer: true, Round: 5, MaxRounds: 5}, travel.ActionClarify},
		{"needs more under cap", travel.Decision{HasDestination: true, NeedsClarification: true, Round: 4, MaxRounds: 5}, travel.ActionClarify},
		{"cap reached", travel.Decision{HasDestination: true, NeedsClarification: true, Round: 5, MaxRounds: 5}, travel.ActionProceed},
		{"enough info", travel.Decision{HasDestination: true, Round: 0, MaxRounds: 5}, travel.ActionProceed},
		{"answer outstanding", travel.Decision{AwaitingAnswer: true, HasDestination: true, MaxRounds: 5}, travel.ActionClarify},
		{"planning under way", travel.Decision{PlanningStarted: true, AwaitingAnswer: true}, travel.ActionProceed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, travel.Decide(tt.in))
		})
	}
}

func TestDecide_RoundCounterTerminates(t *testing.T) {
	round := 4
	for travel.Decide(travel.Decision{HasDestination: true, NeedsClarification: true, Round: round, MaxRounds: 5}) == travel.ActionClarify {
		round++
		if round > 5 {
			t.Fatalf("round %d exceeds the maximum", round)
		}
	}
	assert.Equal(t, 5, round)
}

func TestResearchQueries_CapsInterests(t *testing.T) {
	got := travel.ResearchQueries(domain.TripInfo{Destination: "Lisbon", Interests: []string{"fado", "tiles", "surf"}})
	want := []string{
		"Lisbon travel guide",
		"Lisbon top attractions",
		"Lisbon best time to visit",
		"Lisbon fado",
		"Lisbon tiles",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailQueries_DefaultStyle(t *testing.T) {
	got := travel.DetailQueries(domain.TripInfo{Destination: "Goa"})
	assert.Len(t, got, 7)
	assert.Equal(t, "Goa best hotels accommodations", got[0])
}

func TestCategorize(t *testing.T) {
	in := []travel.QueryResults{
		{Query: "Goa luxury hotels accommodations"},
		{Query: "Goa transportation getting around"},
		{Query: "Goa restaurants food recommendations"},
		{Query: "Goa activities things to do"},
		{Query: "Goa safety tips"},
		{Query: "Goa weather forecast"},
	}
	d := travel.Categorize(in)
	assert.Len(t, d.Accommodations, 1)
	assert.Equal(t, "Goa transportation getting around", d.Transportation.Query)
	assert.Len(t, d.Restaurants, 1)
	assert.Len(t, d.Activities, 1)
	assert.Len(t, d.Tips, 2)
}

func TestSatisfied(t *testing.T) {
	for _, reply := range []string{"done", "Yes", "looks good!", "Perfect.", "  "} {
		assert.True(t, travel.Satisfied(reply), reply)
	}
	for _, reply := range []string{"more museums", "not yet", "yes but cheaper"} {
		assert.False(t, travel.Satisfied(reply), reply)
	}
}
