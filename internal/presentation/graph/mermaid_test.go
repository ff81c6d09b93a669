package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/wayfarer/internal/presentation/graph"
	"github.com/aretw0/wayfarer/pkg/dsl"
	"github.com/aretw0/wayfarer/pkg/flow"
)

type items struct{ flow.BatchBase }

func sampleGraph(t *testing.T) *flow.Graph {
	t.Helper()
	b := dsl.New()
	b.Add("ask", flow.Funcs{}).On("answer", "research.step").On("wait", "get-input")
	b.Add("get-input", flow.Funcs{})
	b.Batch("research.step", items{}).Then("plan")
	b.Add("plan", flow.Funcs{}, flow.WithRetries(2, time.Millisecond))
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(sampleGraph(t), graph.Options{Inputs: []string{"get-input"}})

	for _, want := range []string{
		"graph TD\n",
		`ask(("ask"))`,
		`get_input[/"get-input"/]`,
		`research_step[["research.step"]]`,
		`plan["plan <br/> retries: 2"]`,
		`ask -- "answer" --> research_step`,
		`research_step --> plan`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(sampleGraph(t), graph.Options{
		Overlay: &graph.GraphOverlay{
			VisitedNodes: []string{"ask", "ask", "research.step", "ghost"},
			CurrentNode:  "plan",
		},
	})

	assert.Equal(t, 1, strings.Count(out, "class ask visited;"))
	assert.Contains(t, out, "class research_step visited;")
	assert.NotContains(t, out, "ghost")
	assert.Contains(t, out, "class plan current;")
}
