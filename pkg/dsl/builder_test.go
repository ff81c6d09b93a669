package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/flow"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()
	b.Add("start", flow.Base{}).Then("decide")
	b.Add("decide", flow.Base{}).
		On("left", "a").
		On("right", "b")
	b.Add("a", flow.Base{})
	b.Batch("b", flow.BatchBase{}).Then("a")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "start", g.Start())

	next, ok := g.Next("start", "")
	require.True(t, ok)
	assert.Equal(t, "decide", next.Name())

	next, ok = g.Next("decide", "right")
	require.True(t, ok)
	assert.Equal(t, flow.KindBatch, next.Kind())

	_, ok = g.Next("a", "")
	assert.False(t, ok)
}

func TestBuilder_StartOverride(t *testing.T) {
	b := New()
	b.Add("a", flow.Base{})
	b.Add("b", flow.Base{}).Then("a")
	b.Start("b")

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "b", g.Start())
}

func TestBuilder_CollectsAllErrors(t *testing.T) {
	b := New()
	b.Add("a", flow.Base{}).Then("missing").On("x", "b").On("x", "a")
	b.Add("b", flow.Base{})
	b.Add("b", flow.Base{})
	b.Start("nowhere")

	_, err := b.Build()
	require.Error(t, err)

	var cfgErr *domain.GraphConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unknown target vertex")
	assert.Contains(t, err.Error(), "already routes to")
	assert.Contains(t, err.Error(), "added twice")
	assert.Contains(t, err.Error(), "unknown start vertex")
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { New().MustBuild() })
}
