package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/internal/testutils"
	"github.com/aretw0/wayfarer/internal/travel"
	"github.com/aretw0/wayfarer/internal/workerpool"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/flow"
	"github.com/aretw0/wayfarer/pkg/runner"
	"github.com/aretw0/wayfarer/pkg/session"
)

func newService(t *testing.T) *runner.Service {
	t.Helper()
	cfg := travel.DefaultConfig()
	cfg.RetryWait = 0
	cfg.LLMRetries = 0

	reg := session.NewRegistry(session.WithInitialState(func() map[string]any {
		return travel.InitialState(cfg)
	}))
	deps := travel.Deps{Completer: testutils.NewModel(), Searcher: &testutils.Search{}}
	svc := runner.New(reg, workerpool.New(2, 8), func(em *events.Emitter) (*flow.Graph, error) {
		return travel.NewGraph(cfg, deps, em)
	}, runner.WithStreamPrefix("/api/chat"))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func TestSendMessage_Conversation(t *testing.T) {
	s := NewServer(newService(t), "test", WithWait(10*time.Second, 10*time.Millisecond))
	ctx := context.Background()

	res, err := s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{Message: "I want a vacation"})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, domain.StatusWaitingInput, res.Status)
	assert.Contains(t, res.Reply, "Where would you like to go?")
	assert.Empty(t, res.FinalPlan)

	res, err = s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: res.SessionID, Message: "Paris for 2 days"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingInput, res.Status)
	assert.Equal(t, testutils.Guide, res.FinalPlan)

	res, err = s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: res.SessionID, Message: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, res.Status)

	list, err := s.handleList(ctx, mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.True(t, list.Sessions[0].HasPlan)

	detail, err := s.handleGet(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: res.SessionID})
	require.NoError(t, err)
	assert.Equal(t, "Paris", detail.TripInfo.Destination)

	del, err := s.handleDelete(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: res.SessionID})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = s.handleDelete(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: res.SessionID})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendMessage_Rejected(t *testing.T) {
	s := NewServer(newService(t), "test")

	_, err := s.handleSend(context.Background(), mcp.CallToolRequest{}, SendArgs{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestGetSession_Unknown(t *testing.T) {
	s := NewServer(newService(t), "test")

	_, err := s.handleGet(context.Background(), mcp.CallToolRequest{}, SessionArgs{SessionID: "nope"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLastAssistant(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleAssistant, Content: "first"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "second"},
		{Role: domain.RoleUser, Content: "bye"},
	}
	assert.Equal(t, "second", lastAssistant(msgs))
	assert.Empty(t, lastAssistant(nil))
}
