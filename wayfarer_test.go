package wayfarer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer"
	"github.com/aretw0/wayfarer/internal/config"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/internal/testutils"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/runner"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Travel.RetryWait = 0
	cfg.Travel.LLMRetries = 0
	cfg.Storage.Backend = config.BackendFile
	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.ArchiveDir = t.TempDir()
	cfg.Storage.EncryptionKey = strings.Repeat("k", 32)
	cfg.Storage.PIIPatterns = []string{"(?i)email"}
	return &cfg
}

func newApp(t *testing.T, cfg *config.Config) *wayfarer.App {
	t.Helper()
	app, err := wayfarer.New(cfg,
		wayfarer.WithLogger(logging.NewNop()),
		wayfarer.WithCompleter(testutils.NewModel()),
		wayfarer.WithSearcher(&testutils.Search{}),
	)
	require.NoError(t, err)
	return app
}

func TestNew_MissingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	_, err := wayfarer.New(cfg, wayfarer.WithLogger(logging.NewNop()))

	var unavailable *domain.CollaboratorUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, config.ServerGemini, unavailable.Service)
}

func TestNew_InvalidPIIPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.PIIPatterns = []string{"("}
	_, err := wayfarer.New(cfg,
		wayfarer.WithLogger(logging.NewNop()),
		wayfarer.WithCompleter(testutils.NewModel()),
	)
	assert.Error(t, err)
}

func TestApp_ConversationOverHTTP(t *testing.T) {
	cfg := testConfig(t)
	app := newApp(t, cfg)
	h, err := app.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"Paris for 2 days"}`))
	require.NoError(t, err)
	var reply runner.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, reply.SessionID)

	var detail runner.Detail
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/chat/" + reply.SessionID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
			return false
		}
		return detail.Status == domain.StatusWaitingInput
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, testutils.Guide, detail.FinalPlan)
	assert.Equal(t, "Paris", detail.TripInfo.Destination)

	var metricsText string
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		metricsText = string(body)
		return strings.Contains(metricsText, "wayfarer_runs_total")
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, metricsText, "wayfarer_node_visits_total")
	assert.Contains(t, metricsText, "wayfarer_sessions 1")

	chart := app.Mermaid(context.Background(), reply.SessionID)
	assert.Contains(t, chart, "get_user_request")
	assert.Contains(t, chart, "classDef visited")

	require.NoError(t, app.Close(context.Background()))

	restored := newApp(t, cfg)
	defer restored.Close(context.Background())
	n, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := restored.Service.Detail(context.Background(), reply.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingInput, d.Status)
	assert.Equal(t, testutils.Guide, d.FinalPlan)
}

func TestApp_MermaidWithoutSession(t *testing.T) {
	app := newApp(t, testConfig(t))
	defer app.Close(context.Background())

	chart := app.Mermaid(context.Background(), "")
	assert.True(t, strings.HasPrefix(chart, "graph TD"))
	assert.Contains(t, chart, "evaluate_plan")
	assert.NotContains(t, chart, "classDef visited")
}
