package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, ServerGemini, cfg.LLM.Server)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Travel.MaxClarificationRounds)
	assert.Equal(t, 5, cfg.Travel.MaxPlanRevisions)
	assert.True(t, cfg.Travel.PlanReview)
	assert.Equal(t, 4, cfg.Runner.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.Runner.PollInterval)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "wayfarer.yaml", `
http:
  addr: ":9090"
  cors_origins: ["https://example.com"]
llm:
  server: groq
travel:
  max_plan_revisions: 2
  plan_review: false
  retry_wait: 250ms
runner:
  run_timeout: 30s
storage:
  backend: redis
  redis:
    db: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, ServerGroq, cfg.LLM.Server)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Provider().Model)
	assert.Equal(t, 2, cfg.Travel.MaxPlanRevisions)
	assert.False(t, cfg.Travel.PlanReview)
	assert.Equal(t, 250*time.Millisecond, cfg.Travel.RetryWait)
	assert.Equal(t, 5, cfg.Travel.MaxClarificationRounds, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Runner.RunTimeout)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
}

func TestLoad_UnknownFileKey(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "bad.yaml", "htp:\n  addr: x\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "wayfarer.yaml", "http:\n  addr: \":9090\"\n")

	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("SERPER_API_KEY", "s-key")
	t.Setenv("CORS_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("WAYFARER_HTTP__ADDR", ":7000")
	t.Setenv("WAYFARER_TRAVEL__MAX_CLARIFICATION_ROUNDS", "2")
	t.Setenv("WAYFARER_RUNNER__RUN_TIMEOUT", "1m")
	t.Setenv("WAYFARER_UNRELATED", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "g-key", cfg.Provider().APIKey)
	assert.Equal(t, "s-key", cfg.Search.SerperKey)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 2, cfg.Travel.MaxClarificationRounds)
	assert.Equal(t, time.Minute, cfg.Runner.RunTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_API_KEY=from-dotenv\nLLM_SERVER=groq\n"), 0o644))
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LLM_SERVER", "")
	os.Unsetenv("GROQ_API_KEY")
	os.Unsetenv("LLM_SERVER")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ServerGroq, cfg.LLM.Server)
	assert.Equal(t, "from-dotenv", cfg.Provider().APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.LLM.Server = "claude"
	cfg.Storage.Backend = "s3"
	cfg.Runner.Workers = 0
	cfg.Storage.EncryptionKey = "short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.server")
	assert.Contains(t, err.Error(), "storage.backend")
	assert.Contains(t, err.Error(), "runner.workers")
	assert.Contains(t, err.Error(), "storage.encryption_key")
}

func TestFromEnv(t *testing.T) {
	got := fromEnv([]string{
		"WAYFARER_STORAGE__REDIS__ADDR=redis:6379",
		"REDIS_ADDR=alias:6379",
		"WAYFARER___BAD=x",
		"PATH=/usr/bin",
	})
	assert.Equal(t, map[string]any{
		"storage": map[string]any{
			"redis": map[string]any{"addr": "redis:6379"},
		},
	}, got)
}
