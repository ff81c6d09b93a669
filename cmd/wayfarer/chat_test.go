package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer"
	"github.com/aretw0/wayfarer/internal/config"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/internal/presentation/tui"
	"github.com/aretw0/wayfarer/internal/testutils"
)

func testApp(t *testing.T) *wayfarer.App {
	t.Helper()
	cfg := config.Default()
	cfg.Travel.RetryWait = 0
	cfg.Travel.LLMRetries = 0
	cfg.Runner.PollInterval = 10 * time.Millisecond
	cfg.Storage.ArchiveDir = t.TempDir()
	app, err := wayfarer.New(&cfg,
		wayfarer.WithLogger(logging.NewNop()),
		wayfarer.WithCompleter(testutils.NewModel()),
		wayfarer.WithSearcher(&testutils.Search{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestChat_PlansAndCompletes(t *testing.T) {
	app := testApp(t)
	var out bytes.Buffer
	in := strings.NewReader("Paris for 2 days\ndone\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := chat(ctx, app, "", in, tui.NewPrinter(&out, nil), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, testutils.Guide)
	assert.Contains(t, text, "Safe travels!")
	require.Len(t, app.Service.List(), 1)
}

func TestChat_ExitAndEOF(t *testing.T) {
	app := testApp(t)

	var out bytes.Buffer
	require.NoError(t, chat(context.Background(), app, "", strings.NewReader("\nexit\n"), tui.NewPrinter(&out, nil), &out))
	assert.Contains(t, out.String(), "Bye!")
	assert.Empty(t, app.Service.List())

	out.Reset()
	require.NoError(t, chat(context.Background(), app, "", strings.NewReader(""), tui.NewPrinter(&out, nil), &out))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "wayfarer version "+strings.TrimSpace(wayfarer.Version)+"\n", out.String())
}
