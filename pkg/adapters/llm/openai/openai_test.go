package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/adapters/llm"
	"github.com/aretw0/wayfarer/pkg/domain"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, GroqModel, req.Model)
		assert.Equal(t, "plan it", req.Messages[0].Content)
		assert.NotNil(t, req.Temperature)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"sure"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := New("gsk", srv.URL+"/", "", WithTemperature(0.2), WithHTTPClient(srv.Client()), WithName("groq"))
	out, err := c.Complete(context.Background(), "plan it")
	require.NoError(t, err)
	assert.Equal(t, "sure", out)
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New("gsk", srv.URL, "m", WithName("groq")).Complete(context.Background(), "x")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "groq", pe.Provider)
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}
