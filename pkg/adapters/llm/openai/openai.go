// Package openai is a completion adapter for OpenAI compatible chat
// completion endpoints, such as Groq.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/wayfarer/internal/httpx"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/adapters/llm"
)

const (
	GroqBaseURL  = "https://api.groq.com/openai/v1"
	GroqModel    = "llama-3.3-70b-versatile"
	providerName = "openai-compatible"
)

// Client calls {baseURL}/chat/completions.
type Client struct {
	name        string
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	client      *http.Client
	logger      *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithName sets the provider name reported in errors.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client. Empty baseURL and model default to Groq.
func New(apiKey, baseURL, model string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	if model == "" {
		model = GroqModel
	}
	c := &Client{
		name:    providerName,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", llm.ProviderError(c.name, errors.New("api key is not set"))
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	resp, err := httpx.PostJSON[chatResponse](ctx, c.client, c.baseURL+"/chat/completions", req,
		httpx.Header{Key: "Authorization", Value: "Bearer " + c.apiKey})
	if err != nil {
		return "", llm.ProviderError(c.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.ProviderError(c.name, llm.ErrEmptyCompletion)
	}
	c.logger.Debug("chat completion", "provider", c.name, "model", c.model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
