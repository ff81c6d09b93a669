package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/wayfarer/internal/httpx"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/adapters/llm"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	providerName   = "gemini"
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel overrides DefaultModel.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
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

// New creates a Gemini client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		client:  &http.Client{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Complete sends prompt as a single user turn and returns the text of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", llm.ProviderError(providerName, errors.New("GEMINI_API_KEY is not set"))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	resp, err := httpx.PostJSON[generateContentResponse](ctx, c.client, url, req,
		httpx.Header{Key: "x-goog-api-key", Value: c.apiKey})
	if err != nil {
		return "", llm.ProviderError(providerName, err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", llm.ProviderError(providerName, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		return "", llm.ProviderError(providerName, llm.ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	c.logger.Debug("gemini completion", "model", c.model, "chars", sb.Len(), "finish_reason", resp.Candidates[0].FinishReason)
	return sb.String(), nil
}
