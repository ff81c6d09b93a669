package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxPreview bounds how much of an unexpected body is kept in errors.
const maxPreview = 500

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.Code, e.Body)
}

// Header is an extra request header.
type Header struct {
	Key   string
	Value string
}

// PostJSON performs a synchronous JSON POST and decodes the response into T.
//
// Transport failures and context errors are returned as is; non-2xx
// responses as *StatusError. Events are added to the span in ctx, if any.
func PostJSON[T any](ctx context.Context, client *http.Client, url string, body any, headers ...Header) (*T, error) {
	span := trace.SpanFromContext(ctx)

	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	started := time.Now()
	res, err := client.Do(req)
	elapsed := time.Since(started)
	if err != nil {
		span.AddEvent("http.request.error", trace.WithAttributes(attribute.String("error", err.Error())))
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "err", closeErr, "url", url)
		}
	}(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	span.AddEvent("http.response.received", trace.WithAttributes(
		attribute.Int("http.status_code", res.StatusCode),
		attribute.Int("http.response_size", len(respBody)),
		attribute.Int64("http.duration_ms", elapsed.Milliseconds()),
	))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{Code: res.StatusCode, Body: truncate(string(respBody), maxPreview)}
	}

	var out T
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			res.StatusCode, err, truncate(string(respBody), maxPreview))
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
