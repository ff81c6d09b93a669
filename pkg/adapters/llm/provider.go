// Package llm holds the completion adapters and the shared error mapping.
package llm

import (
	"errors"

	"github.com/aretw0/wayfarer/internal/httpx"
	"github.com/aretw0/wayfarer/pkg/domain"
)

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// ProviderError wraps err as a *domain.ProviderError, keeping the HTTP status if known.
func ProviderError(provider string, err error) error {
	pe := &domain.ProviderError{Provider: provider, Err: err}
	var se *httpx.StatusError
	if errors.As(err, &se) {
		pe.StatusCode = se.Code
	}
	return pe
}
