package ports

import (
	"context"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Completer turns a prompt into model text.
// Failures are reported as *domain.ProviderError; retry policy belongs to the caller.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher runs a web search. It never fails: on any backend error it
// returns an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string) []domain.SearchResult
}

// PlaceLookup resolves a place name to structured details, best match
// first. Like Searcher it degrades to an empty slice.
type PlaceLookup interface {
	Lookup(ctx context.Context, name string) []domain.Place
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) []domain.SearchResult

func (f SearcherFunc) Search(ctx context.Context, query string) []domain.SearchResult {
	return f(ctx, query)
}
