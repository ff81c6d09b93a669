package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/domain"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))

		var req searchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, searchRequest{Q: "Goa beaches", Location: "India", GL: "in", Num: 10}, req)

		_, _ = w.Write([]byte(`{"organic":[{"title":"Baga","link":"https://x","snippet":"sand"}]}`))
	}))
	defer srv.Close()

	var observed int
	c := New("key", WithBaseURL(srv.URL), WithObserver(func(_ string, n int) { observed = n }))
	got := c.Search(context.Background(), "Goa beaches")

	require.Len(t, got, 1)
	assert.Equal(t, domain.SearchResult{Title: "Baga", URL: "https://x", Snippet: "sand"}, got[0])
	assert.Equal(t, 1, observed)
}

func TestSearch_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("bad", WithBaseURL(srv.URL))
	got := c.Search(context.Background(), "anything")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, c.Lookup(context.Background(), "anything"))
}

func TestSearch_UnreachableDegradesToEmpty(t *testing.T) {
	c := New("k", WithBaseURL("http://127.0.0.1:1"))
	assert.Empty(t, c.Search(context.Background(), "q"))
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places", r.URL.Path)
		_, _ = w.Write([]byte(`{"places":[{"title":"Cafe A","address":"Rua 1","rating":4.5,"ratingCount":120,"category":"Cafe"}]}`))
	}))
	defer srv.Close()

	got := New("k", WithBaseURL(srv.URL), WithLocale("Portugal", "pt")).Lookup(context.Background(), "Cafe A")
	require.Len(t, got, 1)
	assert.Equal(t, "Cafe A", got[0].Name)
	assert.InDelta(t, 4.5, got[0].Rating, 0.001)
	assert.Equal(t, 120, got[0].RatingCount)
}
