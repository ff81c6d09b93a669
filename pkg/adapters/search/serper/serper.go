// Package serper implements web search and place lookup on the Serper API.
// Both degrade to empty results on any failure.
package serper

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/wayfarer/internal/httpx"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
)

const (
	DefaultBaseURL  = "https://google.serper.dev"
	DefaultLocation = "India"
	DefaultCountry  = "in"
	DefaultResults  = 10
)

// Client is a Serper API client.
type Client struct {
	apiKey   string
	baseURL  string
	location string
	country  string
	num      int
	client   *http.Client
	logger   *slog.Logger
	onSearch func(query string, results int)
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

// WithLocale sets the location and country code sent with each query.
func WithLocale(location, country string) Option {
	return func(c *Client) {
		if location != "" {
			c.location = location
		}
		if country != "" {
			c.country = country
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

// WithObserver registers a callback invoked after every search with the
// number of results (zero on failure).
func WithObserver(fn func(query string, results int)) Option {
	return func(c *Client) {
		c.onSearch = fn
	}
}

// New creates a Serper client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		location: DefaultLocation,
		country:  DefaultCountry,
		num:      DefaultResults,
		client:   &http.Client{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Q        string `json:"q"`
	Location string `json:"location,omitempty"`
	GL       string `json:"gl,omitempty"`
	Num      int    `json:"num,omitempty"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

type placesResponse struct {
	Places []struct {
		Title       string  `json:"title"`
		Address     string  `json:"address"`
		Rating      float64 `json:"rating"`
		RatingCount int     `json:"ratingCount"`
		Category    string  `json:"category"`
		Website     string  `json:"website"`
	} `json:"places"`
}

func (c *Client) headers() httpx.Header {
	return httpx.Header{Key: "X-API-KEY", Value: c.apiKey}
}

func (c *Client) observe(query string, n int) {
	if c.onSearch != nil {
		c.onSearch(query, n)
	}
}

// Search returns organic results for query, or an empty slice on failure.
func (c *Client) Search(ctx context.Context, query string) []domain.SearchResult {
	resp, err := httpx.PostJSON[searchResponse](ctx, c.client, c.baseURL+"/search", searchRequest{
		Q:        query,
		Location: c.location,
		GL:       c.country,
		Num:      c.num,
	}, c.headers())
	if err != nil {
		c.logger.Warn("search failed", "query", query, "err", err)
		c.observe(query, 0)
		return []domain.SearchResult{}
	}

	out := make([]domain.SearchResult, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		out = append(out, domain.SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	c.observe(query, len(out))
	return out
}

// Lookup returns place details for name, best match first, or an empty slice on failure.
func (c *Client) Lookup(ctx context.Context, name string) []domain.Place {
	resp, err := httpx.PostJSON[placesResponse](ctx, c.client, c.baseURL+"/places", searchRequest{
		Q:        name,
		Location: c.location,
		GL:       c.country,
	}, c.headers())
	if err != nil {
		c.logger.Warn("place lookup failed", "place", name, "err", err)
		return []domain.Place{}
	}

	out := make([]domain.Place, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, domain.Place{
			Name:        p.Title,
			Address:     p.Address,
			Category:    p.Category,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
			Website:     p.Website,
		})
	}
	return out
}
