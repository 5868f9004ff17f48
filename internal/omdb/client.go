package omdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 2 << 20

// Client queries the OMDb API directly, holding the secret API key
// server-side. The key is injected into every upstream query and must never
// appear in anything returned to a caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client for the given key. baseURL is optional and defaults
// to the public OMDb endpoint.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://www.omdbapi.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch performs one upstream query with the caller-validated params plus the
// server-held key, and returns the raw JSON body verbatim. The proxy endpoint
// relays this body without looking inside it.
func (c *Client) Fetch(ctx context.Context, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "watchdeck/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb: status %d", resp.StatusCode)
	}
	return b, nil
}

// Search runs a title search. page <= 1 requests the first page.
func (c *Client) Search(ctx context.Context, query string, page int) (SearchPage, error) {
	params := url.Values{"s": {strings.TrimSpace(query)}}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	body, err := c.Fetch(ctx, params)
	if err != nil {
		return SearchPage{}, err
	}
	return ParseSearch(body)
}

// Detail looks up full metadata for one title by IMDb id.
func (c *Client) Detail(ctx context.Context, imdbID string) (Detail, error) {
	body, err := c.Fetch(ctx, url.Values{"i": {strings.TrimSpace(imdbID)}, "plot": {"full"}})
	if err != nil {
		return Detail{}, err
	}
	return ParseDetail(body)
}

// Season fetches the episode list for one season of a series.
func (c *Client) Season(ctx context.Context, imdbID string, season int) (Season, error) {
	body, err := c.Fetch(ctx, url.Values{"i": {strings.TrimSpace(imdbID)}, "Season": {strconv.Itoa(season)}})
	if err != nil {
		return Season{}, err
	}
	return ParseSeason(body)
}
