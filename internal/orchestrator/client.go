package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/watchdeck/internal/omdb"
)

const proxyBodyLimit = 2 << 20

// ProxyClient implements MovieAPI against the authenticated proxy endpoint
// instead of the upstream directly. Token supplies the bearer credential per
// request, so a client can rotate it without rebuilding the transport.
type ProxyClient struct {
	BaseURL    string // e.g. "http://localhost:8080/omdb-proxy"
	Token      func() string
	HTTPClient *http.Client
}

func NewProxyClient(baseURL string, token func() string) *ProxyClient {
	return &ProxyClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ProxyClient) Search(ctx context.Context, query string, page int) (omdb.SearchPage, error) {
	params := url.Values{"s": {query}}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return omdb.SearchPage{}, err
	}
	return omdb.ParseSearch(body)
}

func (c *ProxyClient) Detail(ctx context.Context, imdbID string) (omdb.Detail, error) {
	body, err := c.get(ctx, url.Values{"i": {imdbID}})
	if err != nil {
		return omdb.Detail{}, err
	}
	return omdb.ParseDetail(body)
}

func (c *ProxyClient) Season(ctx context.Context, imdbID string, season int) (omdb.Season, error) {
	body, err := c.get(ctx, url.Values{"i": {imdbID}, "Season": {strconv.Itoa(season)}})
	if err != nil {
		return omdb.Season{}, err
	}
	return omdb.ParseSeason(body)
}

func (c *ProxyClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, proxyBodyLimit))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("proxy: %s (status %d)", e.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("proxy: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
