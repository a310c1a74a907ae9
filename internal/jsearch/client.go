// Package jsearch calls the JSearch job-search API on RapidAPI.
package jsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amishk599/jobsync/internal/model"
)

const (
	DefaultBaseURL = "https://jsearch.p.rapidapi.com"
	DefaultHost    = "jsearch.p.rapidapi.com"
	DefaultCountry = "us"

	// rawLogLimit caps how much of each response body is logged at debug level.
	rawLogLimit = 1000
)

// Ensure Client implements model.JobSearcher.
var _ model.JobSearcher = (*Client)(nil)

// Client searches JSearch for one query definition at a time.
type Client struct {
	baseURL string
	host    string
	apiKey  string
	country string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient returns a client for the API at baseURL. host is sent as the
// x-rapidapi-host header and apiKey as x-rapidapi-key.
func NewClient(baseURL, host, apiKey, country string, client *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if host == "" {
		host = DefaultHost
	}
	if country == "" {
		country = DefaultCountry
	}
	return &Client{
		baseURL: baseURL,
		host:    host,
		apiKey:  apiKey,
		country: country,
		client:  client,
		logger:  logger,
	}
}

// searchResponse keeps data raw so a non-list value can be told apart from a
// missing one.
type searchResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Search sends one GET /search for def and returns the items of the "data"
// list, one per element; elements that are not objects come back empty. A non-200 status yields *model.HTTPError; an unparseable body or a
// missing/non-list "data" yields model.ErrMalformedResponse.
func (c *Client) Search(ctx context.Context, def model.QueryDefinition) ([]model.RawJobItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(def), nil)
	if err != nil {
		return nil, fmt.Errorf("jsearch query %d: %w", def.ID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsearch query %d: %w", def.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsearch query %d: %w", def.ID, &model.HTTPError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jsearch query %d: reading body: %w", def.ID, err)
	}
	c.logger.Debug("raw search response", "query_id", def.ID, "body", truncate(body, rawLogLimit))

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("jsearch query %d: %w: %v", def.ID, model.ErrMalformedResponse, err)
	}

	data := bytes.TrimSpace(sr.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("jsearch query %d: %w: \"data\" is missing or not a list", def.ID, model.ErrMalformedResponse)
	}

	var elems []any
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("jsearch query %d: %w: %v", def.ID, model.ErrMalformedResponse, err)
	}

	// A non-object element is kept as an empty item so the mapper drops it
	// and the run counts it, instead of failing the whole response.
	items := make([]model.RawJobItem, 0, len(elems))
	for _, e := range elems {
		obj, _ := e.(map[string]any)
		items = append(items, model.RawJobItem(obj))
	}
	return items, nil
}

func (c *Client) searchURL(def model.QueryDefinition) string {
	params := url.Values{}
	params.Set("query", def.Query)
	params.Set("page", strconv.Itoa(def.Page))
	params.Set("num_pages", strconv.Itoa(def.NumPages))
	params.Set("country", c.country)
	if def.DatePosted != "" {
		params.Set("date_posted", def.DatePosted)
	}
	return c.baseURL + "/search?" + params.Encode()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
