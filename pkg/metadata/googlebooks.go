// Package metadata looks up book details by ISBN so submitters can prefill a
// draft. The result is advisory: a failed or empty lookup never blocks a
// submission.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"swapshelf/pkg/domain"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Client queries the Google Books volumes API. Concurrent lookups of the
// same ISBN are collapsed into one upstream call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient builds a lookup client. An empty baseURL uses the public Google
// Books endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			Categories  []string `json:"categories"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

type lookupResult struct {
	meta  domain.BookMetadata
	found bool
}

// Lookup fetches metadata for an ISBN. found is false when the API knows no
// matching volume.
func (c *Client) Lookup(ctx context.Context, isbn string) (domain.BookMetadata, bool, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return domain.BookMetadata{}, false, fmt.Errorf("isbn required")
	}
	v, err, _ := c.group.Do(isbn, func() (any, error) {
		return c.fetch(ctx, isbn)
	})
	if err != nil {
		return domain.BookMetadata{}, false, err
	}
	res := v.(lookupResult)
	return res.meta, res.found, nil
}

func (c *Client) fetch(ctx context.Context, isbn string) (lookupResult, error) {
	endpoint := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return lookupResult{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return lookupResult{}, fmt.Errorf("isbn lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return lookupResult{}, fmt.Errorf("isbn lookup: unexpected status %s", resp.Status)
	}
	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return lookupResult{}, fmt.Errorf("isbn lookup: decode response: %w", err)
	}
	if payload.TotalItems == 0 || len(payload.Items) == 0 {
		return lookupResult{}, nil
	}
	info := payload.Items[0].VolumeInfo
	return lookupResult{
		meta: domain.BookMetadata{
			Title:       info.Title,
			Authors:     info.Authors,
			Description: info.Description,
			Categories:  info.Categories,
		},
		found: true,
	}, nil
}
