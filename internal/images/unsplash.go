// internal/images/unsplash.go
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/utils"
)

const defaultCacheSize = 512

// SearchClient looks up stock photos on Unsplash. Results are cached in a
// bounded LRU keyed by (type, query) so repeated lookups within one process
// don't re-hit the provider; the cache is best-effort and not persisted.
type SearchClient struct {
	accessKey  string
	baseURL    string
	client     *http.Client
	cache      *lru.Cache[string, string]
	retryDelay time.Duration
}

// NewSearchClient builds a client. An empty access key is accepted here;
// searches fail with a descriptive error at first invocation instead.
func NewSearchClient(accessKey string) (*SearchClient, error) {
	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &SearchClient{
		accessKey:  accessKey,
		baseURL:    "https://api.unsplash.com",
		client:     &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		retryDelay: time.Second,
	}, nil
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *SearchClient) SetBaseURL(base string) {
	c.baseURL = base
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// statusError carries the HTTP status so the retry policy can distinguish
// rate limiting (403) from everything else.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unsplash API error (%d): %s", e.status, e.body)
}

// SearchImage returns the URL of the top search result for query. A 403 from
// the provider is treated as transient rate limiting and retried up to 3
// attempts with a fixed delay; every other failure propagates immediately.
func (c *SearchClient) SearchImage(ctx context.Context, imageType, query string) (string, error) {
	if c.accessKey == "" {
		return "", apperrors.NewUpstreamError(
			"Unsplash access key is not configured; set UNSPLASH_ACCESS_KEY", nil)
	}

	cacheKey := imageType + "\x00" + query
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	var result string
	operation := func() error {
		imageURL, err := c.searchOnce(ctx, query)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.status == http.StatusForbidden {
				return err // transient rate limit, retry
			}
			return backoff.Permanent(err)
		}
		result = imageURL
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", apperrors.NewUpstreamError("image search failed", err)
	}

	c.cache.Add(cacheKey, result)
	return result, nil
}

func (c *SearchClient) searchOnce(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=1", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Results) == 0 {
		utils.GetLogger().Debug("no image results", map[string]interface{}{"query": query})
		return "", nil
	}
	return parsed.Results[0].URLs.Regular, nil
}
