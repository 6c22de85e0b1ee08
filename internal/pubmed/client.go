// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed queries the NCBI E-utilities API: esearch for PMIDs and
// efetch for the article XML behind them.
package pubmed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-contacts/internal/httputil"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

const (
	// BaseURL is the E-utilities endpoint root.
	BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	DefaultTimeout    = 60 * time.Second
	DefaultMaxResults = 1000
	DefaultCacheSize  = 64
	DefaultCacheTTL   = 10 * time.Minute

	// NCBI allows 10 requests per second with an API key and 3 without.
	RateLimitWithKey   = 10
	RateLimitAnonymous = 3

	toolName = "pubmed-contacts"
)

// Client talks to esearch and efetch. It satisfies contacts.Source.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *searchCache
	logger     *zap.Logger

	baseURL    string
	apiKey     string
	email      string
	userAgent  string
	maxRetries int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different E-utilities root. Tests use
// it to substitute an httptest server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger used for request and retry events.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit overrides the requests-per-second budget. Zero or a negative
// value disables client-side limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient builds a Client from the fetch configuration.
func NewClient(cfg types.FetchConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	perSecond := RateLimitAnonymous
	if cfg.APIKey != "" {
		perSecond = RateLimitWithKey
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = toolName
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		cache:      newSearchCache(cfg.CacheSize, ttl),
		logger:     zap.NewNop(),
		baseURL:    BaseURL,
		apiKey:     cfg.APIKey,
		email:      cfg.Email,
		userAgent:  userAgent,
		maxRetries: cfg.MaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to maxResults PMIDs matching term, most relevant first.
// Results are served from the in-memory cache when the same search ran
// recently.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyTerm
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	key := searchKey(term, maxResults)
	if ids, ok := c.cache.get(key); ok {
		c.logger.Debug("search cache hit", zap.String("term", term), zap.Int("ids", len(ids)))
		return ids, nil
	}

	params := url.Values{
		"db":     {"pubmed"},
		"term":   {term},
		"retmax": {strconv.Itoa(maxResults)},
	}
	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	ids, count, err := ParseSearch(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("search complete",
		zap.String("term", term),
		zap.Int("count", count),
		zap.Int("ids", len(ids)),
	)

	c.cache.set(key, ids)
	return ids, nil
}

// Fetch retrieves the article records for one batch of PMIDs.
func (c *Client) Fetch(ctx context.Context, ids []string) (types.ArticleBatch, error) {
	if len(ids) == 0 {
		return types.ArticleBatch{}, nil
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"rettype": {"xml"},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return types.ArticleBatch{}, err
	}

	batch, err := ParseArticleSet(bytes.NewReader(body))
	if err != nil {
		return types.ArticleBatch{}, err
	}
	c.logger.Debug("fetch complete",
		zap.Int("requested", len(ids)),
		zap.Int("records", len(batch.Records)),
		zap.Int("malformed", len(batch.Malformed)),
	)
	return batch, nil
}

// get performs one paced GET against an E-utilities endpoint and returns the
// response body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("tool", toolName)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}

	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries, c.logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNetwork, endpoint, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNetwork, endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    errorMessage(body, resp.Status),
		}
	}
	return body, nil
}

// redact strips the API key from transport errors, which embed the request URL.
func redact(err error, apiKey string) string {
	msg := err.Error()
	if apiKey == "" {
		return msg
	}
	return strings.ReplaceAll(msg, apiKey, "REDACTED")
}

// errorMessage extracts a short message from an error response body.
func errorMessage(body []byte, status string) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<") {
		return status
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
