// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-contacts/internal/httputil"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// eutilsServer serves canned esearch and efetch responses and records the
// last query seen by each endpoint.
type eutilsServer struct {
	*httptest.Server
	searches  int32
	fetches   int32
	lastQuery atomic.Value
}

func newEutilsServer(t *testing.T, search, fetch string) *eutilsServer {
	t.Helper()
	s := &eutilsServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.searches, 1)
		s.lastQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(search))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.fetches, 1)
		s.lastQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(fetch))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *eutilsServer) query() url.Values {
	v, _ := s.lastQuery.Load().(url.Values)
	return v
}

func testClient(s *eutilsServer, cfg types.FetchConfig) *Client {
	return NewClient(cfg,
		WithBaseURL(s.URL),
		WithHTTPClient(s.Client()),
		WithRateLimit(0),
	)
}

func TestClientSearch(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{APIKey: "k123", Email: "ops@example.org"})

	ids, err := c.Search(context.Background(), "  food addiction ", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"38000001", "38000002", "38000003"}, ids)

	q := s.query()
	assert.Equal(t, []string{"pubmed"}, q["db"])
	assert.Equal(t, []string{"food addiction"}, q["term"])
	assert.Equal(t, []string{"50"}, q["retmax"])
	assert.Equal(t, []string{"k123"}, q["api_key"])
	assert.Equal(t, []string{"ops@example.org"}, q["email"])
	assert.Equal(t, []string{"pubmed-contacts"}, q["tool"])
}

func TestClientSearch_DefaultMaxResults(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{})

	_, err := c.Search(context.Background(), "obesity", 0)
	require.NoError(t, err)
	q := s.query()
	assert.Equal(t, []string{"1000"}, q["retmax"])
	assert.NotContains(t, q, "api_key")
}

func TestClientSearch_EmptyTerm(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{})

	_, err := c.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, ErrEmptyTerm)
	assert.Zero(t, atomic.LoadInt32(&s.searches))
}

func TestClientSearch_Cached(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{})

	first, err := c.Search(context.Background(), "Obesity", 20)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "obesity", 20)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&s.searches))

	_, err = c.Search(context.Background(), "obesity", 30)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&s.searches), "different max_results is a different search")
}

func TestClientSearch_CacheDisabled(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{CacheSize: -1})

	for i := 0; i < 2; i++ {
		_, err := c.Search(context.Background(), "obesity", 20)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&s.searches))
}

func TestClientFetch(t *testing.T) {
	s := newEutilsServer(t, "", sampleArticleSet)
	c := testClient(s, types.FetchConfig{})

	batch, err := c.Fetch(context.Background(), []string{"38000001", "38000002", "38000003"})
	require.NoError(t, err)
	assert.Len(t, batch.Records, 2)
	assert.Len(t, batch.Malformed, 1)

	q := s.query()
	assert.Equal(t, []string{"38000001,38000002,38000003"}, q["id"])
	assert.Equal(t, []string{"xml"}, q["retmode"])
	assert.Equal(t, []string{"xml"}, q["rettype"])
}

func TestClientFetch_NoIDs(t *testing.T) {
	s := newEutilsServer(t, "", sampleArticleSet)
	c := testClient(s, types.FetchConfig{})

	batch, err := c.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.Zero(t, atomic.LoadInt32(&s.fetches))
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLimit bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusInternalServerError, false},
		{"rate limited", http.StatusTooManyRequests, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "API key invalid", tt.status)
			}))
			defer ts.Close()

			c := NewClient(types.FetchConfig{MaxRetries: 1},
				WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithRateLimit(0))

			_, err := c.Search(context.Background(), "obesity", 10)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "esearch.fcgi", apiErr.Endpoint)
			assert.Equal(t, "API key invalid", apiErr.Message)
			assert.Equal(t, tt.wantLimit, errors.Is(err, ErrRateLimited))
		})
	}
}

func TestClient_RetriesUnavailable(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleSearch))
	}))
	defer ts.Close()

	c := NewClient(types.FetchConfig{}, WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithRateLimit(0))
	ids, err := c.Search(context.Background(), "obesity", 10)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_NetworkErrorRedactsKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := ts.URL
	ts.Close()

	c := NewClient(types.FetchConfig{APIKey: "supersecret"}, WithBaseURL(addr), WithRateLimit(0))
	_, err := c.Search(context.Background(), "obesity", 10)
	require.ErrorIs(t, err, ErrNetwork)
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestClient_ContextCancelled(t *testing.T) {
	s := newEutilsServer(t, sampleSearch, "")
	c := testClient(s, types.FetchConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "obesity", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_RateLimit(t *testing.T) {
	anon := NewClient(types.FetchConfig{})
	assert.InDelta(t, float64(RateLimitAnonymous), float64(anon.limiter.Limit()), 0.001)

	keyed := NewClient(types.FetchConfig{APIKey: "k"})
	assert.InDelta(t, float64(RateLimitWithKey), float64(keyed.limiter.Limit()), 0.001)
}
