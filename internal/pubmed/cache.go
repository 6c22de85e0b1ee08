// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

// searchCache keeps recent esearch results so repeating a search within the
// TTL does not hit the API again. A nil cache is valid and never hits.
type searchCache struct {
	cache gcache.Cache
}

func newSearchCache(size int, ttl time.Duration) *searchCache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = DefaultCacheSize
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &searchCache{cache: b.Build()}
}

func searchKey(term string, maxResults int) string {
	return fmt.Sprintf("%d|%s", maxResults, strings.ToLower(strings.TrimSpace(term)))
}

func (s *searchCache) get(key string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	v, err := s.cache.Get(key)
	if err != nil {
		return nil, false
	}
	ids, ok := v.([]string)
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

func (s *searchCache) set(key string, ids []string) {
	if s == nil {
		return
	}
	if err := s.cache.Set(key, append([]string(nil), ids...)); err != nil {
		s.cache.Remove(key)
	}
}
