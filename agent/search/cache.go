package search

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = time.Hour
)

// ResponseCache keeps recent web search results keyed by language and
// normalized query.
type ResponseCache struct {
	lru *expirable.LRU[string, []contractx.SearchResult]
}

func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{lru: expirable.NewLRU[string, []contractx.SearchResult](size, nil, ttl)}
}

// CacheKey lower-cases the query and collapses whitespace.
func CacheKey(lang, query string) string {
	return strings.ToLower(strings.TrimSpace(lang)) + ":" + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (c *ResponseCache) Get(lang, query string) ([]contractx.SearchResult, bool) {
	return c.lru.Get(CacheKey(lang, query))
}

func (c *ResponseCache) Put(lang, query string, results []contractx.SearchResult) {
	c.lru.Add(CacheKey(lang, query), results)
}

func (c *ResponseCache) Len() int { return c.lru.Len() }
