package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	bingx "github.com/tanpawarit/civic-chat/pkg/bing"
)

var ErrSearchUnavailable = errors.New("web search unavailable")

// CachedSearcher serves cached results when the live search fails.
type CachedSearcher struct {
	inner contractx.WebSearcher
	cache *ResponseCache
}

var _ contractx.WebSearcher = (*CachedSearcher)(nil)

func NewCachedSearcher(inner contractx.WebSearcher, cache *ResponseCache) *CachedSearcher {
	if cache == nil {
		cache = NewResponseCache(0, 0)
	}
	return &CachedSearcher{inner: inner, cache: cache}
}

func (s *CachedSearcher) Search(ctx context.Context, query string, lang string) ([]contractx.SearchResult, error) {
	var err error
	if s.inner != nil {
		var results []contractx.SearchResult
		results, err = s.inner.Search(ctx, query, lang)
		if err == nil {
			s.cache.Put(lang, query, results)
			return results, nil
		}
	} else {
		err = errors.New("no web searcher configured")
	}

	if cached, ok := s.cache.Get(lang, query); ok {
		log.Warn().Err(err).Str("query", query).Msg("web search failed; serving cached results")
		return cached, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
}

type pageSearcher interface {
	Search(ctx context.Context, query, market string) ([]bingx.Page, error)
}

// BingSearcher adapts the Bing client to the web search contract.
type BingSearcher struct {
	client pageSearcher
}

func NewBingSearcher(client *bingx.Client) *BingSearcher {
	return &BingSearcher{client: client}
}

func (b *BingSearcher) Search(ctx context.Context, query string, lang string) ([]contractx.SearchResult, error) {
	pages, err := b.client.Search(ctx, query, bingx.Market(lang))
	if err != nil {
		return nil, err
	}
	out := make([]contractx.SearchResult, 0, len(pages))
	for _, p := range pages {
		out = append(out, contractx.SearchResult{Text: p.Snippet, Source: p.URL, Title: p.Name})
	}
	return out, nil
}
