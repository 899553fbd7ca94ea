package openrouter

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Usage is the token count of one or more model calls.
type Usage struct {
	Calls            int64 `json:"calls"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (u Usage) add(o Usage) Usage {
	return Usage{
		Calls:            u.Calls + o.Calls,
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// UsageTracker keeps running token totals per scope (a gateway role or a
// handler name). A nil tracker only logs.
type UsageTracker struct {
	mu     sync.Mutex
	totals map[string]Usage
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{totals: make(map[string]Usage)}
}

// Record logs one call's usage and adds it to the scope's totals.
func (t *UsageTracker) Record(scope, model string, u Usage) {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	log.Debug().
		Str("scope", scope).
		Str("model", model).
		Int64("prompt_tokens", u.PromptTokens).
		Int64("completion_tokens", u.CompletionTokens).
		Int64("total_tokens", u.TotalTokens).
		Msg("llm call")
	if t == nil {
		return
	}
	u.Calls = 1

	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals[scope] = t.totals[scope].add(u)
}

func (t *UsageTracker) Totals(scope string) Usage {
	if t == nil {
		return Usage{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals[scope]
}

// Snapshot copies every scope's totals.
func (t *UsageTracker) Snapshot() map[string]Usage {
	out := map[string]Usage{}
	if t == nil {
		return out
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}

// LogTotals writes one line per scope, sorted by scope name.
func (t *UsageTracker) LogTotals() {
	snap := t.Snapshot()
	scopes := make([]string, 0, len(snap))
	for k := range snap {
		scopes = append(scopes, k)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		u := snap[scope]
		log.Info().
			Str("scope", scope).
			Int64("calls", u.Calls).
			Int64("prompt_tokens", u.PromptTokens).
			Int64("completion_tokens", u.CompletionTokens).
			Int64("total_tokens", u.TotalTokens).
			Msg("llm usage totals")
	}
}
