package llm

import (
	"sync"

	"go.uber.org/zap"
)

// Usage accumulates token counts for one model.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	Calls            int `json:"calls"`
}

// UsageTracker aggregates token consumption per model across a run.
type UsageTracker struct {
	mu     sync.Mutex
	models map[string]*Usage
}

// NewUsageTracker returns an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{models: make(map[string]*Usage)}
}

// Add records one call's usage.
func (t *UsageTracker) Add(model string, prompt, completion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.models[model]
	if !ok {
		u = &Usage{}
		t.models[model] = u
	}
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.Calls++
}

// Snapshot returns a copy of the per-model totals.
func (t *UsageTracker) Snapshot() map[string]Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Usage, len(t.models))
	for m, u := range t.models {
		out[m] = *u
	}
	return out
}

// Log writes the totals at the end of a run.
func (t *UsageTracker) Log(logger *zap.Logger) {
	for model, u := range t.Snapshot() {
		logger.Info("llm token usage",
			zap.String("model", model),
			zap.Int("calls", u.Calls),
			zap.Int("prompt_tokens", u.PromptTokens),
			zap.Int("completion_tokens", u.CompletionTokens),
		)
	}
}
