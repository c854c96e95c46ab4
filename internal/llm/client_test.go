package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompleteRoundTrip(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "回答内容"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30}
		}`))
	}))
	defer srv.Close()

	usage := NewUsageTracker()
	c := NewClient(srv.URL, "qwen2.5:14b", "secret", usage)

	got, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "你是助手"},
		{Role: "user", Content: "总结一下"},
	}, 512)
	require.NoError(t, err)
	assert.Equal(t, "回答内容", got)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "qwen2.5:14b", gotReq.Model)
	assert.Equal(t, 512, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)

	totals := usage.Snapshot()
	require.Contains(t, totals, "qwen2.5:14b")
	assert.Equal(t, 120, totals["qwen2.5:14b"].PromptTokens)
	assert.Equal(t, 30, totals["qwen2.5:14b"].CompletionTokens)
	assert.Equal(t, 1, totals["qwen2.5:14b"].Calls)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "m", "", nil)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, 0)
	assert.ErrorContains(t, err, "rate limited")
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "m", "", nil)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, 0)
	assert.Error(t, err)
}

func TestCompleteMisconfigured(t *testing.T) {
	c := NewClient("", "", "", nil)
	_, err := c.Complete(context.Background(), nil, 0)
	assert.Error(t, err)
}

func TestUsageTrackerAccumulates(t *testing.T) {
	u := NewUsageTracker()
	u.Add("a", 10, 5)
	u.Add("a", 20, 10)
	u.Add("b", 1, 1)

	totals := u.Snapshot()
	assert.Equal(t, Usage{PromptTokens: 30, CompletionTokens: 15, Calls: 2}, totals["a"])
	assert.Equal(t, Usage{PromptTokens: 1, CompletionTokens: 1, Calls: 1}, totals["b"])

	// Log only needs to not blow up on a populated tracker.
	u.Log(zap.NewNop())
}
