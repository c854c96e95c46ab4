// Package summarizer turns article content into a short Chinese
// summary plus a tech classification, with a content-hash cache in
// front of the model so repeated runs never pay twice for the same
// text.
package summarizer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/cache"
	"github.com/VandeeFeng/wisecrawl/internal/llm"
	"github.com/VandeeFeng/wisecrawl/internal/model"
	"github.com/VandeeFeng/wisecrawl/internal/retry"
)

// ErrContentTooShort means the content is below the summarization
// threshold; callers fall back to other summary sources.
var ErrContentTooShort = errors.New("summarizer: content too short")

// hashPrefixRunes bounds how much content feeds the cache key. Long
// articles differ in their head; hashing everything buys nothing.
const hashPrefixRunes = 2000

// rawFallbackRunes is how much of an unparseable model reply survives
// as the summary.
const rawFallbackRunes = 80

const systemPrompt = "你是一个新闻摘要助手。请阅读给定的新闻内容，用不超过100字的中文概括核心信息，并判断其是否与科技相关。" +
	`只输出JSON，格式为 {"summary": "...", "is_tech": true}`

// Result is one summarization outcome.
type Result struct {
	Summary   string
	IsTech    bool
	FromCache bool
}

// Summarizer is the gateway in front of the chat model.
type Summarizer struct {
	chat   llm.ChatClient
	store  cache.Store
	logger *zap.Logger
	policy retry.Policy
}

// New wires a chat client and a cache store together.
func New(chat llm.ChatClient, store cache.Store, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		chat:   chat,
		store:  store,
		logger: logger,
		policy: retry.Policy{Attempts: 3, Delay: 5 * time.Second},
	}
}

// Summarize returns a cached or freshly generated summary for the
// content. Content below the threshold short-circuits without an LLM
// call.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (Result, error) {
	if nonSpaceLen(content) < model.MinContentLength {
		return Result{}, ErrContentTooShort
	}

	hash := ContentHash(content)
	if entry, err := s.store.Get(hash); err == nil {
		s.logger.Debug("summary cache hit", zap.String("title", title))
		return Result{Summary: entry.Summary, IsTech: entry.IsTech, FromCache: true}, nil
	}

	var raw string
	err := s.policy.Do(ctx, func() error {
		var cerr error
		raw, cerr = s.chat.Complete(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("标题：%s\n\n内容：%s", title, content)},
		}, 512)
		return cerr
	})
	if err != nil {
		s.logger.Warn("summarization failed", zap.String("title", title), zap.Error(err))
		return Result{}, err
	}

	result := parseReply(raw)
	entry := cache.Entry{Summary: result.Summary, IsTech: result.IsTech}
	if err := s.store.Put(hash, entry); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
	return result, nil
}

// ContentHash keys the cache on the md5 of the content's head.
func ContentHash(content string) string {
	runes := []rune(content)
	if len(runes) > hashPrefixRunes {
		runes = runes[:hashPrefixRunes]
	}
	sum := md5.Sum([]byte(string(runes)))
	return hex.EncodeToString(sum[:])
}

// parseReply tolerates models that wrap the JSON in prose or fences.
// When no JSON can be recovered, the raw head of the reply becomes the
// summary.
func parseReply(raw string) Result {
	var parsed struct {
		Summary string `json:"summary"`
		IsTech  bool   `json:"is_tech"`
	}
	if candidate, ok := extractJSON(raw); ok {
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil && parsed.Summary != "" {
			return Result{Summary: parsed.Summary, IsTech: parsed.IsTech}
		}
	}

	head := []rune(strings.TrimSpace(raw))
	if len(head) > rawFallbackRunes {
		head = head[:rawFallbackRunes]
	}
	return Result{Summary: string(head)}
}

func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '　' {
			n++
		}
	}
	return n
}
