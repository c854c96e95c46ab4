// Package fetcher retrieves webpage HTML and distills the main article
// text out of it. Fetching is the expensive step of the whole pipeline,
// so the existing-content short-circuit here is load-bearing: anything
// a source adapter already supplied is never re-fetched.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/retry"
)

// ErrBlocked marks a bot-challenge page (Cloudflare interstitial,
// persistent 403/429). Retrying these only burns time, so the retry
// policy treats them as fatal.
var ErrBlocked = errors.New("fetcher: blocked by bot challenge")

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// minExistingContent is the shortest pre-supplied content (non-space
// runes) that makes a network fetch unnecessary.
const minExistingContent = 10

// Getter performs the raw HTTP GET. The indirection keeps tests off the
// network.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// HTTPGetter is the real Getter with browser-mimicking headers and
// challenge-page detection.
type HTTPGetter struct {
	client *http.Client
}

// NewHTTPGetter builds a getter with the given per-request timeout.
func NewHTTPGetter(timeout time.Duration) *HTTPGetter {
	return &HTTPGetter{client: &http.Client{Timeout: timeout}}
}

func (g *HTTPGetter) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", retry.AsFatal(err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return "", retry.AsFatal(ErrBlocked)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	html := string(body)
	if isChallengePage(resp.Header.Get("Content-Type"), html) {
		return "", retry.AsFatal(ErrBlocked)
	}
	return html, nil
}

// isChallengePage spots interstitial pages that no amount of plain HTTP
// retrying will get past.
func isChallengePage(contentType, body string) bool {
	if !strings.Contains(contentType, "text/html") {
		return false
	}
	lower := strings.ToLower(body[:min(len(body), 4096)])
	return strings.Contains(lower, "just a moment") ||
		strings.Contains(lower, "cf-challenge") ||
		strings.Contains(lower, "checking your browser")
}

// Fetcher downloads pages and extracts their main text.
type Fetcher struct {
	getter Getter
	logger *zap.Logger
	policy retry.Policy

	// One request at a time: parallel enrichment workers must not
	// hammer the same sites.
	mu sync.Mutex
}

// New builds a Fetcher with the production getter and the standard
// 3-attempt, 5s, 1.5x policy.
func New(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		getter: NewHTTPGetter(20 * time.Second),
		logger: logger,
		policy: retry.Policy{Attempts: 3, Delay: 5 * time.Second, Backoff: 1.5},
	}
}

// NewWithGetter is the test constructor.
func NewWithGetter(getter Getter, logger *zap.Logger, policy retry.Policy) *Fetcher {
	return &Fetcher{getter: getter, logger: logger, policy: policy}
}

// Fetch returns (extracted text, raw HTML). When existing content is
// substantial and htmlOnly is false, it is returned untouched with no
// network call. Failures degrade to empty strings with the error for
// logging; callers continue through their fallback chain.
func (f *Fetcher) Fetch(ctx context.Context, url, existing string, htmlOnly bool) (string, string, error) {
	if nonSpaceLen(existing) > minExistingContent && !htmlOnly {
		f.logger.Debug("existing content is substantial, skipping fetch",
			zap.String("url", url), zap.Int("length", len(existing)))
		return existing, "", nil
	}

	var html string
	err := f.policy.Do(ctx, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		var gerr error
		html, gerr = f.getter.Get(ctx, url)
		return gerr
	})
	if err != nil {
		f.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return "", "", err
	}

	if htmlOnly {
		return "", html, nil
	}

	text := ExtractContent(html, url)
	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("html_len", len(html)),
		zap.Int("text_len", len(text)))
	return text, html, nil
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !isSpace(r) {
			n++
		}
	}
	return n
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', ' ', '　':
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
