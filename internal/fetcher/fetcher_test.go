package fetcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/retry"
)

// mockGetter records calls and serves canned pages.
type mockGetter struct {
	calls int
	html  string
	err   error
}

func (m *mockGetter) Get(ctx context.Context, url string) (string, error) {
	m.calls++
	return m.html, m.err
}

func newTestFetcher(g Getter) *Fetcher {
	return NewWithGetter(g, zap.NewNop(), retry.Policy{Attempts: 3})
}

func TestFetchShortCircuitsOnExistingContent(t *testing.T) {
	g := &mockGetter{html: "<html><body>ignored</body></html>"}
	f := newTestFetcher(g)

	existing := "这段已有内容足够长不需要再抓取"
	text, raw, err := f.Fetch(context.Background(), "https://example.com/a", existing, false)

	require.NoError(t, err)
	assert.Equal(t, existing, text)
	assert.Empty(t, raw)
	assert.Zero(t, g.calls, "substantial existing content must cost zero network calls")
}

func TestFetchIgnoresShortExistingContent(t *testing.T) {
	g := &mockGetter{html: "<html><body><p>real page</p></body></html>"}
	f := newTestFetcher(g)

	_, _, err := f.Fetch(context.Background(), "https://example.com/a", "短", false)
	require.NoError(t, err)
	assert.Equal(t, 1, g.calls)
}

func TestFetchHTMLOnlyBypassesShortCircuit(t *testing.T) {
	g := &mockGetter{html: "<html><head></head><body>page</body></html>"}
	f := newTestFetcher(g)

	text, raw, err := f.Fetch(context.Background(), "https://example.com/a", "这段已有内容足够长不需要再抓取", true)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, g.html, raw)
	assert.Equal(t, 1, g.calls)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	g := &mockGetter{err: errors.New("connection reset")}
	f := newTestFetcher(g)

	_, _, err := f.Fetch(context.Background(), "https://example.com/a", "", false)
	assert.Error(t, err)
	assert.Equal(t, 3, g.calls)
}

func TestFetchBlockedIsNotRetried(t *testing.T) {
	g := &mockGetter{err: retry.AsFatal(ErrBlocked)}
	f := newTestFetcher(g)

	_, _, err := f.Fetch(context.Background(), "https://example.com/a", "", false)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, g.calls, "bot challenges must short-circuit the retry loop")
}

func TestIsChallengePage(t *testing.T) {
	assert.True(t, isChallengePage("text/html", "<title>Just a moment...</title>"))
	assert.True(t, isChallengePage("text/html; charset=utf-8", `<div id="cf-challenge-running">`))
	assert.False(t, isChallengePage("text/html", "<html><body>ordinary page</body></html>"))
	assert.False(t, isChallengePage("application/json", "just a moment"))
}

func TestExtractContentPrefersArticleContainer(t *testing.T) {
	body := strings.Repeat("这是正文的一句话。", 40)
	html := `<html><body>
		<nav>导航 导航 导航</nav>
		<article>` + body + `</article>
		<footer>页脚</footer>
	</body></html>`

	got := ExtractContent(html, "https://example.com/post")
	assert.Contains(t, got, "这是正文的一句话")
	assert.NotContains(t, got, "导航")
	assert.NotContains(t, got, "页脚")
}

func TestExtractContentFallsBackToBody(t *testing.T) {
	html := `<html><body><div>只有一点内容</div></body></html>`
	got := ExtractContent(html, "https://example.com/tiny")
	assert.Contains(t, got, "只有一点内容")
}

func TestCleanupCollapsesWhitespaceAndNoise(t *testing.T) {
	in := "正文  开始\n\n版权所有 某公司 保留所有权利 点击查看原文 正文结束"
	got := Cleanup(in)
	assert.NotContains(t, got, "\n")
	assert.NotContains(t, got, "保留所有权利")
	assert.NotContains(t, got, "点击查看原文")
	assert.Contains(t, got, "正文 开始")
}

func TestCleanupCapsOnSentenceBoundary(t *testing.T) {
	sentence := "这是一个完整的句子。"
	long := strings.Repeat(sentence, 500)
	got := Cleanup(long)

	runes := []rune(got)
	assert.LessOrEqual(t, len(runes), maxContent)
	assert.Equal(t, '。', runes[len(runes)-1], "the cap should land on a sentence end")
}

func TestNonSpaceLen(t *testing.T) {
	assert.Equal(t, 4, nonSpaceLen("a b　c\nd"))
	assert.Zero(t, nonSpaceLen("   \t\n"))
}
