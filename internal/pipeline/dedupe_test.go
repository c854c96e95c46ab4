package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

func stamped(title, source string, t time.Time) model.Article {
	art := model.Article{Title: title, Source: source, URL: "https://example.com/" + title}
	art.SetPublishTime(t)
	return art
}

func TestFilterRecentWindow(t *testing.T) {
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)
	windowStart := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	articles := []model.Article{
		stamped("今晨新闻", "少数派", now.Add(-time.Hour)),
		stamped("昨天的新闻", "少数派", windowStart.Add(time.Hour)),
		stamped("前天的新闻", "少数派", windowStart.Add(-time.Hour)),
		{Title: "无时间新闻", Source: "RSS源", URL: "https://example.com/undated"},
	}

	kept := FilterRecent(articles, windowStart, now, zap.NewNop())
	require.Len(t, kept, 3)
	assert.Equal(t, "今晨新闻", kept[0].Title)
	assert.Equal(t, "昨天的新闻", kept[1].Title)
	assert.Equal(t, "无时间新闻", kept[2].Title, "unparseable times fail open")
}

func TestFilterRecentYearRebase(t *testing.T) {
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)
	windowStart := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	// Same month and day, wrong year: a feed stamped 2030.
	future := stamped("年份错误的新闻", "RSS源", time.Date(2030, 3, 29, 8, 0, 0, 0, time.Local))

	kept := FilterRecent([]model.Article{future}, windowStart, now, zap.NewNop())
	require.Len(t, kept, 1, "year-inflated timestamps are rebased, not dropped")
	assert.Equal(t, 2025, kept[0].Timestamp.Time().Year())
}

func TestFilterRecentDropsTrueFuture(t *testing.T) {
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)
	windowStart := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	// Same year but five hours ahead: no rebase applies, out of window.
	future := stamped("超前的新闻", "RSS源", now.Add(5*time.Hour))
	kept := FilterRecent([]model.Article{future}, windowStart, now, zap.NewNop())
	assert.Empty(t, kept)
}

func TestFilterRecentDropsAnythingPastNow(t *testing.T) {
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)
	windowStart := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	articles := []model.Article{
		stamped("半小时后的新闻", "RSS源", now.Add(30*time.Minute)),
		stamped("刚好现在的新闻", "RSS源", now),
	}

	kept := FilterRecent(articles, windowStart, now, zap.NewNop())
	require.Len(t, kept, 1, "the window closes at now, not at now plus skew")
	assert.Equal(t, "刚好现在的新闻", kept[0].Title)
}

func TestFilterRecentParsesStringTimes(t *testing.T) {
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)
	windowStart := time.Date(2025, 3, 28, 0, 0, 0, 0, time.Local)

	art := model.Article{Title: "字符串时间", URL: "u", Time: "2025-03-27 08:00:00"}
	kept := FilterRecent([]model.Article{art}, windowStart, now, zap.NewNop())
	assert.Empty(t, kept, "string times participate in the window check")
}

func TestDedupePreferredSourceWins(t *testing.T) {
	articles := []model.Article{
		{Title: "相同标题", Source: "少数派", URL: "https://sspai.com/1"},
		{Title: "相同标题", Source: "RSS-机器之心", URL: "https://jiqizhixin.com/1"},
		{Title: "另一条", Source: "掘金", URL: "https://juejin.cn/1"},
	}

	out := Dedupe(articles, []string{"RSS", "Twitter"}, zap.NewNop())
	require.Len(t, out, 2)
	assert.Equal(t, "RSS-机器之心", out[0].Source, "the preferred duplicate replaces the board item in place")
	assert.Equal(t, "另一条", out[1].Title)
}

func TestDedupeFirstSeenWinsAmongEquals(t *testing.T) {
	articles := []model.Article{
		{Title: "相同标题", Source: "少数派", URL: "https://sspai.com/1"},
		{Title: "相同标题", Source: "掘金", URL: "https://juejin.cn/1"},
	}

	out := Dedupe(articles, []string{"RSS"}, zap.NewNop())
	require.Len(t, out, 1)
	assert.Equal(t, "少数派", out[0].Source)
}

func TestDedupePreferredNeverReplacedByPreferred(t *testing.T) {
	articles := []model.Article{
		{Title: "相同标题", Source: "Twitter-宝玉", URL: "https://twitter.com/1"},
		{Title: "相同标题", Source: "RSS-机器之心", URL: "https://jiqizhixin.com/1"},
	}

	out := Dedupe(articles, []string{"RSS", "Twitter"}, zap.NewNop())
	require.Len(t, out, 1)
	assert.Equal(t, "Twitter-宝玉", out[0].Source)
}

func TestDedupeKeepsEmptyTitles(t *testing.T) {
	articles := []model.Article{
		{Title: "", URL: "https://example.com/1"},
		{Title: "", URL: "https://example.com/2"},
	}
	out := Dedupe(articles, nil, zap.NewNop())
	assert.Len(t, out, 2, "untitled items cannot be called duplicates of each other")
}
