package feedgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

func TestBuild(t *testing.T) {
	now := time.Date(2025, 3, 29, 8, 0, 0, 0, time.UTC)

	stamped := model.Article{Title: "有时间的条目", URL: "https://example.com/1", Source: "少数派", Summary: "摘要内容"}
	stamped.SetPublishTime(now.Add(-2 * time.Hour))

	articles := []model.Article{
		stamped,
		{Title: "没有时间的条目", URL: "https://example.com/2", Source: "RSS源", Desc: "描述内容"},
	}

	xml, err := Build(articles, Options{
		Title:       "每日热点",
		Link:        "https://hot.example.com",
		Description: "测试输出",
	}, now)
	require.NoError(t, err)

	assert.Contains(t, xml, "<title>每日热点</title>")
	assert.Contains(t, xml, "有时间的条目")
	assert.Contains(t, xml, "https://example.com/1")
	assert.Contains(t, xml, "摘要内容")
	assert.Contains(t, xml, "描述内容", "desc stands in for a missing summary")
}

func TestBuildDefaults(t *testing.T) {
	xml, err := Build(nil, Options{Link: "https://hot.example.com"}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, xml, "每日热点")
}

func TestItemTime(t *testing.T) {
	fallback := time.Date(2025, 3, 29, 12, 0, 0, 0, time.Local)

	withTS := model.Article{}
	withTS.SetPublishTime(fallback.Add(-time.Hour))
	assert.Equal(t, fallback.Add(-time.Hour).Unix(), itemTime(withTS, fallback).Unix())

	fromString := model.Article{Published: "2025-03-28 10:00:00"}
	assert.Equal(t, 28, itemTime(fromString, fallback).Day())

	fromExtracted := model.Article{ExtractedTime: "2025-03-27T09:00:00+08:00"}
	assert.Equal(t, 27, itemTime(fromExtracted, fallback).Day())

	bare := model.Article{}
	assert.Equal(t, fallback, itemTime(bare, fallback))
}
