package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTwitterFetchDays(t *testing.T) {
	now := time.Now()
	today := now.Format("2006-01-02")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, today+".json") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{
				"fullText": "` + strings.Repeat("长推文内容", 20) + `",
				"tweetUrl": "https://twitter.com/dotey/status/1",
				"createdAt": "Sat Mar 29 07:42:16 +0000 2025",
				"user": {"name": "宝玉", "screenName": "dotey"}
			},
			{
				"fullText": "短推文",
				"tweetUrl": "https://twitter.com/op7418/status/2",
				"createdAt": "bad time format",
				"user": {"screenName": "op7418"}
			},
			{"fullText": "", "tweetUrl": "https://twitter.com/x/status/3"}
		]`))
	}))
	defer srv.Close()

	tw := NewTwitter(srv.URL, zap.NewNop())
	articles := tw.FetchDays(context.Background(), now, 2)

	require.Len(t, articles, 2, "yesterday 404s, the empty tweet is dropped")

	long := articles[0]
	assert.Equal(t, "Twitter-宝玉", long.Source)
	assert.True(t, strings.HasSuffix(long.Title, "..."))
	assert.Equal(t, 50, len([]rune(long.Title)))
	assert.Equal(t, long.Content, long.Desc)
	assert.False(t, long.Timestamp.IsZero())
	assert.True(t, long.IsTwitter())

	short := articles[1]
	assert.Equal(t, "Twitter-op7418", short.Source, "screenName backs up a missing display name")
	assert.Equal(t, "短推文", short.Title)
	assert.True(t, short.Timestamp.IsZero(), "an unparseable createdAt leaves the timestamp empty")
}

func TestTwitterMissingDayIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	tw := NewTwitter(srv.URL, zap.NewNop())
	articles := tw.FetchDays(context.Background(), time.Now(), 3)
	assert.Empty(t, articles)
}

func TestTweetTitle(t *testing.T) {
	assert.Equal(t, "正好五十个字以内", tweetTitle("正好五十个字以内"))

	long := strings.Repeat("字", 60)
	got := tweetTitle(long)
	assert.Equal(t, 50, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
