package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// DefaultTweetArchiveBase hosts one JSON file per day of collected
// tweets.
const DefaultTweetArchiveBase = "https://raw.githubusercontent.com/tuber0613/x-kit/main/tweets/"

// tweetTimeLayout matches "Sat Mar 29 07:42:16 +0000 2025".
const tweetTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Tweets longer than this get a truncated title.
const tweetTitleMax = 50

type tweet struct {
	FullText  string `json:"fullText"`
	TweetURL  string `json:"tweetUrl"`
	CreatedAt string `json:"createdAt"`
	User      struct {
		Name       string `json:"name"`
		ScreenName string `json:"screenName"`
	} `json:"user"`
}

// Twitter reads the day-keyed tweet archive.
type Twitter struct {
	base   string
	client *http.Client
	logger *zap.Logger
}

// NewTwitter builds an archive reader.
func NewTwitter(base string, logger *zap.Logger) *Twitter {
	if base == "" {
		base = DefaultTweetArchiveBase
	}
	return &Twitter{
		base:   strings.TrimRight(base, "/") + "/",
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// FetchDays collects tweets for today back through days-1 days ago.
// Missing day files are normal (the archive lags) and are skipped.
func (t *Twitter) FetchDays(ctx context.Context, now time.Time, days int) []model.Article {
	if days < 1 {
		days = 1
	}
	var all []model.Article
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i)
		articles, err := t.fetchDay(ctx, day)
		if err != nil {
			t.logger.Warn("tweet archive day failed",
				zap.String("day", day.Format("2006-01-02")), zap.Error(err))
			continue
		}
		all = append(all, articles...)
	}
	t.logger.Info("collected tweets", zap.Int("count", len(all)))
	return all
}

func (t *Twitter) fetchDay(ctx context.Context, day time.Time) ([]model.Article, error) {
	u := t.base + day.Format("2006-01-02") + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		t.logger.Debug("no tweet file for day", zap.String("url", u))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}

	var tweets []tweet
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&tweets); err != nil {
		return nil, fmt.Errorf("decode %s: %w", u, err)
	}

	articles := make([]model.Article, 0, len(tweets))
	for _, tw := range tweets {
		if tw.FullText == "" || tw.TweetURL == "" {
			continue
		}
		art := model.Article{
			Title:   tweetTitle(tw.FullText),
			URL:     tw.TweetURL,
			Source:  tweetSource(tw),
			Content: tw.FullText,
			Desc:    tw.FullText,
		}
		if created, err := time.Parse(tweetTimeLayout, tw.CreatedAt); err == nil {
			art.SetPublishTime(created)
		} else if tw.CreatedAt != "" {
			t.logger.Warn("unparseable tweet time",
				zap.String("created_at", tw.CreatedAt), zap.Error(err))
		}
		articles = append(articles, art)
	}
	return articles, nil
}

func tweetTitle(fullText string) string {
	runes := []rune(fullText)
	if len(runes) <= tweetTitleMax {
		return fullText
	}
	return string(runes[:tweetTitleMax-3]) + "..."
}

func tweetSource(tw tweet) string {
	switch {
	case tw.User.Name != "":
		return "Twitter-" + tw.User.Name
	case tw.User.ScreenName != "":
		return "Twitter-" + tw.User.ScreenName
	default:
		return "Twitter"
	}
}
