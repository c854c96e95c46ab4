package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/fetcher"
	"github.com/VandeeFeng/wisecrawl/internal/model"
	"github.com/VandeeFeng/wisecrawl/internal/retry"
)

// descPlaceholder marks feeds that stuff a "read the original" link
// into the description instead of real text.
const descPlaceholder = "点击查看原文"

// minDescRunes is the shortest stripped description worth keeping.
const minDescRunes = 10

// minContentRunes is the non-trivial threshold for the entry content
// cascade.
const minContentRunes = 20

// Feed identifies one subscription. Name becomes the article source.
// A feed may instead be a group of accounts (a Twitter-via-RSS-bridge
// style bundle); each account is fetched independently under the
// source label "<group>-<account>".
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Accounts []Feed `yaml:"accounts,omitempty"`
}

// expand flattens account groups into plain feeds.
func expand(feeds []Feed) []Feed {
	out := make([]Feed, 0, len(feeds))
	for _, feed := range feeds {
		if len(feed.Accounts) == 0 {
			out = append(out, feed)
			continue
		}
		for _, acct := range feed.Accounts {
			out = append(out, Feed{Name: feed.Name + "-" + acct.Name, URL: acct.URL})
		}
	}
	return out
}

// RSS fetches and normalizes feed entries.
type RSS struct {
	parser *gofeed.Parser
	client *http.Client
	policy retry.Policy
	logger *zap.Logger
}

// NewRSS builds the feed reader with the standard retry policy.
func NewRSS(logger *zap.Logger) *RSS {
	return &RSS{
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 20 * time.Second},
		policy: retry.Policy{Attempts: 3, Delay: 5 * time.Second, Backoff: 1.5},
		logger: logger,
	}
}

// Fetch pulls one feed and drops entries published before cutoff.
// Entries with no parseable date pass through so a sloppy feed cannot
// silently vanish.
func (r *RSS) Fetch(ctx context.Context, feed Feed, cutoff time.Time) ([]model.Article, error) {
	var body string
	err := r.policy.Do(ctx, func() error {
		var ferr error
		body, ferr = r.download(ctx, feed.URL)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}

	parsed, err := r.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	articles := make([]model.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		published := itemTime(item)
		if published != nil && published.Before(cutoff) {
			continue
		}

		art := model.Article{
			Title:   strings.TrimSpace(stripCDATA(item.Title)),
			URL:     item.Link,
			Source:  feed.Name,
			Content: entryContent(item),
			Desc:    entryDesc(item),
		}
		if published != nil {
			art.SetPublishTime(*published)
		}
		articles = append(articles, art)
	}

	r.logger.Info("fetched rss feed",
		zap.String("feed", feed.Name),
		zap.Int("total", len(parsed.Items)),
		zap.Int("kept", len(articles)))
	return articles, nil
}

// FetchAll runs every feed sequentially, logging and skipping failures
// so one dead feed never kills the batch.
func (r *RSS) FetchAll(ctx context.Context, feeds []Feed, cutoff time.Time) []model.Article {
	var all []model.Article
	for _, feed := range expand(feeds) {
		articles, err := r.Fetch(ctx, feed, cutoff)
		if err != nil {
			r.logger.Warn("skipping feed", zap.String("feed", feed.Name), zap.Error(err))
			continue
		}
		all = append(all, articles...)
	}
	return all
}

func (r *RSS) download(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", retry.AsFatal(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return "", retry.AsFatal(fetcher.ErrBlocked)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// entryContent prefers full content blocks over summaries.
func entryContent(item *gofeed.Item) string {
	for _, candidate := range []string{item.Content, item.Description} {
		text := htmlToText(stripCDATA(candidate))
		if len([]rune(text)) > minContentRunes {
			return text
		}
	}
	return ""
}

// entryDesc extracts a usable plain-text description, rejecting the
// "click through" placeholder some feeds emit.
func entryDesc(item *gofeed.Item) string {
	for _, candidate := range []string{item.Description, item.Content} {
		text := htmlToText(stripCDATA(candidate))
		if strings.HasPrefix(text, descPlaceholder) {
			continue
		}
		if len([]rune(text)) > minDescRunes {
			return text
		}
	}
	return ""
}

func stripCDATA(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	return strings.ReplaceAll(s, "]]>", "")
}

func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
