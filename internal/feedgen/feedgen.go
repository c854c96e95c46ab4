// Package feedgen renders the processed batch as an RSS 2.0 feed so
// the day's output can be consumed by ordinary feed readers.
package feedgen

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// Options describe the feed envelope.
type Options struct {
	Title       string
	Link        string
	Description string
}

// Build renders the articles as RSS 2.0 XML. Articles without any
// resolvable publish time fall back to now so readers still sort them
// into today.
func Build(articles []model.Article, opts Options, now time.Time) (string, error) {
	if opts.Title == "" {
		opts.Title = "每日热点"
	}
	if opts.Description == "" {
		opts.Description = "聚合去重后的每日热点新闻"
	}

	feed := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: opts.Link},
		Description: opts.Description,
		Created:     now,
	}

	for _, art := range articles {
		desc := art.Summary
		if desc == "" {
			desc = art.Desc
		}
		item := &feeds.Item{
			Title:       art.Title,
			Link:        &feeds.Link{Href: art.URL},
			Description: desc,
			Author:      &feeds.Author{Name: art.Source},
			Id:          art.URL,
			Created:     itemTime(art, now),
		}
		feed.Items = append(feed.Items, item)
	}

	xml, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("render rss: %w", err)
	}
	return xml, nil
}

func itemTime(art model.Article, fallback time.Time) time.Time {
	if !art.Timestamp.IsZero() {
		return art.Timestamp.Time()
	}
	for _, raw := range []string{art.Published, art.Time} {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.Local); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.RFC3339, art.ExtractedTime); err == nil {
		return t
	}
	return fallback
}
