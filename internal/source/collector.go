package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// CollectOptions selects which upstreams a run draws from.
type CollectOptions struct {
	Boards     []string
	BoardLimit int
	Feeds      []Feed
	Cutoff     time.Time
	TweetDays  int
}

// Collector fans out across all source families and merges the result
// into one raw batch. Individual source failures are logged and
// skipped; an empty batch is the caller's problem to judge.
type Collector struct {
	hotspot *Hotspot
	rss     *RSS
	twitter *Twitter
	logger  *zap.Logger
}

// NewCollector wires the three adapters together. Any adapter may be
// nil to disable its family.
func NewCollector(hotspot *Hotspot, rss *RSS, twitter *Twitter, logger *zap.Logger) *Collector {
	return &Collector{hotspot: hotspot, rss: rss, twitter: twitter, logger: logger}
}

// Collect gathers the raw article batch for one run.
func (c *Collector) Collect(ctx context.Context, opts CollectOptions) []model.Article {
	var all []model.Article

	if c.hotspot != nil {
		for _, board := range opts.Boards {
			articles, err := c.hotspot.FetchBoard(ctx, board, opts.BoardLimit)
			if err != nil {
				c.logger.Warn("skipping board", zap.String("board", board), zap.Error(err))
				continue
			}
			all = append(all, articles...)
		}
	}

	if c.rss != nil && len(opts.Feeds) > 0 {
		all = append(all, c.rss.FetchAll(ctx, opts.Feeds, opts.Cutoff)...)
	}

	if c.twitter != nil && opts.TweetDays > 0 {
		all = append(all, c.twitter.FetchDays(ctx, time.Now(), opts.TweetDays)...)
	}

	c.logger.Info("collected raw batch", zap.Int("count", len(all)))
	return all
}
