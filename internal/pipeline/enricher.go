// Package pipeline orchestrates the per-run batch flow: enrich each
// article concurrently, then filter and deduplicate the result.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/fetcher"
	"github.com/VandeeFeng/wisecrawl/internal/model"
	"github.com/VandeeFeng/wisecrawl/internal/summarizer"
)

// DefaultWorkers bounds concurrent enrichment.
const DefaultWorkers = 5

// ContentFetcher is what the orchestrator needs from the fetcher.
type ContentFetcher interface {
	Fetch(ctx context.Context, url, existing string, htmlOnly bool) (text, rawHTML string, err error)
}

// SummaryProvider is what the orchestrator needs from the summarizer.
type SummaryProvider interface {
	Summarize(ctx context.Context, title, content string) (summarizer.Result, error)
}

// Enricher runs the fetch/resolve/summarize stage over a batch.
type Enricher struct {
	fetcher    ContentFetcher
	summarizer SummaryProvider
	logger     *zap.Logger
	workers    int
}

// NewEnricher builds the orchestrator. workers <= 0 selects the
// default pool size.
func NewEnricher(f ContentFetcher, s SummaryProvider, workers int, logger *zap.Logger) *Enricher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Enricher{fetcher: f, summarizer: s, logger: logger, workers: workers}
}

// Enrich processes every article through a bounded pool and returns the
// batch in its original order. Per-article failures degrade the item,
// never the batch.
func (e *Enricher) Enrich(ctx context.Context, articles []model.Article, techOnly bool) []model.Article {
	results := make([]model.Article, len(articles))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, art := range articles {
		wg.Add(1)
		go func(idx int, art model.Article) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = e.enrichOne(ctx, art)
		}(i, art)
	}
	wg.Wait()

	failed := 0
	for _, art := range results {
		if art.SummarySource == model.SummaryFailed {
			failed++
		}
	}
	e.logger.Info("enriched batch",
		zap.Int("total", len(results)),
		zap.Int("failed", failed))

	if techOnly {
		kept := results[:0]
		for _, art := range results {
			if art.IsTech {
				kept = append(kept, art)
			}
		}
		results = kept
		e.logger.Info("kept tech articles only", zap.Int("count", len(results)))
	}
	return results
}

func (e *Enricher) enrichOne(ctx context.Context, art model.Article) model.Article {
	needsContent := !art.HasValidDesc() && !art.HasContent()
	needsTime := !art.HasTimestamp()

	// Tweets arrive complete: full text, timestamp, source tag. A fetch
	// would only hit a login wall.
	if art.IsTwitter() {
		needsContent = false
		needsTime = false
	}

	if needsContent || needsTime {
		text, rawHTML, err := e.fetcher.Fetch(ctx, art.URL, art.Content, !needsContent)
		if err != nil {
			e.logger.Warn("enrichment fetch failed",
				zap.String("title", art.Title), zap.Error(err))
		}
		if needsContent && text != "" && text != art.Content {
			art.Content = text
		}
		if needsTime && rawHTML != "" {
			if t, ok := fetcher.ResolvePublishTime(rawHTML, art.URL); ok {
				art.ExtractedTime = t.Format(time.RFC3339)
				if art.Timestamp.IsZero() {
					art.SetPublishTime(t)
				}
			}
		}
	}

	e.applySummary(ctx, &art)
	art.IsProcessed = true
	return art
}

// failedSummaryPlaceholder keeps fully-failed items visible in the
// digest instead of silently dropping them.
const failedSummaryPlaceholder = "[摘要无法生成：无内容或来源信息不足]"

// applySummary walks the provenance chain: the source description
// first, then model output, then truncated content, then a placeholder.
// Only desc-backed items default to tech; items the model never
// classified stay non-tech, so a tech-only run drops them.
func (e *Enricher) applySummary(ctx context.Context, art *model.Article) {
	if art.HasValidDesc() {
		art.Summary = model.TruncateSummary(art.Desc, model.SummaryCap)
		art.SummarySource = model.SummaryOriginal
		art.IsTech = true
		return
	}

	result, err := e.summarizer.Summarize(ctx, art.Title, art.Content)
	if err == nil {
		art.Summary = model.TruncateSummary(result.Summary, model.SummaryCap)
		art.IsTech = result.IsTech
		art.SummarySource = model.SummaryAI
		return
	}
	if !errors.Is(err, summarizer.ErrContentTooShort) {
		e.logger.Warn("summary generation failed",
			zap.String("title", art.Title), zap.Error(err))
	}

	if art.Content != "" {
		art.Summary = model.TruncateSummary(art.Content, model.SummaryCap)
		art.SummarySource = model.SummaryTruncated
		return
	}
	art.Summary = failedSummaryPlaceholder
	art.SummarySource = model.SummaryFailed
}
