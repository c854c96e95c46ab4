package pipeline

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// clockSkew is how far into the future a timestamp may sit before the
// window filter treats it as wrong.
const clockSkew = time.Hour

// FilterRecent keeps articles whose publish time falls inside
// [windowStart, now]. Articles with no parseable time pass through
// untouched; dropping them would silently erase whole sources whose
// feeds omit dates.
func FilterRecent(articles []model.Article, windowStart, now time.Time, logger *zap.Logger) []model.Article {
	kept := make([]model.Article, 0, len(articles))
	dropped := 0
	for _, art := range articles {
		ts, ok := publishTime(art)
		if !ok {
			kept = append(kept, art)
			continue
		}

		// Some upstreams stamp items with a future year. When the
		// timestamp is both ahead of the clock and year-inflated,
		// rebasing the year salvages the item instead of losing it.
		if ts.After(now.Add(clockSkew)) && ts.Year() > now.Year() {
			rebased := time.Date(now.Year(), ts.Month(), ts.Day(),
				ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), ts.Location())
			logger.Debug("rebased future timestamp",
				zap.String("title", art.Title),
				zap.Time("original", ts),
				zap.Time("rebased", rebased))
			ts = rebased
			art.SetPublishTime(ts)
		}

		if ts.Before(windowStart) || ts.After(now) {
			dropped++
			continue
		}
		kept = append(kept, art)
	}
	logger.Info("filtered by time window",
		zap.Time("window_start", windowStart),
		zap.Int("kept", len(kept)),
		zap.Int("dropped", dropped))
	return kept
}

// Dedupe collapses articles with identical titles, keeping first-seen
// order. A later duplicate replaces the kept one only when it comes
// from a preferred source and the kept one does not; preferred feeds
// carry full content, so they win over board items of the same story.
func Dedupe(articles []model.Article, preferredSources []string, logger *zap.Logger) []model.Article {
	out := make([]model.Article, 0, len(articles))
	index := make(map[string]int, len(articles))

	for _, art := range articles {
		title := strings.TrimSpace(art.Title)
		if title == "" {
			out = append(out, art)
			continue
		}
		pos, seen := index[title]
		if !seen {
			index[title] = len(out)
			out = append(out, art)
			continue
		}
		if isPreferred(art.Source, preferredSources) && !isPreferred(out[pos].Source, preferredSources) {
			logger.Debug("replacing duplicate with preferred source",
				zap.String("title", title),
				zap.String("kept", art.Source),
				zap.String("dropped", out[pos].Source))
			out[pos] = art
		}
	}

	if removed := len(articles) - len(out); removed > 0 {
		logger.Info("deduplicated batch", zap.Int("removed", removed))
	}
	return out
}

func isPreferred(source string, preferred []string) bool {
	for _, p := range preferred {
		if strings.HasPrefix(source, p) {
			return true
		}
	}
	return false
}

// publishTime picks the best available publish time for an article:
// the epoch timestamp first, then the formatted string fields.
func publishTime(art model.Article) (time.Time, bool) {
	if !art.Timestamp.IsZero() {
		return art.Timestamp.Time(), true
	}
	for _, raw := range []string{art.Published, art.Time, art.ExtractedTime} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
