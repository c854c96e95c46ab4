package fetcher

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/VandeeFeng/wisecrawl/internal/cascade"
)

// Meta tag names and properties that commonly carry the publish time,
// in decreasing order of trustworthiness.
var publishMetaKeys = []string{
	"article:published_time",
	"og:published_time",
	"publishdate",
	"pubdate",
	"publish_date",
	"published_time",
	"datePublished",
	"date",
}

var urlDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})(?:/|$)`),
	regexp.MustCompile(`/(\d{4})-(\d{1,2})-(\d{1,2})(?:/|$)`),
	regexp.MustCompile(`[_./-](\d{4})(\d{2})(\d{2})[_./-]`),
}

var textDatePattern = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

// ResolvePublishTime works through a cascade of page signals and
// returns the first plausible publish time. The boolean reports whether
// any strategy produced one.
func ResolvePublishTime(html, pageURL string) (time.Time, bool) {
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))

	strategies := []cascade.Strategy[time.Time]{
		func() (time.Time, bool) {
			if docErr != nil {
				return time.Time{}, false
			}
			return metaTime(doc)
		},
		func() (time.Time, bool) {
			if docErr != nil {
				return time.Time{}, false
			}
			return timeTagTime(doc)
		},
		func() (time.Time, bool) {
			if docErr != nil {
				return time.Time{}, false
			}
			return jsonLDTime(doc)
		},
		func() (time.Time, bool) { return urlTime(pageURL) },
		func() (time.Time, bool) { return textTime(html) },
	}
	return cascade.First(strategies, plausible)
}

func plausible(t time.Time) bool {
	return t.Year() >= 2000 && !t.After(time.Now().AddDate(1, 0, 0))
}

func metaTime(doc *goquery.Document) (time.Time, bool) {
	for _, key := range publishMetaKeys {
		found := time.Time{}
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			name := firstAttr(s, "property", "name", "itemprop")
			if !strings.EqualFold(name, key) {
				return true
			}
			content, _ := s.Attr("content")
			if t, err := dateparse.ParseAny(content); err == nil {
				found = t
				return false
			}
			return true
		})
		if !found.IsZero() {
			return found, true
		}
	}
	return time.Time{}, false
}

func timeTagTime(doc *goquery.Document) (time.Time, bool) {
	found := time.Time{}
	doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		dt, _ := s.Attr("datetime")
		if t, err := dateparse.ParseAny(dt); err == nil {
			found = t
			return false
		}
		return true
	})
	return found, !found.IsZero()
}

func jsonLDTime(doc *goquery.Document) (time.Time, bool) {
	found := time.Time{}
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if t, ok := datePublishedIn(payload); ok {
			found = t
			return false
		}
		return true
	})
	return found, !found.IsZero()
}

// datePublishedIn digs through a JSON-LD value, including @graph nodes
// and top-level arrays, for a parseable datePublished.
func datePublishedIn(v any) (time.Time, bool) {
	switch node := v.(type) {
	case map[string]any:
		if raw, ok := node["datePublished"].(string); ok {
			if t, err := dateparse.ParseAny(raw); err == nil {
				return t, true
			}
		}
		if graph, ok := node["@graph"]; ok {
			return datePublishedIn(graph)
		}
	case []any:
		for _, item := range node {
			if t, ok := datePublishedIn(item); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func urlTime(pageURL string) (time.Time, bool) {
	for _, re := range urlDatePatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			if t, ok := dateFromParts(m[1], m[2], m[3]); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func textTime(html string) (time.Time, bool) {
	for _, m := range textDatePattern.FindAllStringSubmatch(html, 10) {
		if t, ok := dateFromParts(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateFromParts(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.Local), true
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && v != "" {
			return v
		}
	}
	return ""
}
