package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// SummarySource records which fallback tier produced the final summary.
type SummarySource string

const (
	SummaryOriginal  SummarySource = "original"
	SummaryAI        SummarySource = "ai_generated"
	SummaryTruncated SummarySource = "content_truncated"
	SummaryFailed    SummarySource = "failed"
)

const (
	// MinDescLength is the shortest source-supplied description that
	// counts as a usable summary.
	MinDescLength = 10
	// MinContentLength is the shortest content worth summarizing.
	MinContentLength = 50
	// SummaryCap is the hard limit on the final summary length (runes).
	SummaryCap = 150
)

// millisThreshold separates epoch-second from epoch-millisecond values.
const millisThreshold = 9999999999

// FlexString decodes a JSON field that upstream APIs serve as either a
// string or a number (the hotspot "hot" field does both).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// EpochMillis holds an epoch timestamp that may arrive as a number, a
// numeric string, or an empty string. Zero means absent. The stored
// value keeps whatever magnitude upstream sent; Time() applies the
// seconds/milliseconds heuristic.
type EpochMillis int64

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable timestamps count as absent, not fatal.
		*e = 0
		return nil
	}
	*e = EpochMillis(v)
	return nil
}

// IsZero reports whether the timestamp is absent.
func (e EpochMillis) IsZero() bool { return e == 0 }

// Time converts the raw value to a time.Time, treating values above the
// magnitude threshold as milliseconds and the rest as seconds.
func (e EpochMillis) Time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	v := int64(e)
	if v > millisThreshold {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

// Article is the canonical normalized record flowing through the
// pipeline: produced by a source adapter, enriched in place by the
// orchestrator, then read-only for dedup and everything downstream.
type Article struct {
	Title         string        `json:"title"`
	URL           string        `json:"url"`
	Source        string        `json:"source"`
	Hot           FlexString    `json:"hot,omitempty"`
	Time          string        `json:"time,omitempty"`
	Timestamp     EpochMillis   `json:"timestamp,omitempty"`
	Published     string        `json:"published,omitempty"`
	ExtractedTime string        `json:"extracted_time,omitempty"`
	Desc          string        `json:"desc,omitempty"`
	Content       string        `json:"content,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	IsTech        bool          `json:"is_tech"`
	IsProcessed   bool          `json:"is_processed"`
	SummarySource SummarySource `json:"summary_source,omitempty"`
	SavedAt       string        `json:"saved_at,omitempty"`
}

// HasValidDesc reports whether the source-supplied description is
// substantial enough to stand in for a summary.
func (a *Article) HasValidDesc() bool {
	return len([]rune(strings.TrimSpace(a.Desc))) > MinDescLength
}

// HasContent reports whether the body is long enough to summarize.
func (a *Article) HasContent() bool {
	return len([]rune(strings.TrimSpace(a.Content))) > MinContentLength
}

// HasTimestamp reports whether any time representation is present.
func (a *Article) HasTimestamp() bool {
	return !a.Timestamp.IsZero() || a.Time != "" || a.ExtractedTime != ""
}

// IsTwitter reports whether the article came from a Twitter-style
// source, whose content is complete and never worth fetching.
func (a *Article) IsTwitter() bool {
	return strings.HasPrefix(a.Source, "Twitter")
}

// SetPublishTime stamps all redundant time representations from one
// resolved instant.
func (a *Article) SetPublishTime(t time.Time) {
	a.Timestamp = EpochMillis(t.UnixMilli())
	a.Time = t.Format("2006-01-02 15:04:05")
	a.Published = a.Time
}

// TruncateSummary enforces the cap invariant: never longer than limit
// runes, with an ellipsis marker when cut.
func TruncateSummary(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-3]) + "..."
}
