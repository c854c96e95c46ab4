// Package source collects candidate articles from the three upstream
// families: hotspot board APIs, RSS feeds and the tweet archive. Every
// adapter normalizes into model.Article so the rest of the pipeline
// never sees upstream shapes.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// DefaultHotspotBase is the public aggregation API the boards live
// behind.
const DefaultHotspotBase = "https://api-hot.imsyy.top/"

// hotspotResponse is the board API envelope.
type hotspotResponse struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    []hotspotItem `json:"data"`
}

type hotspotItem struct {
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	MobileURL string            `json:"mobileUrl"`
	Hot       model.FlexString  `json:"hot"`
	Time      string            `json:"time"`
	Timestamp model.EpochMillis `json:"timestamp"`
	Desc      string            `json:"desc"`
}

// Hotspot reads trending boards from an imsyy/DailyHotApi style
// endpoint.
type Hotspot struct {
	base    string
	nameMap map[string]string
	client  *http.Client
	logger  *zap.Logger
}

// NewHotspot builds a board client. nameMap translates board IDs into
// display names and may be nil.
func NewHotspot(base string, nameMap map[string]string, logger *zap.Logger) *Hotspot {
	if base == "" {
		base = DefaultHotspotBase
	}
	return &Hotspot{
		base:    strings.TrimRight(base, "/") + "/",
		nameMap: nameMap,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// FetchBoard pulls one board. A non-200 envelope code is an error even
// when HTTP succeeds.
func (h *Hotspot) FetchBoard(ctx context.Context, board string, limit int) ([]model.Article, error) {
	u := h.base + url.PathEscape(board)
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch board %s: %w", board, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch board %s: %s", board, resp.Status)
	}

	var parsed hotspotResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode board %s: %w", board, err)
	}
	if parsed.Code != 200 {
		return nil, fmt.Errorf("board %s returned code %d: %s", board, parsed.Code, parsed.Message)
	}

	source := board
	if mapped, ok := h.nameMap[board]; ok {
		source = mapped
	}

	articles := make([]model.Article, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		link := item.URL
		if link == "" {
			link = item.MobileURL
		}
		if item.Title == "" || link == "" {
			continue
		}
		articles = append(articles, model.Article{
			Title:     item.Title,
			URL:       link,
			Source:    source,
			Hot:       item.Hot,
			Time:      item.Time,
			Timestamp: item.Timestamp,
			Desc:      item.Desc,
		})
	}
	h.logger.Info("fetched hotspot board",
		zap.String("board", board),
		zap.Int("count", len(articles)))
	return articles, nil
}

// HealthCheck probes one known board with a tiny limit so a dead API
// fails the run before any heavy work starts.
func (h *Hotspot) HealthCheck(ctx context.Context) error {
	_, err := h.FetchBoard(ctx, "sspai", 5)
	if err != nil {
		return fmt.Errorf("hotspot api health check: %w", err)
	}
	return nil
}
