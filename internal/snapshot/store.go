// Package snapshot persists each pipeline stage as a JSONL file so a
// run leaves an auditable trail and the HTTP view has something to
// serve between runs.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

// Stage names the pipeline checkpoints that get snapshotted.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageFiltered  Stage = "filtered"
	StageMerged    Stage = "merged"
	StageProcessed Stage = "processed"
)

const fileTimeLayout = "2006-01-02_15-04-05"

// Store writes and reads stage snapshots under one data directory,
// one subdirectory per stage.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore roots a store at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes one stage snapshot, stamping saved_at on every record.
// The write goes through a temp file and rename so readers never see a
// half-written snapshot.
func (s *Store) Save(stage Stage, articles []model.Article) (string, error) {
	dir := filepath.Join(s.dir, string(stage))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create stage dir: %w", err)
	}

	now := time.Now()
	path := filepath.Join(dir, "hotspots_"+now.Format(fileTimeLayout)+".jsonl")
	savedAt := now.Format(time.RFC3339)

	tmp, err := os.CreateTemp(dir, ".hotspots-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, art := range articles {
		art.SavedAt = savedAt
		if err := enc.Encode(art); err != nil {
			tmp.Close()
			return "", fmt.Errorf("encode snapshot record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("finalize snapshot: %w", err)
	}

	s.logger.Info("saved snapshot",
		zap.String("stage", string(stage)),
		zap.String("path", path),
		zap.Int("count", len(articles)))
	return path, nil
}

// LatestPath returns the newest snapshot file for a stage.
func (s *Store) LatestPath(stage Stage) (string, error) {
	dir := filepath.Join(s.dir, string(stage))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read stage dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s snapshots", stage)
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// Load reads one snapshot file. Malformed lines are skipped with a
// warning rather than failing the whole read.
func (s *Store) Load(path string) ([]model.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var articles []model.Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var art model.Article
		if err := json.Unmarshal([]byte(line), &art); err != nil {
			s.logger.Warn("skipping malformed snapshot line",
				zap.String("path", path), zap.Error(err))
			continue
		}
		articles = append(articles, art)
	}
	return articles, scanner.Err()
}

// Latest loads the newest snapshot for a stage.
func (s *Store) Latest(stage Stage) ([]model.Article, error) {
	path, err := s.LatestPath(stage)
	if err != nil {
		return nil, err
	}
	return s.Load(path)
}

// UpdateMerged rewrites the newest merged snapshot with the enriched
// records, matched by URL. Content is dropped on the way in: the merged
// file is the long-lived record and full page text does not belong in
// it. Unmatched lines keep their original form.
func (s *Store) UpdateMerged(processed []model.Article) error {
	path, err := s.LatestPath(StageMerged)
	if err != nil {
		return err
	}
	existing, err := s.Load(path)
	if err != nil {
		return err
	}

	byURL := make(map[string]model.Article, len(processed))
	for _, art := range processed {
		byURL[art.URL] = art
	}

	updated := 0
	for i, art := range existing {
		enriched, ok := byURL[art.URL]
		if !ok {
			continue
		}
		enriched.Content = ""
		enriched.SavedAt = art.SavedAt
		existing[i] = enriched
		updated++
	}

	if err := s.rewrite(path, existing); err != nil {
		return err
	}
	s.logger.Info("updated merged snapshot",
		zap.String("path", path), zap.Int("updated", updated))
	return nil
}

func (s *Store) rewrite(path string, articles []model.Article) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rewrite-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, art := range articles {
		if err := enc.Encode(art); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Cleanup deletes snapshot files older than maxAge across all stages.
func (s *Store) Cleanup(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, stage := range []Stage{StageRaw, StageFiltered, StageMerged, StageProcessed} {
		dir := filepath.Join(s.dir, string(stage))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.Info("cleaned old snapshots", zap.Int("removed", removed))
	}
	return nil
}
