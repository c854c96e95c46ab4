// Package server exposes a read-only HTTP view over the latest run:
// the processed batch, the rendered digest and an RSS feed. It serves
// whatever the snapshots hold; it never triggers pipeline work.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/feedgen"
	"github.com/VandeeFeng/wisecrawl/internal/snapshot"
)

// Server wraps the HTTP listener and its snapshot-backed handlers.
type Server struct {
	httpServer *http.Server
	store      *snapshot.Store
	dataDir    string
	feedOpts   feedgen.Options
	logger     *zap.Logger
}

// New builds the server on addr over the given snapshot store.
func New(addr string, store *snapshot.Store, dataDir string, feedOpts feedgen.Options, logger *zap.Logger) *Server {
	s := &Server{
		store:    store,
		dataDir:  dataDir,
		feedOpts: feedOpts,
		logger:   logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/articles", s.handleArticles).Methods(http.MethodGet)
	r.HandleFunc("/digest", s.handleDigest).Methods(http.MethodGet)
	r.HandleFunc("/rss.xml", s.handleRSS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.Latest(snapshot.StageProcessed)
	if err != nil {
		s.logger.Warn("no processed snapshot to serve", zap.Error(err))
		http.Error(w, "no processed batch available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(articles); err != nil {
		s.logger.Warn("encode articles response", zap.Error(err))
	}
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	path, err := latestDigestPath(s.dataDir)
	if err != nil {
		http.Error(w, "no digest available", http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "no digest available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.Latest(snapshot.StageProcessed)
	if err != nil {
		http.Error(w, "no processed batch available", http.StatusNotFound)
		return
	}
	xml, err := feedgen.Build(articles, s.feedOpts, time.Now())
	if err != nil {
		s.logger.Warn("render rss feed", zap.Error(err))
		http.Error(w, "feed rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(xml))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// latestDigestPath finds the newest rendered digest under the data
// dir's outputs folder.
func latestDigestPath(dataDir string) (string, error) {
	dir := filepath.Join(dataDir, "outputs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "digest_") && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", os.ErrNotExist
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
