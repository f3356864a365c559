// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/app"
	"github.com/agentberlin/outlinks/internal/store"
	"github.com/agentberlin/outlinks/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxSitemapUpload bounds pasted sitemap XML.
const maxSitemapUpload = 50 << 20

// Server represents the HTTP server
type Server struct {
	app      *app.App
	mux      *http.ServeMux
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs every request to l.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGatherer exposes g at /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithVersion sets the version reported by /api/v1/version.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a new HTTP server
func NewServer(a *app.App, opts ...Option) *Server {
	s := &Server{
		app:      a,
		mux:      http.NewServeMux(),
		logger:   zap.NewNop(),
		gatherer: prometheus.DefaultGatherer,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/version", s.handleGetVersion)
	s.mux.HandleFunc("/api/v1/system-health", s.handleSystemHealth)
	s.mux.HandleFunc("/api/v1/sites", s.handleSites)
	s.mux.HandleFunc("/api/v1/sites/", s.handleSitesWithID)
	s.mux.HandleFunc("/api/v1/crawl", s.handleStartCrawl)
	s.mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	s.mux.HandleFunc("/api/v1/posts/", s.handlePosts)
	s.mux.HandleFunc("/api/v1/errors", s.handleErrors)
	s.mux.HandleFunc("/api/v1/stats", s.handleStats)
	s.mux.HandleFunc("/api/v1/settings", s.handleSettings)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps application errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, app.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrAlreadyCrawling):
		status = http.StatusConflict
	case errors.Is(err, outlinks.ErrInvalidSettings):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// pathID splits the path after prefix and parses its first segment as an ID.
func pathID(r *http.Request, prefix string) (uint, []string, bool) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return 0, nil, false
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, nil, false
	}
	return uint(id), parts[1:], true
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetVersion returns the application version
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.CheckSystemHealth(r.Context()))
}

// handleSites handles GET /api/v1/sites
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sites, err := s.app.ListSites(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

// handleSitesWithID handles /api/v1/sites/{id}/*
func (s *Server) handleSitesWithID(w http.ResponseWriter, r *http.Request) {
	siteID, rest, ok := pathID(r, "/api/v1/sites/")
	if !ok {
		badRequest(w, "invalid site ID")
		return
	}
	ctx := r.Context()
	action := ""
	if len(rest) > 0 {
		action = rest[0]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		site, err := s.app.GetSite(ctx, siteID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, site)

	case action == "" && r.Method == http.MethodDelete:
		if err := s.app.DeleteSite(ctx, siteID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	// GET /api/v1/sites/{id}/posts?status=error&limit=100&offset=0
	case action == "posts" && r.Method == http.MethodGet:
		posts, err := s.app.ListPosts(ctx, siteID, r.URL.Query().Get("status"), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)

	case action == "runs" && r.Method == http.MethodGet:
		runs, err := s.app.CrawlRuns(ctx, siteID, queryInt(r, "limit", 20))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)

	case action == "sitemaps" && r.Method == http.MethodGet:
		refs, err := s.app.Sitemaps(ctx, siteID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, refs)

	// GET /api/v1/sites/{id}/targets?primary=true
	case action == "targets" && r.Method == http.MethodGet:
		targets, err := s.app.TopTargets(ctx, siteID, r.URL.Query().Get("primary") == "true", queryInt(r, "limit", 20))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, targets)

	case action == "retry" && r.Method == http.MethodPost:
		job, err := s.app.RetryFailed(ctx, siteID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)

	// POST /api/v1/sites/{id}/sitemap with raw sitemap XML as the body
	case action == "sitemap" && r.Method == http.MethodPost:
		site, err := s.app.GetSite(ctx, siteID)
		if err != nil {
			writeError(w, err)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSitemapUpload))
		if err != nil {
			badRequest(w, "failed to read body")
			return
		}
		job, err := s.app.ImportSitemap(ctx, site.URL, body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)

	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleStartCrawl handles POST /api/v1/crawl
func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req types.CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	job, err := s.app.StartCrawl(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrAlreadyCrawling) || errors.Is(err, outlinks.ErrInvalidSettings) {
			writeError(w, err)
			return
		}
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleJobs handles GET /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.ListJobs())
}

// handleJobsWithID handles /api/v1/jobs/{id} and /api/v1/jobs/{id}/stop
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		badRequest(w, "job ID required")
		return
	}
	jobID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		job, err := s.app.JobStatus(jobID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)

	case len(parts) == 2 && parts[1] == "stop" && r.Method == http.MethodPost:
		if err := s.app.StopCrawl(jobID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})

	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handlePosts handles GET /api/v1/posts/{id}/links
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	postID, rest, ok := pathID(r, "/api/v1/posts/")
	if !ok {
		badRequest(w, "invalid post ID")
		return
	}
	if len(rest) != 1 || rest[0] != "links" || r.Method != http.MethodGet {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	links, err := s.app.PostLinks(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// handleErrors handles GET /api/v1/errors?site=1&category=transient_fetch&resolved=true
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	errs, err := s.app.Errors(r.Context(), uint(queryInt(r, "site", 0)), q.Get("category"), q.Get("resolved") == "true", queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, errs)
}

// handleStats handles GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSettings handles GET and PUT /api/v1/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.Settings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		settings, err := s.app.Settings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if err := s.app.UpdateSettings(r.Context(), settings); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		methodNotAllowed(w)
	}
}
