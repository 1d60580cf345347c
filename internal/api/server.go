package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/engine"
	"github.com/IshaanNene/NewsHarvest/internal/schedule"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Crawler is the set of engine operations the API exposes.
type Crawler interface {
	CrawlSingle(ctx context.Context, initiator, rawURL string) (*types.Article, error)
	CrawlIndex(ctx context.Context, initiator, indexURL string) (*engine.BatchOutcome, error)
	CrawlKeyword(ctx context.Context, initiator, keyword, indexURL string) (*engine.BatchOutcome, error)
	Trigger(ctx context.Context, initiator string, mode engine.Mode) (*engine.BatchOutcome, error)
	FindArticle(ctx context.Context, rawURL string) (*types.Article, error)
	BatchArticles(ctx context.Context, batchID string) ([]*types.Article, error)
	Stats() *engine.Stats
}

// HistoryService lists and deletes history entries on behalf of their owner.
type HistoryService interface {
	List(ctx context.Context, initiatorID string) ([]*types.HistoryEntry, error)
	Get(ctx context.Context, initiatorID, id string) (*types.HistoryEntry, error)
	Delete(ctx context.Context, initiatorID, id string) error
}

// StatusReporter reports the scheduler state.
type StatusReporter interface {
	Status() schedule.Status
}

// Server provides the REST API for crawl operations.
type Server struct {
	mux     *http.ServeMux
	port    int
	crawler Crawler
	history HistoryService
	sched   StatusReporter
	auth    Authenticator
	http    *http.Server
	logger  *slog.Logger
}

// NewServer creates a new API server. sched may be nil when scheduling is
// not running in this process.
func NewServer(port int, crawler Crawler, history HistoryService, sched StatusReporter, auth Authenticator, logger *slog.Logger) *Server {
	if auth == nil {
		auth = HeaderAuthenticator{}
	}
	s := &Server{
		mux:     http.NewServeMux(),
		port:    port,
		crawler: crawler,
		history: history,
		sched:   sched,
		auth:    auth,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the API server in the background.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", s.http.Addr)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("API server shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Crawling
	s.mux.HandleFunc("POST /api/crawl/single", s.authed(s.handleCrawlSingle))
	s.mux.HandleFunc("POST /api/crawl/from-index", s.authed(s.handleCrawlIndex))
	s.mux.HandleFunc("POST /api/crawl/by-keyword", s.authed(s.handleCrawlKeyword))

	// Scheduling
	s.mux.HandleFunc("POST /api/scheduled/trigger", s.authed(s.handleTrigger))
	s.mux.HandleFunc("GET /api/scheduled/status", s.authed(s.handleScheduleStatus))

	// History
	s.mux.HandleFunc("GET /api/history", s.authed(s.handleListHistory))
	s.mux.HandleFunc("DELETE /api/history/{id}", s.authed(s.handleDeleteHistory))
	s.mux.HandleFunc("GET /api/history/{id}/news", s.authed(s.handleHistoryNews))

	// Articles
	s.mux.HandleFunc("GET /api/news", s.authed(s.handleFindNews))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, initiator string)

// authed resolves the caller identity before running h.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initiator, err := s.auth.Authenticate(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, err)
			return
		}
		h(w, r, initiator)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

type crawlRequest struct {
	URL     string `json:"url"`
	Keyword string `json:"keyword"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*crawlRequest, bool) {
	var body crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}
	return &body, true
}

func (s *Server) handleCrawlSingle(w http.ResponseWriter, r *http.Request, initiator string) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	article, err := s.crawler.CrawlSingle(r.Context(), initiator, body.URL)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, article)
}

func (s *Server) handleCrawlIndex(w http.ResponseWriter, r *http.Request, initiator string) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	outcome, err := s.crawler.CrawlIndex(r.Context(), initiator, body.URL)
	s.batchResponse(w, outcome, err)
}

func (s *Server) handleCrawlKeyword(w http.ResponseWriter, r *http.Request, initiator string) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	outcome, err := s.crawler.CrawlKeyword(r.Context(), initiator, body.Keyword, body.URL)
	s.batchResponse(w, outcome, err)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request, initiator string) {
	outcome, err := s.crawler.Trigger(r.Context(), initiator, engine.ModeManual)
	s.batchResponse(w, outcome, err)
}

func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request, _ string) {
	resp := map[string]any{
		"stats": s.crawler.Stats().Snapshot(),
	}
	if s.sched != nil {
		resp["schedule"] = s.sched.Status()
	} else {
		resp["schedule"] = schedule.Status{Enabled: false}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request, initiator string) {
	entries, err := s.history.List(r.Context(), initiator)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	if entries == nil {
		entries = []*types.HistoryEntry{}
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request, initiator string) {
	id := r.PathValue("id")
	if err := s.history.Delete(r.Context(), initiator, id); err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) handleHistoryNews(w http.ResponseWriter, r *http.Request, initiator string) {
	entry, err := s.history.Get(r.Context(), initiator, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	articles, err := s.crawler.BatchArticles(r.Context(), entry.ID)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	if articles == nil {
		articles = []*types.Article{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"history":  entry,
		"articles": articles,
	})
}

func (s *Server) handleFindNews(w http.ResponseWriter, r *http.Request, _ string) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	article, err := s.crawler.FindArticle(r.Context(), raw)
	if errors.Is(err, types.ErrNotFound) {
		// Clients sometimes encode the URL twice.
		if decoded, derr := url.QueryUnescape(raw); derr == nil && decoded != raw {
			article, err = s.crawler.FindArticle(r.Context(), decoded)
		}
	}
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, article)
}

type failureView struct {
	URL   string `json:"url"`
	Class string `json:"class"`
	Error string `json:"error"`
}

func (s *Server) batchResponse(w http.ResponseWriter, outcome *engine.BatchOutcome, err error) {
	if err != nil {
		resp := map[string]any{"error": err.Error()}
		if class := types.ClassOf(err); class != "" {
			resp["class"] = class
		}
		if outcome != nil && outcome.History != nil {
			resp["historyId"] = outcome.History.ID
		}
		s.jsonResponse(w, statusFor(err), resp)
		return
	}

	failures := make([]failureView, 0, len(outcome.Result.Failed))
	for _, f := range outcome.Result.Failed {
		failures = append(failures, failureView{
			URL:   f.URL,
			Class: string(types.ClassOf(f.Err)),
			Error: f.Err.Error(),
		})
	}

	resp := map[string]any{
		"crawledCount": outcome.Summary.Count,
		"failedCount":  outcome.Summary.FailedCount,
		"entryUrl":     outcome.EntryURL,
		"titles":       outcome.Summary.SampleTitles,
		"sampleUrls":   outcome.Summary.SampleURLs,
		"failures":     failures,
	}
	if outcome.Keyword != "" {
		resp["keyword"] = outcome.Keyword
	}
	if outcome.History != nil {
		resp["historyId"] = outcome.History.ID
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch types.ClassOf(err) {
	case types.ClassInvalidURL:
		return http.StatusBadRequest
	case types.ClassNetwork:
		return http.StatusBadGateway
	case types.ClassExtraction:
		return http.StatusUnprocessableEntity
	case types.ClassCancelled:
		return http.StatusGatewayTimeout
	case types.ClassStorage:
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, types.ErrInvalidURL), errors.Is(err, types.ErrEmptyKeyword):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	resp := map[string]string{"error": err.Error()}
	if class := types.ClassOf(err); class != "" {
		resp["class"] = string(class)
	}
	s.jsonResponse(w, status, resp)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
