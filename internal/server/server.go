// Package server exposes headlines, search and saved articles as a small
// local JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/newsapi"
	"github.com/matheuskafuri/newsdesk/internal/pager"
)

// Store is the saved-articles side of the cache.
type Store interface {
	SaveArticle(a cache.Article) error
	DeleteArticle(url string) (cache.Article, error)
	SavedArticles(opts cache.QueryOpts) ([]cache.Article, error)
}

type Server struct {
	src      pager.Source
	store    Store
	logger   *slog.Logger
	country  string
	category string
}

func New(src pager.Source, store Store, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		src:      src,
		store:    store,
		logger:   logger,
		country:  cfg.Country,
		category: cfg.Category,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/headlines", s.headlines)
		r.Get("/search", s.search)
		r.Get("/saved", s.listSaved)
		r.Put("/saved", s.putSaved)
		r.Delete("/saved", s.deleteSaved)
	})
	return r
}

// ListenAndServe runs until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type pageResponse struct {
	Page         int             `json:"page"`
	TotalResults int             `json:"total_results"`
	Stale        bool            `json:"stale,omitempty"`
	Articles     []cache.Article `json:"articles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) headlines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	country := strings.ToLower(q.Get("country"))
	if country == "" {
		country = s.country
	}
	category := strings.ToLower(q.Get("category"))
	if category == "" {
		category = s.category
	}
	if !config.ValidCountry(country) {
		s.writeError(w, http.StatusBadRequest, "unsupported country "+strconv.Quote(country))
		return
	}
	if !config.ValidCategory(category) {
		s.writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(category))
		return
	}
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}

	p, err := s.src.TopHeadlines(r.Context(), country, category, page)
	if err != nil {
		s.writeSourceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPageResponse(page, p))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, pager.ErrEmptyQuery.Error())
		return
	}
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}

	p, err := s.src.Search(r.Context(), query, page)
	if err != nil {
		s.writeSourceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPageResponse(page, p))
}

func (s *Server) listSaved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	articles, err := s.store.SavedArticles(cache.QueryOpts{
		Search: q.Get("q"),
		Source: q.Get("source"),
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("listing saved articles", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not read saved articles")
		return
	}
	if articles == nil {
		articles = []cache.Article{}
	}
	s.writeJSON(w, http.StatusOK, articles)
}

func (s *Server) putSaved(w http.ResponseWriter, r *http.Request) {
	var a cache.Article
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&a); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid article: "+err.Error())
		return
	}
	if err := s.store.SaveArticle(a); err != nil {
		if errors.Is(err, cache.ErrNoURL) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("saving article", "url", a.URL, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not save article")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSaved(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	a, err := s.store.DeleteArticle(url)
	if errors.Is(err, cache.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("deleting article", "url", url, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not delete article")
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		s.writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return 0, false
	}
	return page, true
}

func newPageResponse(page int, p *cache.Page) pageResponse {
	articles := p.Articles
	if articles == nil {
		articles = []cache.Article{}
	}
	return pageResponse{Page: page, TotalResults: p.TotalResults, Stale: p.Stale, Articles: articles}
}

func (s *Server) writeSourceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *newsapi.APIError
	switch {
	case errors.Is(err, newsapi.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		status = http.StatusTooManyRequests
	}
	s.logger.Warn("source request failed", "error", err)
	s.writeError(w, status, pager.Message(err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}
