package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"thiraistream/scraperservice/internal/catalog"
	"thiraistream/scraperservice/internal/domain"
)

const maxQueryLength = 200

// CatalogService is the core the routing layer calls into.
type CatalogService interface {
	Browse(ctx context.Context, languageInput, category string, page int) (domain.BrowseResponse, error)
	Search(ctx context.Context, languageInput, query string) (domain.SearchResponse, error)
	Watch(ctx context.Context, pageURL, titleHint string) (domain.WatchResponse, error)
}

type Server struct {
	catalog CatalogService
	logger  *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(catalogService CatalogService, options ...ServerOption) *Server {
	server := &Server{
		catalog: catalogService,
		logger:  slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/language/", s.handleBrowse)
	mux.HandleFunc("/search/", s.handleSearch)
	mux.HandleFunc("/watch", s.handleWatch)
	mux.HandleFunc("/", s.handleRoot)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "movie-scraper",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	return recoveryMiddleware(s.logger, corsMiddleware(rateLimitMiddleware(50, 100, metricsMiddleware(traced))))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "thirai-api",
		"endpoints": []string{
			"/language/{language}?category=popular|recent&page=1",
			"/search/{language}?q=QUERY",
			"/watch?url={encoded_movie_page_url}",
			"/healthz",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	languageInput := pathTail(r.URL.Path, "/language/")
	if languageInput == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "language is required")
		return
	}

	category := r.URL.Query().Get("category")
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	response, err := s.catalog.Browse(r.Context(), languageInput, category, page)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	languageInput := pathTail(r.URL.Path, "/search/")
	if languageInput == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "language is required")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter 'q' is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 200 characters)")
		return
	}

	response, err := s.catalog.Search(r.Context(), languageInput, query)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/watch" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	pageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "movie url is required")
		return
	}
	titleHint := strings.TrimSpace(r.URL.Query().Get("title"))

	response, err := s.catalog.Watch(r.Context(), pageURL, titleHint)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidLanguage),
		errors.Is(err, catalog.ErrEmptyQuery),
		errors.Is(err, catalog.ErrMissingPageURL):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, catalog.ErrVideoUnavailable):
		s.logger.Warn("video extraction failed",
			slog.String("path", r.URL.Path),
			slog.String("url", truncate(r.URL.Query().Get("url"), 120)),
		)
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		s.logger.Error("catalog request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "request failed")
	}
}

// pathTail returns the single path element after the prefix, or "" when the
// remainder is empty or nested.
func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	tail = strings.TrimSuffix(tail, "/")
	if tail == "" || strings.Contains(tail, "/") {
		return ""
	}
	return strings.TrimSpace(tail)
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
