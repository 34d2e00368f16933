package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"thiraistream/scraperservice/internal/domain"
	"thiraistream/scraperservice/internal/lang"
	"thiraistream/scraperservice/internal/title"
)

var (
	ErrInvalidLanguage  = errors.New("invalid language")
	ErrEmptyQuery       = errors.New("query is required")
	ErrMissingPageURL   = errors.New("movie page url is required")
	ErrVideoUnavailable = errors.New("failed to extract video url from the page")
)

// unknownTitle is returned to watch callers when no usable title survives
// extraction and code detection.
const unknownTitle = "Unknown"

// Provider is the upstream scraping dependency.
type Provider interface {
	BrowseURL(code string, category domain.Category, page int) string
	SearchURL(code, query string) string
	FetchListing(ctx context.Context, url string) ([]domain.MovieRecord, bool)
	PageTitle(ctx context.Context, pageURL string) (string, bool)
	VideoURL(ctx context.Context, pageURL string) (string, bool)
}

// Resolver maps free-form language input onto the supported set.
type Resolver interface {
	Resolve(input string) (lang.Language, bool)
}

// Service exposes the catalog operations: browse by language, search by
// title, resolve a detail page to a playable link. Listing results are
// cached per upstream URL with a bounded TTL cache, and the hottest expired
// listings are re-fetched by a background warmer.
type Service struct {
	provider Provider
	resolver Resolver
	logger   *slog.Logger
	cfg      warmerConfig

	cacheDisabled bool

	// listing cache and popularity state; see cache.go.
	cache cacheState
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithListingCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.cfg.listingTTL = ttl
		}
	}
}

func WithListingCacheMaxEntries(maxEntries int) ServiceOption {
	return func(s *Service) {
		if maxEntries > 0 {
			s.cfg.listingMaxEntries = maxEntries
		}
	}
}

func WithWarmInterval(interval time.Duration) ServiceOption {
	return func(s *Service) {
		if interval > 0 {
			s.cfg.warmInterval = interval
		}
	}
}

func WithWarmTopListings(count int) ServiceOption {
	return func(s *Service) {
		if count > 0 {
			s.cfg.warmTopListings = count
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func NewService(provider Provider, resolver Resolver, options ...ServiceOption) *Service {
	service := &Service{
		provider: provider,
		resolver: resolver,
		logger:   slog.Default(),
		cfg:      defaultWarmerConfig(),
		cache: cacheState{
			listings: make(map[string]*cachedListing),
			popular:  make(map[string]*popularListing),
		},
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service
}

// StartBackground launches the listing warmer; it stops when ctx is done.
func (s *Service) StartBackground(ctx context.Context) {
	if s.cacheDisabled {
		return
	}
	go s.runWarmer(ctx)
}

// Browse returns one listing page for a language and category. Page numbers
// below 1 are clamped; unknown categories fall back to "recent".
func (s *Service) Browse(ctx context.Context, languageInput, category string, page int) (domain.BrowseResponse, error) {
	resolved, ok := s.resolver.Resolve(languageInput)
	if !ok {
		return domain.BrowseResponse{}, ErrInvalidLanguage
	}
	if page < 1 {
		page = 1
	}
	normalized := domain.NormalizeCategory(category)

	listingURL := s.provider.BrowseURL(resolved.Code, normalized, page)
	movies := s.listing(ctx, listingURL)

	return domain.BrowseResponse{
		Language: resolved.Name,
		Category: normalized,
		Page:     page,
		Movies:   movies,
		NextPage: page + 1,
		HasMore:  len(movies) > 0,
	}, nil
}

// Search returns listing records matching a free-text query in a language.
func (s *Service) Search(ctx context.Context, languageInput, query string) (domain.SearchResponse, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.SearchResponse{}, ErrEmptyQuery
	}
	resolved, ok := s.resolver.Resolve(languageInput)
	if !ok {
		return domain.SearchResponse{}, ErrInvalidLanguage
	}

	listingURL := s.provider.SearchURL(resolved.Code, trimmed)
	movies := s.listing(ctx, listingURL)

	return domain.SearchResponse{
		Language: resolved.Name,
		Query:    trimmed,
		Movies:   movies,
	}, nil
}

// Watch resolves a detail page to a playable CDN URL plus a display title.
// The title hint, when present, skips page extraction; a hint or extracted
// title that looks like a placeholder code degrades to "Unknown". A missing
// video URL is an error: no partial result is returned.
func (s *Service) Watch(ctx context.Context, pageURL, titleHint string) (domain.WatchResponse, error) {
	trimmedURL := strings.TrimSpace(pageURL)
	if trimmedURL == "" {
		return domain.WatchResponse{}, ErrMissingPageURL
	}

	display := strings.TrimSpace(titleHint)
	if display == "" {
		if extracted, ok := s.provider.PageTitle(ctx, trimmedURL); ok {
			display = extracted
		}
	}
	if display == "" || title.LooksLikeCode(display) {
		display = unknownTitle
	}

	videoURL, ok := s.provider.VideoURL(ctx, trimmedURL)
	if !ok {
		return domain.WatchResponse{}, ErrVideoUnavailable
	}

	return domain.WatchResponse{Title: display, VideoURL: videoURL}, nil
}

// listing serves one upstream listing URL through the results cache. Fetch
// failures degrade to an empty result and are not cached, so the next
// request retries upstream.
func (s *Service) listing(ctx context.Context, listingURL string) []domain.MovieRecord {
	if s.cacheDisabled {
		movies, _ := s.provider.FetchListing(ctx, listingURL)
		return emptyIfNil(movies)
	}

	now := time.Now()
	if cached, ok := s.listingLookup(listingURL, now); ok {
		s.markPopular(listingURL, now)
		return cached
	}

	movies, ok := s.provider.FetchListing(ctx, listingURL)
	if !ok {
		s.logger.Warn("listing fetch failed", slog.String("url", listingURL))
		return []domain.MovieRecord{}
	}
	movies = emptyIfNil(movies)
	s.listingStore(listingURL, movies, time.Now())
	s.markPopular(listingURL, now)
	return movies
}

func emptyIfNil(movies []domain.MovieRecord) []domain.MovieRecord {
	if movies == nil {
		return []domain.MovieRecord{}
	}
	return movies
}
