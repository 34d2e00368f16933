package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"thiraistream/scraperservice/internal/domain"
	"thiraistream/scraperservice/internal/lang"
)

type stubProvider struct {
	listings     map[string][]domain.MovieRecord
	listingCalls map[string]int
	pageTitle    string
	pageTitleOK  bool
	videoURL     string
	videoOK      bool
}

func (p *stubProvider) BrowseURL(code string, category domain.Category, page int) string {
	return fmt.Sprintf("browse:%s:%s:%d", code, category, page)
}

func (p *stubProvider) SearchURL(code, query string) string {
	return fmt.Sprintf("search:%s:%s", code, query)
}

func (p *stubProvider) FetchListing(_ context.Context, url string) ([]domain.MovieRecord, bool) {
	if p.listingCalls == nil {
		p.listingCalls = make(map[string]int)
	}
	p.listingCalls[url]++
	movies, ok := p.listings[url]
	return movies, ok
}

func (p *stubProvider) PageTitle(_ context.Context, _ string) (string, bool) {
	return p.pageTitle, p.pageTitleOK
}

func (p *stubProvider) VideoURL(_ context.Context, _ string) (string, bool) {
	return p.videoURL, p.videoOK
}

type stubResolver struct{}

func (stubResolver) Resolve(input string) (lang.Language, bool) {
	if input == "tamill" || input == "tamil" {
		return lang.Language{Name: "tamil", Code: "tamil", Display: "Tamil"}, true
	}
	return lang.Language{}, false
}

func sampleMovies() []domain.MovieRecord {
	return []domain.MovieRecord{
		{Title: "Vikram", ImgURL: "https://img.example/v.jpg", PageURL: "https://einthusan.tv/movie/watch/v/"},
	}
}

func TestBrowse(t *testing.T) {
	provider := &stubProvider{listings: map[string][]domain.MovieRecord{
		"browse:tamil:recent:1": sampleMovies(),
	}}
	service := NewService(provider, stubResolver{})

	response, err := service.Browse(context.Background(), "tamill", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Language != "tamil" {
		t.Fatalf("unexpected language: %q", response.Language)
	}
	if response.Category != domain.CategoryRecent {
		t.Fatalf("unexpected category: %q", response.Category)
	}
	if response.Page != 1 || response.NextPage != 2 {
		t.Fatalf("unexpected paging: page=%d next=%d", response.Page, response.NextPage)
	}
	if !response.HasMore || len(response.Movies) != 1 {
		t.Fatalf("unexpected movies: %+v", response.Movies)
	}
}

func TestBrowseInvalidLanguage(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{})
	if _, err := service.Browse(context.Background(), "klingon", "recent", 1); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestBrowseEmptyListing(t *testing.T) {
	provider := &stubProvider{listings: map[string][]domain.MovieRecord{
		"browse:tamil:popular:9": {},
	}}
	service := NewService(provider, stubResolver{})

	response, err := service.Browse(context.Background(), "tamil", "popular", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.HasMore {
		t.Fatal("expected has_more=false for empty listing")
	}
	if response.Movies == nil {
		t.Fatal("movies must be an empty slice, not nil")
	}
}

func TestBrowseCachesListing(t *testing.T) {
	provider := &stubProvider{listings: map[string][]domain.MovieRecord{
		"browse:tamil:recent:1": sampleMovies(),
	}}
	service := NewService(provider, stubResolver{})

	for i := 0; i < 3; i++ {
		if _, err := service.Browse(context.Background(), "tamil", "recent", 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls := provider.listingCalls["browse:tamil:recent:1"]; calls != 1 {
		t.Fatalf("expected 1 upstream listing fetch, got %d", calls)
	}
}

func TestBrowseFetchFailureNotCached(t *testing.T) {
	provider := &stubProvider{}
	service := NewService(provider, stubResolver{})

	response, err := service.Browse(context.Background(), "tamil", "recent", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.HasMore || len(response.Movies) != 0 {
		t.Fatalf("expected empty degraded response, got %+v", response)
	}

	// The failure must not be cached: the next browse retries upstream.
	if _, err := service.Browse(context.Background(), "tamil", "recent", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := provider.listingCalls["browse:tamil:recent:1"]; calls != 2 {
		t.Fatalf("expected 2 upstream attempts, got %d", calls)
	}
}

func TestSearch(t *testing.T) {
	provider := &stubProvider{listings: map[string][]domain.MovieRecord{
		"search:tamil:vikram": sampleMovies(),
	}}
	service := NewService(provider, stubResolver{})

	response, err := service.Search(context.Background(), "tamil", "  vikram  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Query != "vikram" {
		t.Fatalf("query not trimmed: %q", response.Query)
	}
	if len(response.Movies) != 1 {
		t.Fatalf("unexpected movies: %+v", response.Movies)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{})
	if _, err := service.Search(context.Background(), "tamil", "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchInvalidLanguage(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{})
	if _, err := service.Search(context.Background(), "klingon", "vikram"); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestWatch(t *testing.T) {
	provider := &stubProvider{
		pageTitle:   "Vikram",
		pageTitleOK: true,
		videoURL:    "https://cdn1.einthusan.io/etv/v.mp4",
		videoOK:     true,
	}
	service := NewService(provider, stubResolver{})

	response, err := service.Watch(context.Background(), "https://einthusan.tv/movie/watch/v/", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Title != "Vikram" || response.VideoURL != "https://cdn1.einthusan.io/etv/v.mp4" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestWatchTitleHint(t *testing.T) {
	provider := &stubProvider{videoURL: "https://cdn1.einthusan.io/etv/v.mp4", videoOK: true}
	service := NewService(provider, stubResolver{})

	response, err := service.Watch(context.Background(), "https://einthusan.tv/movie/watch/v/", "Super Deluxe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Title != "Super Deluxe" {
		t.Fatalf("hint ignored: %q", response.Title)
	}
}

func TestWatchUnknownTitle(t *testing.T) {
	provider := &stubProvider{videoURL: "https://cdn1.einthusan.io/etv/v.mp4", videoOK: true}
	service := NewService(provider, stubResolver{})

	// No hint and no extractable title.
	response, err := service.Watch(context.Background(), "https://einthusan.tv/movie/watch/v/", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Title != "Unknown" {
		t.Fatalf("expected Unknown sentinel, got %q", response.Title)
	}

	// A code-like hint degrades the same way.
	response, err = service.Watch(context.Background(), "https://einthusan.tv/movie/watch/v/", "53BA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Title != "Unknown" {
		t.Fatalf("expected Unknown sentinel for code hint, got %q", response.Title)
	}
}

func TestWatchMissingURL(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{})
	if _, err := service.Watch(context.Background(), "  ", ""); !errors.Is(err, ErrMissingPageURL) {
		t.Fatalf("expected ErrMissingPageURL, got %v", err)
	}
}

func TestWatchVideoUnavailable(t *testing.T) {
	provider := &stubProvider{pageTitle: "Vikram", pageTitleOK: true}
	service := NewService(provider, stubResolver{})
	if _, err := service.Watch(context.Background(), "https://einthusan.tv/movie/watch/v/", ""); !errors.Is(err, ErrVideoUnavailable) {
		t.Fatalf("expected ErrVideoUnavailable, got %v", err)
	}
}

func TestListingCacheTTLBoundary(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{}, WithListingCacheTTL(time.Hour))
	inserted := time.Now()
	service.listingStore("u", sampleMovies(), inserted)

	if _, ok := service.listingLookup("u", inserted.Add(time.Hour-time.Second)); !ok {
		t.Fatal("expected hit just before expiry")
	}
	if _, ok := service.listingLookup("u", inserted.Add(time.Hour+time.Second)); ok {
		t.Fatal("expected miss just after expiry")
	}
}

func TestListingCacheBound(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{}, WithListingCacheMaxEntries(2))
	base := time.Now()
	service.listingStore("a", sampleMovies(), base)
	service.listingStore("b", sampleMovies(), base.Add(time.Second))
	service.listingStore("c", sampleMovies(), base.Add(2*time.Second))

	service.cache.mu.Lock()
	defer service.cache.mu.Unlock()
	if len(service.cache.listings) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(service.cache.listings))
	}
	if _, ok := service.cache.listings["a"]; ok {
		t.Fatal("oldest listing should have been evicted")
	}
}

func TestCollectWarmURLs(t *testing.T) {
	service := NewService(&stubProvider{}, stubResolver{},
		WithListingCacheTTL(time.Hour), WithWarmTopListings(2))
	base := time.Now()

	// Hottest expired listings win, capped at the configured top count.
	for i := 0; i < 5; i++ {
		service.markPopular("hot", base)
	}
	for i := 0; i < 3; i++ {
		service.markPopular("warmish", base)
	}
	service.markPopular("cold", base)

	urls := service.collectWarmURLs(base.Add(2 * time.Hour))
	if len(urls) != 2 {
		t.Fatalf("expected 2 warm urls, got %v", urls)
	}
	if urls[0] != "hot" || urls[1] != "warmish" {
		t.Fatalf("unexpected warm order: %v", urls)
	}
}

func TestWarmCycleRefreshesListing(t *testing.T) {
	provider := &stubProvider{listings: map[string][]domain.MovieRecord{
		"hot": sampleMovies(),
	}}
	service := NewService(provider, stubResolver{}, WithListingCacheTTL(time.Hour))
	service.markPopular("hot", time.Now().Add(-time.Hour))

	service.runWarmCycle(context.Background())
	if calls := provider.listingCalls["hot"]; calls != 1 {
		t.Fatalf("expected warm refresh fetch, got %d", calls)
	}
	if _, ok := service.listingLookup("hot", time.Now()); !ok {
		t.Fatal("expected warmed listing to be cached")
	}
}
