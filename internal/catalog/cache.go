package catalog

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"thiraistream/scraperservice/internal/domain"
	"thiraistream/scraperservice/internal/metrics"
)

const (
	defaultListingTTL        = 5 * 24 * time.Hour
	defaultListingMaxEntries = 128
	defaultWarmInterval      = 10 * time.Minute
	defaultWarmTopListings   = 8
	defaultPopularMaxEntries = 200

	// Bound on parallel warm refreshes so the warmer never hammers the
	// upstream site.
	maxConcurrentWarmRefreshes = 2

	warmRefreshTimeout = 30 * time.Second
)

type warmerConfig struct {
	listingTTL        time.Duration
	listingMaxEntries int
	warmInterval      time.Duration
	warmTopListings   int
	popularMaxEntries int
}

func defaultWarmerConfig() warmerConfig {
	return warmerConfig{
		listingTTL:        defaultListingTTL,
		listingMaxEntries: defaultListingMaxEntries,
		warmInterval:      defaultWarmInterval,
		warmTopListings:   defaultWarmTopListings,
		popularMaxEntries: defaultPopularMaxEntries,
	}
}

type cachedListing struct {
	movies    []domain.MovieRecord
	updatedAt time.Time
	expiresAt time.Time
}

type popularListing struct {
	hits     int
	lastSeen time.Time
	lastWarm time.Time
}

type cacheState struct {
	mu       sync.Mutex
	listings map[string]*cachedListing
	popular  map[string]*popularListing
}

func (s *Service) listingLookup(listingURL string, now time.Time) ([]domain.MovieRecord, bool) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	entry, ok := s.cache.listings[listingURL]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("listing").Inc()
		return nil, false
	}
	if !now.Before(entry.expiresAt) {
		metrics.CacheMissesTotal.WithLabelValues("listing").Inc()
		delete(s.cache.listings, listingURL)
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("listing").Inc()
	return append([]domain.MovieRecord(nil), entry.movies...), true
}

func (s *Service) listingStore(listingURL string, movies []domain.MovieRecord, now time.Time) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	s.cache.listings[listingURL] = &cachedListing{
		movies:    append([]domain.MovieRecord(nil), movies...),
		updatedAt: now,
		expiresAt: now.Add(s.cfg.listingTTL),
	}
	s.trimListingsLocked(now)
}

func (s *Service) trimListingsLocked(now time.Time) {
	for listingURL, entry := range s.cache.listings {
		if now.After(entry.expiresAt) {
			delete(s.cache.listings, listingURL)
		}
	}
	if len(s.cache.listings) <= s.cfg.listingMaxEntries {
		return
	}

	type pair struct {
		url   string
		entry *cachedListing
	}
	items := make([]pair, 0, len(s.cache.listings))
	for listingURL, entry := range s.cache.listings {
		items = append(items, pair{url: listingURL, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-s.cfg.listingMaxEntries; i++ {
		delete(s.cache.listings, items[i].url)
	}
}

func (s *Service) markPopular(listingURL string, now time.Time) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	pop, ok := s.cache.popular[listingURL]
	if !ok {
		s.cache.popular[listingURL] = &popularListing{hits: 1, lastSeen: now}
	} else {
		pop.hits++
		pop.lastSeen = now
	}

	if len(s.cache.popular) <= s.cfg.popularMaxEntries {
		return
	}

	// Drop the least popular, oldest listings.
	type pair struct {
		url   string
		entry *popularListing
	}
	items := make([]pair, 0, len(s.cache.popular))
	for popURL, entry := range s.cache.popular {
		items = append(items, pair{url: popURL, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		left, right := items[i].entry, items[j].entry
		if left.hits != right.hits {
			return left.hits < right.hits
		}
		return left.lastSeen.Before(right.lastSeen)
	})
	for i := 0; i < len(items)-s.cfg.popularMaxEntries; i++ {
		delete(s.cache.popular, items[i].url)
	}
}

// runWarmer periodically re-fetches the hottest listings whose cache entries
// have expired. It owns no state beyond the shared caches.
func (s *Service) runWarmer(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.warmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runWarmCycle(ctx)
		}
	}
}

func (s *Service) runWarmCycle(ctx context.Context) {
	urls := s.collectWarmURLs(time.Now())
	if len(urls) == 0 {
		return
	}

	sem := semaphore.NewWeighted(maxConcurrentWarmRefreshes)
	var wg sync.WaitGroup
	for _, listingURL := range urls {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		go func(listingURL string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			refreshCtx, cancel := context.WithTimeout(ctx, warmRefreshTimeout)
			defer cancel()

			movies, ok := s.provider.FetchListing(refreshCtx, listingURL)
			if !ok {
				s.logger.Debug("warm refresh failed", slog.String("url", listingURL))
				return
			}
			s.listingStore(listingURL, emptyIfNil(movies), time.Now())
		}(listingURL)
	}
	wg.Wait()
}

func (s *Service) collectWarmURLs(now time.Time) []string {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if len(s.cache.popular) == 0 {
		return nil
	}

	urls := make([]string, 0, len(s.cache.popular))
	for listingURL := range s.cache.popular {
		urls = append(urls, listingURL)
	}
	sort.Slice(urls, func(i, j int) bool {
		left, right := s.cache.popular[urls[i]], s.cache.popular[urls[j]]
		if left.hits != right.hits {
			return left.hits > right.hits
		}
		return left.lastSeen.After(right.lastSeen)
	})

	limit := s.cfg.warmTopListings
	if len(urls) < limit {
		limit = len(urls)
	}

	selected := make([]string, 0, limit)
	for _, listingURL := range urls[:limit] {
		pop := s.cache.popular[listingURL]
		if !pop.lastWarm.IsZero() && now.Sub(pop.lastWarm) < s.cfg.warmInterval/2 {
			continue
		}
		if entry, ok := s.cache.listings[listingURL]; ok && now.Before(entry.expiresAt) {
			continue
		}
		pop.lastWarm = now
		selected = append(selected, listingURL)
	}
	return selected
}
