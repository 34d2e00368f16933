package fetch

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"thiraistream/scraperservice/internal/metrics"
)

const (
	defaultTimeout    = 8 * time.Second
	defaultPageTTL    = 5 * 24 * time.Hour
	defaultMaxEntries = 256

	maxBodyBytes = 8 << 20
)

// Backend is an optional shared cache layer in front of the in-memory page
// cache (see RedisPageCache).
type Backend interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte, ttl time.Duration) error
}

type Config struct {
	Client         *http.Client
	UserAgent      string
	AcceptLanguage string
	TTL            time.Duration
	MaxEntries     int
	Backend        Backend
}

type cachedPage struct {
	body      []byte
	updatedAt time.Time
	expiresAt time.Time
}

// Fetcher performs upstream GETs with a browser-like header set and caches
// successful responses by exact URL. Failures are never cached and never
// surface as errors; callers get ok=false and degrade.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	ttl            time.Duration
	maxEntries     int
	backend        Backend

	mu    sync.Mutex
	pages map[string]cachedPage
}

func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultPageTTL
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Fetcher{
		client:         client,
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		ttl:            ttl,
		maxEntries:     maxEntries,
		backend:        cfg.Backend,
	}
}

// Fetch returns the page body for the URL, from cache when fresh. ok=false
// covers network errors, timeouts and non-2xx responses alike.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, bool) {
	now := time.Now()
	if body, ok := f.cacheLookup(ctx, url, now); ok {
		return body, true
	}

	body, ok := f.fetchUpstream(ctx, url)
	if !ok {
		return nil, false
	}
	f.cacheStore(ctx, url, body, time.Now())
	return body, true
}

func (f *Fetcher) fetchUpstream(ctx context.Context, url string) ([]byte, bool) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return nil, false
	}
	if f.userAgent != "" {
		request.Header.Set("User-Agent", f.userAgent)
	}
	if f.acceptLanguage != "" {
		request.Header.Set("Accept-Language", f.acceptLanguage)
	}

	started := time.Now()
	response, err := f.client.Do(request)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return nil, false
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues("status").Inc()
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("ok").Inc()
	metrics.UpstreamRequestDuration.Observe(time.Since(started).Seconds())
	return body, true
}

func (f *Fetcher) cacheLookup(ctx context.Context, url string, now time.Time) ([]byte, bool) {
	f.mu.Lock()
	entry, ok := f.pages[url]
	if ok && now.Before(entry.expiresAt) {
		body := append([]byte(nil), entry.body...)
		f.mu.Unlock()
		metrics.CacheHitsTotal.WithLabelValues("page").Inc()
		return body, true
	}
	if ok {
		delete(f.pages, url)
	}
	f.mu.Unlock()

	if f.backend != nil {
		body, found, err := f.backend.Get(ctx, url)
		if err == nil && found {
			metrics.CacheHitsTotal.WithLabelValues("page").Inc()
			// Keep a local copy so repeated hits skip the round trip.
			f.storeMemory(url, body, now)
			return body, true
		}
	}

	metrics.CacheMissesTotal.WithLabelValues("page").Inc()
	return nil, false
}

func (f *Fetcher) cacheStore(ctx context.Context, url string, body []byte, now time.Time) {
	if f.backend != nil {
		_ = f.backend.Set(ctx, url, body, f.ttl)
	}
	f.storeMemory(url, body, now)
}

func (f *Fetcher) storeMemory(url string, body []byte, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages == nil {
		f.pages = make(map[string]cachedPage)
	}
	f.pages[url] = cachedPage{
		body:      append([]byte(nil), body...),
		updatedAt: now,
		expiresAt: now.Add(f.ttl),
	}
	f.trimLocked(now)
}

// trimLocked evicts expired entries first, then the oldest until the
// capacity bound holds.
func (f *Fetcher) trimLocked(now time.Time) {
	for url, entry := range f.pages {
		if now.After(entry.expiresAt) {
			delete(f.pages, url)
		}
	}
	if len(f.pages) <= f.maxEntries {
		return
	}

	type pair struct {
		url   string
		entry cachedPage
	}
	items := make([]pair, 0, len(f.pages))
	for url, entry := range f.pages {
		items = append(items, pair{url: url, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-f.maxEntries; i++ {
		delete(f.pages, items[i].url)
	}
}
