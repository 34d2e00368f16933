package lang

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	textlanguage "golang.org/x/text/language"

	"thiraistream/scraperservice/internal/metrics"
)

const (
	// matchCutoff is the minimum similarity ratio for a fuzzy match.
	matchCutoff = 0.7

	defaultCacheTTL        = 24 * time.Hour
	defaultCacheMaxEntries = 128
)

// Language is one supported upstream language. Name is the canonical
// lowercase key, Code the value the upstream site expects in its lang query
// parameter.
type Language struct {
	Name    string
	Code    string
	Display string
}

var supportedNames = []string{
	"tamil",
	"hindi",
	"telugu",
	"malayalam",
	"kannada",
	"bengali",
	"marathi",
	"punjabi",
}

// Supported is the fixed language set, built once at init. The upstream site
// uses the language name itself as its code.
var Supported = func() []Language {
	caser := cases.Title(textlanguage.English)
	languages := make([]Language, 0, len(supportedNames))
	for _, name := range supportedNames {
		languages = append(languages, Language{
			Name:    name,
			Code:    name,
			Display: caser.String(name),
		})
	}
	return languages
}()

// Lookup returns the language with the exact canonical name.
func Lookup(name string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, language := range Supported {
		if language.Name == key {
			return language, true
		}
	}
	return Language{}, false
}

type cachedMatch struct {
	language  Language
	ok        bool
	updatedAt time.Time
	expiresAt time.Time
}

// Resolver fuzzy-matches free-form input against the supported set and
// memoizes results per distinct input string.
type Resolver struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	cache map[string]cachedMatch
}

type ResolverOption func(*Resolver)

func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithCacheMaxEntries(maxEntries int) ResolverOption {
	return func(r *Resolver) {
		if maxEntries > 0 {
			r.maxEntries = maxEntries
		}
	}
}

func NewResolver(options ...ResolverOption) *Resolver {
	resolver := &Resolver{
		ttl:        defaultCacheTTL,
		maxEntries: defaultCacheMaxEntries,
		cache:      make(map[string]cachedMatch),
	}
	for _, option := range options {
		if option != nil {
			option(resolver)
		}
	}
	return resolver
}

// Resolve returns the closest supported language for the input, accepting
// misspellings whose similarity clears the cutoff.
func (r *Resolver) Resolve(input string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return Language{}, false
	}

	now := time.Now()
	if match, ok := r.cacheLookup(key, now); ok {
		return match.language, match.ok
	}

	language, ok := closestMatch(key)
	r.cacheStore(key, cachedMatch{language: language, ok: ok}, now)
	return language, ok
}

func closestMatch(key string) (Language, bool) {
	best := Language{}
	bestRatio := 0.0
	for _, language := range Supported {
		ratio := similarity(key, language.Name)
		if ratio > bestRatio {
			best = language
			bestRatio = ratio
		}
	}
	if bestRatio < matchCutoff {
		return Language{}, false
	}
	return best, true
}

// similarity is an edit-distance ratio in [0,1]: identical strings score 1,
// disjoint strings approach 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 1
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longer)
}

func (r *Resolver) cacheLookup(key string, now time.Time) (cachedMatch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[key]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("spell").Inc()
		return cachedMatch{}, false
	}
	if !now.Before(entry.expiresAt) {
		metrics.CacheMissesTotal.WithLabelValues("spell").Inc()
		delete(r.cache, key)
		return cachedMatch{}, false
	}
	metrics.CacheHitsTotal.WithLabelValues("spell").Inc()
	return entry, true
}

func (r *Resolver) cacheStore(key string, entry cachedMatch, now time.Time) {
	entry.updatedAt = now
	entry.expiresAt = now.Add(r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = entry
	r.trimLocked()
}

// trimLocked drops the oldest entries once the bound is exceeded.
func (r *Resolver) trimLocked() {
	if len(r.cache) <= r.maxEntries {
		return
	}
	type pair struct {
		key   string
		entry cachedMatch
	}
	items := make([]pair, 0, len(r.cache))
	for key, entry := range r.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-r.maxEntries; i++ {
		delete(r.cache, items[i].key)
	}
}
