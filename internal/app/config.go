package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/124.0.0.0 Safari/537.36"

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string

	UserAgent      string
	AcceptLanguage string
	SiteOrigin     string
	CDNOrigin      string

	RedisURL      string
	CacheDisabled bool

	PageCacheTTL           time.Duration
	PageCacheMaxEntries    int
	ListingCacheTTL        time.Duration
	ListingCacheMaxEntries int
	SpellCacheTTL          time.Duration
	SpellCacheMaxEntries   int

	WarmInterval    time.Duration
	WarmTopListings int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8091"),
		RequestTimeout: time.Duration(getEnvInt("SCRAPE_TIMEOUT_SECONDS", 8)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),

		UserAgent:      getEnv("SCRAPE_USER_AGENT", defaultUserAgent),
		AcceptLanguage: getEnv("SCRAPE_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		SiteOrigin:     strings.TrimRight(getEnv("EINTHUSAN_ORIGIN", "https://einthusan.tv"), "/"),
		CDNOrigin:      strings.TrimRight(getEnv("EINTHUSAN_CDN_ORIGIN", "https://cdn1.einthusan.io"), "/"),

		RedisURL:      getEnv("REDIS_URL", ""),
		CacheDisabled: getEnvBool("SCRAPE_CACHE_DISABLED", false),

		PageCacheTTL:           time.Duration(getEnvInt("PAGE_CACHE_TTL_HOURS", 120)) * time.Hour,
		PageCacheMaxEntries:    getEnvInt("PAGE_CACHE_MAX_ENTRIES", 256),
		ListingCacheTTL:        time.Duration(getEnvInt("LISTING_CACHE_TTL_HOURS", 120)) * time.Hour,
		ListingCacheMaxEntries: getEnvInt("LISTING_CACHE_MAX_ENTRIES", 128),
		SpellCacheTTL:          time.Duration(getEnvInt("SPELL_CACHE_TTL_HOURS", 24)) * time.Hour,
		SpellCacheMaxEntries:   getEnvInt("SPELL_CACHE_MAX_ENTRIES", 128),

		WarmInterval:    time.Duration(getEnvInt("WARM_INTERVAL_MINUTES", 10)) * time.Minute,
		WarmTopListings: getEnvInt("WARM_TOP_LISTINGS", 8),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
