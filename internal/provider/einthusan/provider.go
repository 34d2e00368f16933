package einthusan

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"thiraistream/scraperservice/internal/domain"
	"thiraistream/scraperservice/internal/metrics"
	"thiraistream/scraperservice/internal/title"
)

const (
	defaultOrigin    = "https://einthusan.tv"
	defaultCDNOrigin = "https://cdn1.einthusan.io"

	// untitledFallback is what a listing record gets when every title
	// candidate and the detail-page fallback failed.
	untitledFallback = "Untitled Movie"
)

// Fetcher is the page-fetching dependency; absent results mean network
// failure, timeout or a non-success status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, bool)
}

type Config struct {
	Origin    string
	CDNOrigin string
	Fetcher   Fetcher
}

// Provider scrapes the upstream movie site: listing pages into MovieRecords,
// detail pages into titles and playable CDN URLs.
type Provider struct {
	origin    string
	cdnOrigin string
	fetcher   Fetcher
}

func NewProvider(cfg Config) *Provider {
	origin := strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if origin == "" {
		origin = defaultOrigin
	}
	cdnOrigin := strings.TrimRight(strings.TrimSpace(cfg.CDNOrigin), "/")
	if cdnOrigin == "" {
		cdnOrigin = defaultCDNOrigin
	}
	return &Provider{
		origin:    origin,
		cdnOrigin: cdnOrigin,
		fetcher:   cfg.Fetcher,
	}
}

// SearchURL builds the upstream search endpoint for a language code and
// free-text query.
func (p *Provider) SearchURL(code, query string) string {
	return fmt.Sprintf("%s/movie/results/?lang=%s&query=%s", p.origin, code, url.QueryEscape(query))
}

// BrowseURL builds the upstream listing endpoint for a language code,
// category and page number.
func (p *Provider) BrowseURL(code string, category domain.Category, page int) string {
	if category == domain.CategoryPopular {
		return fmt.Sprintf("%s/movie/results/?find=Popularity&lang=%s&ptype=view&tp=alltime&page=%d", p.origin, code, page)
	}
	return fmt.Sprintf("%s/movie/results/?find=Recent&lang=%s&page=%d", p.origin, code, page)
}

// FetchListing fetches a listing page and parses one record per movie block.
// ok=false means the page itself could not be fetched; an empty slice with
// ok=true is a valid listing with no results.
func (p *Provider) FetchListing(ctx context.Context, pageURL string) ([]domain.MovieRecord, bool) {
	content, ok := p.fetcher.Fetch(ctx, pageURL)
	if !ok {
		return nil, false
	}
	return p.parseListing(ctx, content), true
}

func (p *Provider) parseListing(ctx context.Context, content []byte) []domain.MovieRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil
	}

	movies := make([]domain.MovieRecord, 0)
	doc.Find("div.block1").Each(func(_ int, block *goquery.Selection) {
		if record, ok := p.parseBlock(ctx, block); ok {
			movies = append(movies, record)
		}
	})
	return movies
}

// parseBlock turns one listing block into a record. Blocks missing the link
// or image element are skipped, not errors.
func (p *Provider) parseBlock(ctx context.Context, block *goquery.Selection) (domain.MovieRecord, bool) {
	link := block.Find("a").First()
	img := block.Find("img").First()
	if link.Length() == 0 || img.Length() == 0 {
		return domain.MovieRecord{}, false
	}

	pageURL := p.origin + link.AttrOr("href", "")

	candidates := make([]string, 0, 3)
	if text := strings.TrimSpace(block.Find("div.title").First().Text()); text != "" {
		candidates = append(candidates, text)
	}
	if alt := strings.TrimSpace(img.AttrOr("alt", "")); alt != "" {
		candidates = append(candidates, alt)
	}
	if imgTitle := strings.TrimSpace(img.AttrOr("title", "")); imgTitle != "" {
		candidates = append(candidates, imgTitle)
	}

	chosen := ""
	for _, candidate := range candidates {
		cleaned := title.Clean(candidate)
		if cleaned != "" && utf8.RuneCountInString(cleaned) > 2 && !title.IsDigits(cleaned) {
			chosen = cleaned
			break
		}
	}

	if chosen == "" || utf8.RuneCountInString(chosen) < 3 || title.LooksLikeCode(chosen) {
		metrics.DetailFallbacksTotal.Inc()
		if extracted, ok := p.PageTitle(ctx, pageURL); ok {
			chosen = extracted
		} else {
			chosen = untitledFallback
		}
	}

	imgURL := img.AttrOr("src", "")
	if imgURL == "" {
		imgURL = img.AttrOr("data-src", "")
	}
	if imgURL == "" {
		imgURL = img.AttrOr("data-original", "")
	}
	if strings.HasPrefix(imgURL, "//") {
		imgURL = "https:" + imgURL
	}

	return domain.MovieRecord{Title: chosen, ImgURL: imgURL, PageURL: pageURL}, true
}

// PageTitle fetches a detail page and extracts its best normalized title,
// trying the social-preview meta tag, the document title, then the first
// heading.
func (p *Provider) PageTitle(ctx context.Context, pageURL string) (string, bool) {
	content, ok := p.fetcher.Fetch(ctx, pageURL)
	if !ok {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", false
	}
	return extractTitle(doc)
}

func extractTitle(doc *goquery.Document) (string, bool) {
	if content, exists := doc.Find(`meta[property="og:title"]`).First().Attr("content"); exists {
		if cleaned := title.Clean(content); cleaned != "" {
			return cleaned, true
		}
	}
	if cleaned := title.Clean(doc.Find("title").First().Text()); cleaned != "" {
		return cleaned, true
	}
	if cleaned := title.Clean(doc.Find("h1").First().Text()); cleaned != "" {
		return cleaned, true
	}
	return "", false
}

// VideoURL fetches a detail page, locates the video player element and
// rewrites its manifest link onto the CDN origin. Anything unexpected,
// including a parsing panic inside the DOM walk, yields absent.
func (p *Provider) VideoURL(ctx context.Context, pageURL string) (result string, ok bool) {
	defer func() {
		if recover() != nil {
			result, ok = "", false
		}
	}()

	content, fetched := p.fetcher.Fetch(ctx, pageURL)
	if !fetched {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", false
	}

	player := doc.Find("#UIVideoPlayer").First()
	if player.Length() == 0 {
		return "", false
	}
	link, exists := player.Attr("data-mp4-link")
	if !exists {
		return "", false
	}
	marker := strings.Index(link, "etv")
	if marker < 0 {
		return "", false
	}
	tail := link[marker+len("etv"):]
	return p.cdnOrigin + "/etv" + tail, true
}
