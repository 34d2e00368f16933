package domain

import "strings"

type Category string

const (
	CategoryPopular Category = "popular"
	CategoryRecent  Category = "recent"
)

// NormalizeCategory maps free-form input onto a supported category,
// defaulting to "recent" like the upstream site does.
func NormalizeCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CategoryPopular):
		return CategoryPopular
	default:
		return CategoryRecent
	}
}

// MovieRecord is one movie scraped from a listing page. Title is always
// non-empty; ImgURL may be empty when the listing carries no usable image
// source; PageURL is absolute under the site origin.
type MovieRecord struct {
	Title   string `json:"title"`
	ImgURL  string `json:"img_url"`
	PageURL string `json:"page_url"`
}

type BrowseResponse struct {
	Language string        `json:"language"`
	Category Category      `json:"category"`
	Page     int           `json:"page"`
	Movies   []MovieRecord `json:"movies"`
	NextPage int           `json:"next_page"`
	HasMore  bool          `json:"has_more"`
}

type SearchResponse struct {
	Language string        `json:"language"`
	Query    string        `json:"q"`
	Movies   []MovieRecord `json:"movies"`
}

type WatchResponse struct {
	Title    string `json:"title"`
	VideoURL string `json:"video_url"`
}
