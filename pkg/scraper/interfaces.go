package scraper

import (
	"brandscraper/pkg/catalog"
	"brandscraper/pkg/feed"
	"brandscraper/pkg/reviews"
)

// HTTPClient defines the HTTP operations the three phases need
type HTTPClient interface {
	catalog.Getter
	feed.Getter
	reviews.Poster
}
