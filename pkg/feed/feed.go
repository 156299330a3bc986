// Package feed walks the authenticated testimonial feed page by page until
// the upstream answers with an error status, an empty body or an empty page.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"brandscraper/pkg/client"
	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/models"
	"brandscraper/pkg/pagination"
)

// Phase is the name used in logs and metrics
const Phase = "feed"

// Getter is the part of the HTTP client the feed needs
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*client.Response, error)
}

// Source fetches feed pages starting at 1. Its state is the page number.
type Source struct {
	getter  Getter
	baseURL string
	headers map[string]string
	logger  logger.Logger
}

// NewSource creates a feed source sending headers on every request
func NewSource(g Getter, baseURL string, headers map[string]string, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Source{
		getter:  g,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		logger:  log.WithField("phase", Phase),
	}
}

// PageURL returns the feed URL for page p
func (s *Source) PageURL(p int) string {
	return fmt.Sprintf("%s/api/testimonials?page=%d", s.baseURL, p)
}

// Next fetches and parses page p
func (s *Source) Next(ctx context.Context, p int) pagination.Step[models.TestimonialRecord, int] {
	resp, err := s.getter.Get(ctx, s.PageURL(p), s.headers)
	if err != nil {
		return pagination.Failed[models.TestimonialRecord, int](err)
	}
	if !resp.OK() {
		return pagination.Exhausted[models.TestimonialRecord, int](fmt.Sprintf("page %d returned status %d", p, resp.Status))
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return pagination.Exhausted[models.TestimonialRecord, int](fmt.Sprintf("page %d has an empty body", p))
	}

	testimonials, err := Parse(resp.Body)
	if err != nil {
		return pagination.Failed[models.TestimonialRecord, int](errs.Wrap(errs.ErrorTypeDecode, err, "page %d", p))
	}
	if len(testimonials) == 0 {
		return pagination.Exhausted[models.TestimonialRecord, int](fmt.Sprintf("page %d has no testimonials", p))
	}
	return pagination.Page(testimonials, p+1)
}

// Parse extracts every testimonial from a feed page
func Parse(body []byte) ([]models.TestimonialRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	nodes := doc.Find(".testimonial")
	out := make([]models.TestimonialRecord, 0, nodes.Length())
	nodes.Each(func(_ int, node *goquery.Selection) {
		out = append(out, ParseTestimonial(node))
	})
	return out, nil
}

// ParseTestimonial reads the text and author of one entry. A missing identity
// widget or username yields models.DefaultAuthor.
func ParseTestimonial(node *goquery.Selection) models.TestimonialRecord {
	author := models.DefaultAuthor
	if widget := node.Find("identicon-svg").First(); widget.Length() > 0 {
		if name, ok := widget.Attr("username"); ok {
			author = name
		}
	}
	return models.TestimonialRecord{
		Text:   strings.TrimSpace(node.Find(".text").First().Text()),
		Author: author,
	}
}

// Collect walks the feed from page 1. opts.MaxPages bounds the walk; 0 is unbounded.
func Collect(ctx context.Context, src *Source, opts pagination.Options) (pagination.Result[models.TestimonialRecord, int], error) {
	if opts.Name == "" {
		opts.Name = Phase
	}
	return pagination.Drive[models.TestimonialRecord, int](ctx, src, 1, opts)
}
