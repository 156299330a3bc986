// Package catalog walks the numbered product listing pages and extracts one
// record per product card.
package catalog

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
const Phase = "catalog"

// Getter is the part of the HTTP client the catalog needs
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*client.Response, error)
}

// Source fetches listing pages 1..LastPage. Its state is the page number.
type Source struct {
	getter   Getter
	baseURL  string
	lastPage int
	strict   bool
	logger   logger.Logger
}

// NewSource creates a catalog source. With strict set, a product card missing
// its title or price aborts the run; otherwise the card is skipped.
func NewSource(g Getter, baseURL string, lastPage int, strict bool, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Source{
		getter:   g,
		baseURL:  strings.TrimRight(baseURL, "/"),
		lastPage: lastPage,
		strict:   strict,
		logger:   log.WithField("phase", Phase),
	}
}

// PageURL returns the listing URL for page p
func (s *Source) PageURL(p int) string {
	return fmt.Sprintf("%s/products?page=%d", s.baseURL, p)
}

// Next fetches and parses page p
func (s *Source) Next(ctx context.Context, p int) pagination.Step[models.ProductRecord, int] {
	resp, err := s.getter.Get(ctx, s.PageURL(p), nil)
	if err != nil {
		return pagination.Failed[models.ProductRecord, int](err)
	}
	if !resp.OK() {
		return pagination.Exhausted[models.ProductRecord, int](fmt.Sprintf("page %d returned status %d", p, resp.Status))
	}

	products, found, err := s.parse(p, resp.Body)
	if err != nil {
		if errs.IsType(err, errs.ErrorTypeParsing) && s.strict {
			return pagination.Fatal[models.ProductRecord, int](err)
		}
		return pagination.Failed[models.ProductRecord, int](err)
	}
	if found == 0 {
		return pagination.Exhausted[models.ProductRecord, int](fmt.Sprintf("page %d has no products", p))
	}
	if p >= s.lastPage {
		return pagination.Last(fmt.Sprintf("reached last listing page %d", p), products, p+1)
	}
	return pagination.Page(products, p+1)
}

// parse returns the well-formed products and the number of product nodes seen
func (s *Source) parse(p int, body []byte) ([]models.ProductRecord, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrorTypeDecode, err, "page %d: failed to parse HTML", p)
	}

	nodes := doc.Find(".product")
	products := make([]models.ProductRecord, 0, nodes.Length())
	var parseErr error

	nodes.EachWithBreak(func(i int, node *goquery.Selection) bool {
		product, err := ParseProduct(node)
		if err == nil {
			products = append(products, product)
			return true
		}

		err = errs.Wrap(errs.ErrorTypeParsing, err, "page %d product %d", p, i+1)
		if s.strict {
			parseErr = err
			return false
		}
		s.logger.WithError(err).WarnWithFields("skipping malformed product", map[string]interface{}{
			"page":  p,
			"index": i + 1,
		})
		return true
	})

	if parseErr != nil {
		return nil, nodes.Length(), parseErr
	}
	return products, nodes.Length(), nil
}

// ParseProduct extracts the title and price of one product card
func ParseProduct(node *goquery.Selection) (models.ProductRecord, error) {
	title := node.Find("h3").First()
	if title.Length() == 0 {
		return models.ProductRecord{}, fmt.Errorf("product has no h3 title")
	}
	price := node.Find(".price").First()
	if price.Length() == 0 {
		return models.ProductRecord{}, fmt.Errorf("product has no .price")
	}
	return models.ProductRecord{
		Name:  strings.TrimSpace(title.Text()),
		Price: strings.TrimSpace(price.Text()),
	}, nil
}

// Collect walks the catalog from page 1
func Collect(ctx context.Context, src *Source, opts pagination.Options) (pagination.Result[models.ProductRecord, int], error) {
	if opts.Name == "" {
		opts.Name = Phase
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = src.lastPage
	}
	return pagination.Drive[models.ProductRecord, int](ctx, src, 1, opts)
}
