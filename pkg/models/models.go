// Package models holds the records collected by the crawler and the snapshot
// document they are written into.
package models

const (
	// DefaultAuthor is used when a testimonial carries no identity widget
	DefaultAuthor = "User"
	// DefaultReviewDate marks a review whose date the upstream omitted
	DefaultReviewDate = "2023-01-01"
)

// ProductRecord is one product from the catalog listing. Order of appearance
// is its only identity.
type ProductRecord struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// TestimonialRecord is one entry of the authenticated testimonial feed
type TestimonialRecord struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ReviewRecord is one review node from the GraphQL connection
type ReviewRecord struct {
	Text string `json:"text"`
	// Date is an ISO-8601 calendar date, or DefaultReviewDate when unknown
	Date string `json:"date"`
}

// Snapshot is the persisted document. It is overwritten wholesale on each run.
type Snapshot struct {
	Products     []ProductRecord     `json:"products"`
	Testimonials []TestimonialRecord `json:"testimonials"`
	Reviews      []ReviewRecord      `json:"reviews"`
}

// NewSnapshot builds a snapshot whose nil collections are replaced by empty
// ones so they serialise as [] rather than null.
func NewSnapshot(products []ProductRecord, testimonials []TestimonialRecord, reviews []ReviewRecord) *Snapshot {
	if products == nil {
		products = []ProductRecord{}
	}
	if testimonials == nil {
		testimonials = []TestimonialRecord{}
	}
	if reviews == nil {
		reviews = []ReviewRecord{}
	}
	return &Snapshot{Products: products, Testimonials: testimonials, Reviews: reviews}
}

// Normalize replaces nil collections with empty ones in place
func (s *Snapshot) Normalize() {
	*s = *NewSnapshot(s.Products, s.Testimonials, s.Reviews)
}

// Counts returns the number of products, testimonials and reviews
func (s *Snapshot) Counts() (products, testimonials, reviews int) {
	return len(s.Products), len(s.Testimonials), len(s.Reviews)
}
