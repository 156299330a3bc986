package testsite

// Seed loads a small, well-formed site: three listing pages of products with
// page 4 empty, two feed pages followed by a 404, and three review pages of
// sizes 2, 2 and 1.
func (s *Server) Seed() {
	s.SetProducts(1,
		Product{Name: "Box of Chocolate Candy", Price: "24.99"},
		Product{Name: "Dark Red Energy Potion", Price: "4.99"},
	)
	s.SetProducts(2,
		Product{Name: "Teal Energy Potion", Price: "4.99"},
		Product{Name: "Red Energy Potion", Price: "4.99"},
	)
	s.SetProducts(3,
		Product{Name: "Blue Energy Potion", Price: "4.99"},
	)

	s.SetTestimonials(1,
		Testimonial{Text: "We've been using this utility for years - awesome service!", Author: "Jane"},
		Testimonial{Text: "This app has made my life so much easier.", Author: "Ola"},
	)
	s.SetTestimonials(2,
		Testimonial{Text: "Great product, no author widget though."},
	)

	s.SetReviewPages(
		ReviewPage{
			Reviews: []Review{
				{Text: "Unique flavor and great energy boost.", Date: "2022-07-22"},
				{Text: "Not my favorite, too sweet.", Date: "2022-08-17"},
			},
			EndCursor:   "cursor-2",
			HasNextPage: true,
		},
		ReviewPage{
			Reviews: []Review{
				{Text: "Great for a quick snack.", Date: "2022-09-03"},
				{Text: "Date went missing on this one."},
			},
			EndCursor:   "cursor-4",
			HasNextPage: true,
		},
		ReviewPage{
			Reviews: []Review{
				{Text: "Last review on the site.", Date: "2023-02-11"},
			},
			EndCursor:   "cursor-5",
			HasNextPage: false,
		},
	)
}

// Seeded counts of Seed
const (
	SeedProducts     = 5
	SeedTestimonials = 3
	SeedReviews      = 5
)
