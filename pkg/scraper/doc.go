// Package scraper runs one crawl of web-scraping.dev.
//
// A run walks three independent paginated sources:
//
//   - the product catalog, HTML pages /products?page=1..6
//   - the testimonial feed, authenticated HTML fragments /api/testimonials?page=N
//   - the review connection, a GraphQL relay cursor at /api/graphql
//
// and writes everything collected to a single JSON snapshot. A phase that
// fails or is cancelled keeps the records it already had and the run is
// reported as partial; only an unparseable product card in strict mode stops
// the run without a snapshot.
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := s.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
//
// Phases run one after another by default. With run.parallel set they run
// concurrently, each writing only its own slot of the snapshot.
package scraper
