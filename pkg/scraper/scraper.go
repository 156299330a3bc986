package scraper

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"brandscraper/pkg/catalog"
	"brandscraper/pkg/client"
	"brandscraper/pkg/config"
	"brandscraper/pkg/feed"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/metrics"
	"brandscraper/pkg/models"
	"brandscraper/pkg/pagination"
	"brandscraper/pkg/reviews"
	"brandscraper/pkg/snapshot"
)

// Status is the overall outcome of a run that produced a snapshot
type Status string

const (
	StatusComplete Status = "complete"
	// StatusPartial means at least one phase failed or was cancelled.
	StatusPartial Status = "partial"
)

// PhaseReport describes how one paginator ended
type PhaseReport struct {
	Name        string
	Pages       int
	Records     int
	Termination pagination.Termination
	Reason      string
	Err         error
	// FinalCursor is the last endCursor seen; reviews only
	FinalCursor string
}

// Report summarises a run
type Report struct {
	Products     int
	Testimonials int
	Reviews      int
	Phases       []PhaseReport
	Path         string
	Status       Status
	Duration     time.Duration
}

// Summary returns the one-line result printed at the end of a run
func (r *Report) Summary() string {
	return fmt.Sprintf("DONE! Total: %d Products, %d Testimonials, %d Reviews.",
		r.Products, r.Testimonials, r.Reviews)
}

// Phase returns the report for the named phase
func (r *Report) Phase(name string) (PhaseReport, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseReport{}, false
}

// Scraper orchestrates one crawl and the snapshot write
type Scraper struct {
	config  *config.Config
	client  HTTPClient
	metrics *metrics.Metrics
	logger  logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithMetrics sets the metrics sink shared with the HTTP client
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithClient replaces the HTTP client built from the configuration
func WithClient(c HTTPClient) Option {
	return func(s *Scraper) { s.client = c }
}

// New creates a Scraper for cfg
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scraper{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.client == nil {
		s.client = client.NewFromConfig(cfg, s.logger, s.metrics)
	}
	return s, nil
}

// Metrics returns the metrics the run records into
func (s *Scraper) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run crawls all three sources and writes the snapshot once. A non-nil error
// means no snapshot was written.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	if s.config.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Run.Timeout)
		defer cancel()
	}

	s.logger.InfoWithFields("run started", map[string]interface{}{
		"base_url": s.config.Site.BaseURL,
		"output":   s.config.Output.Path,
		"parallel": s.config.Run.Parallel,
	})

	var (
		products     pagination.Result[models.ProductRecord, int]
		testimonials pagination.Result[models.TestimonialRecord, int]
		reviewPages  pagination.Result[models.ReviewRecord, reviews.CursorState]
	)

	runCatalog := func(ctx context.Context) (err error) {
		products, err = s.collectCatalog(ctx)
		return err
	}
	runFeed := func(ctx context.Context) (err error) {
		testimonials, err = s.collectFeed(ctx)
		return err
	}
	runReviews := func(ctx context.Context) (err error) {
		reviewPages, err = s.collectReviews(ctx)
		return err
	}

	var err error
	if s.config.Run.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return runCatalog(gctx) })
		g.Go(func() error { return runFeed(gctx) })
		g.Go(func() error { return runReviews(gctx) })
		err = g.Wait()
	} else {
		for _, phase := range []func(context.Context) error{runCatalog, runFeed, runReviews} {
			if err = phase(ctx); err != nil {
				break
			}
		}
	}

	if err != nil {
		s.logger.WithError(err).Error("run aborted, snapshot not written")
		s.writeMetrics()
		return nil, err
	}

	snap := models.NewSnapshot(products.Records, testimonials.Records, reviewPages.Records)
	if err := snapshot.Write(s.config.Output.Path, snap); err != nil {
		s.logger.WithError(err).Error("failed to write snapshot")
		s.writeMetrics()
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	report := &Report{
		Products:     len(snap.Products),
		Testimonials: len(snap.Testimonials),
		Reviews:      len(snap.Reviews),
		Phases: []PhaseReport{
			phaseReport(catalog.Phase, products),
			phaseReport(feed.Phase, testimonials),
			phaseReport(reviews.Phase, reviewPages),
		},
		Path:     s.config.Output.Path,
		Status:   StatusComplete,
		Duration: time.Since(start),
	}
	report.Phases[2].FinalCursor = reviewPages.FinalState.Cursor()
	for _, p := range report.Phases {
		if p.Termination == pagination.TerminationFailed || p.Termination == pagination.TerminationCancelled {
			report.Status = StatusPartial
		}
	}

	s.logger.InfoWithFields("snapshot written", map[string]interface{}{
		"path":         report.Path,
		"products":     report.Products,
		"testimonials": report.Testimonials,
		"reviews":      report.Reviews,
		"status":       string(report.Status),
		"duration":     report.Duration,
	})
	s.writeMetrics()

	return report, nil
}

func (s *Scraper) collectCatalog(ctx context.Context) (pagination.Result[models.ProductRecord, int], error) {
	src := catalog.NewSource(s.client, s.config.Site.BaseURL, s.config.Catalog.MaxPages, s.config.Catalog.Strict, s.logger)
	return catalog.Collect(ctx, src, pagination.Options{
		MaxPages: s.config.Catalog.MaxPages,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})
}

func (s *Scraper) collectFeed(ctx context.Context) (pagination.Result[models.TestimonialRecord, int], error) {
	src := feed.NewSource(s.client, s.config.Site.BaseURL, client.AuthHeaders(s.config), s.logger)
	return feed.Collect(ctx, src, pagination.Options{
		MaxPages: s.config.Feed.MaxPages,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})
}

func (s *Scraper) collectReviews(ctx context.Context) (pagination.Result[models.ReviewRecord, reviews.CursorState], error) {
	src := reviews.NewSource(s.client, s.config.Site.BaseURL, client.AuthHeaders(s.config), s.config.Reviews.PageSize, s.logger)
	return reviews.Collect(ctx, src, pagination.Options{
		MaxPages: s.config.Reviews.MaxPages,
		Delay:    s.config.Reviews.PageDelay,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})
}

func (s *Scraper) writeMetrics() {
	path := s.config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("failed to write metrics textfile")
	}
}

func phaseReport[T any, S any](name string, res pagination.Result[T, S]) PhaseReport {
	return PhaseReport{
		Name:        name,
		Pages:       res.Pages,
		Records:     len(res.Records),
		Termination: res.Termination,
		Reason:      res.Reason,
		Err:         res.Err,
	}
}
