package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"brandscraper/pkg/auth"
	"brandscraper/pkg/config"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/scraper"
)

var (
	// Scrape command flags
	baseURL         string
	token           string
	outputPath      string
	parallel        bool
	lenient         bool
	feedMaxPages    int
	rateLimit       int
	runTimeout      time.Duration
	metricsTextfile string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl all sources and write the snapshot",
	Long: `Crawl the product catalog, the testimonial feed and the review
connection, then write data.json.

The secret token for the authenticated endpoints is taken, in order, from:
  - the --token flag or BRANDSCRAPER_SECRET_TOKEN
  - a token stored with 'brandscraper auth set-token'
  - the public demo token

Exit status is 0 when every source was read to its end, 2 when the snapshot
is partial because a source failed or the run was interrupted, and 1 when no
snapshot could be written.`,
	Example: `  # Crawl with defaults into ./data.json
  brandscraper scrape

  # Run the three sources concurrently, skip malformed product cards
  brandscraper scrape --parallel --lenient

  # Crawl a local copy of the site
  brandscraper scrape --base-url http://localhost:8000 --output /tmp/data.json`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	for _, cmd := range []*cobra.Command{scrapeCmd, rootCmd} {
		cmd.Flags().StringVar(&baseURL, "base-url", "", "site to crawl (default "+config.DefaultBaseURL+")")
		cmd.Flags().StringVar(&token, "token", "", "secret token for the authenticated endpoints")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "snapshot path (default data.json)")
		cmd.Flags().BoolVar(&parallel, "parallel", false, "run the three sources concurrently")
		cmd.Flags().BoolVar(&lenient, "lenient", false, "skip product cards without title or price instead of aborting")
		cmd.Flags().IntVar(&feedMaxPages, "feed-max-pages", 0, "stop the testimonial feed after this many pages")
		cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute, 0 for unlimited")
		cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "bound the whole run, e.g. 2m")
		cmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	}
}

// scrapeFlags returns the flags the user actually set
func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	if set.Changed("base-url") {
		flags["base-url"] = baseURL
	}
	if set.Changed("token") {
		flags["token"] = token
	}
	if set.Changed("output") {
		flags["output"] = outputPath
	}
	if set.Changed("parallel") {
		flags["parallel"] = parallel
	}
	if set.Changed("lenient") {
		flags["lenient"] = lenient
	}
	if set.Changed("feed-max-pages") {
		flags["feed-max-pages"] = feedMaxPages
	}
	if set.Changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if set.Changed("timeout") {
		flags["timeout"] = runTimeout
	}
	if set.Changed("metrics-textfile") {
		flags["metrics-textfile"] = metricsTextfile
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, scrapeFlags(cmd))
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to load configuration: %w", err)}
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("brandscraper starting")

	if !cmd.Flags().Changed("token") {
		resolveToken(cfg, log)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scrape(ctx, cfg, log)
}

// resolveToken replaces the demo token with a stored one for the same site
func resolveToken(cfg *config.Config, log logger.Logger) {
	if cfg.Site.SecretToken != config.DefaultSecretToken {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("token stores unavailable")
		return
	}

	stored, source, err := manager.Retrieve(auth.SiteKey(cfg.Site.BaseURL))
	if err != nil {
		return
	}
	cfg.Site.SecretToken = stored.Value
	log.WithField("store", source).Info("using stored secret token")
}

func scrape(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	printer.Banner()
	printer.Info("Site", cfg.Site.BaseURL)
	printer.Info("Output", cfg.Output.Path)

	s, err := scraper.New(cfg, scraper.WithLogger(log))
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	report, err := s.Run(ctx)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	printReport(report)
	printer.Success(report.Summary())
	log.InfoWithFields(report.Summary(), map[string]interface{}{
		"status":   string(report.Status),
		"duration": report.Duration,
	})

	if report.Status == scraper.StatusPartial {
		printer.Warning("Snapshot is partial", report.Path)
		return &exitError{code: exitPartial}
	}
	return nil
}

func printReport(report *scraper.Report) {
	if quiet {
		return
	}
	rows := make([][]string, 0, len(report.Phases))
	for _, phase := range report.Phases {
		row := []string{
			phase.Name,
			strconv.Itoa(phase.Records) + " records",
			strconv.Itoa(phase.Pages) + " pages",
			string(phase.Termination),
		}
		if phase.Err != nil {
			row = append(row, phase.Err.Error())
		} else if phase.Reason != "" {
			row = append(row, phase.Reason)
		}
		rows = append(rows, row)
	}
	printer.Table(rows)
}
