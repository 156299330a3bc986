package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"brandscraper/pkg/config"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage brandscraper configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (BRANDSCRAPER_*)
  - .env files (./.env, ~/.brandscraper.env)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as 'brandscraper.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The secret token
is masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report all problems
at once.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(validateCmd)

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

const exampleConfig = `# brandscraper configuration
#
# Every option can also be set with an environment variable prefixed with
# BRANDSCRAPER_, e.g. BRANDSCRAPER_BASE_URL or BRANDSCRAPER_SECRET_TOKEN.

site:
  base_url: "https://web-scraping.dev"
  # Sent as x-secret-token to the testimonial feed and the GraphQL endpoint.
  # Prefer 'brandscraper auth set-token' over storing it here.
  secret_token: "secret123"
  user_agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/119.0.0.0 Safari/537.36"
  # Defaults to {base_url}/testimonials
  referer: ""
  timeout: 30s

catalog:
  # Listing pages 1..max_pages are fetched
  max_pages: 6
  # Abort the run on a product card without title or price
  strict: true

feed:
  # Safety bound on the testimonial feed, 0 for none
  max_pages: 500

reviews:
  page_size: 20
  page_delay: 100ms
  max_pages: 1000

output:
  path: "data.json"

rate_limit:
  # 0 disables limiting
  requests_per_minute: 0

retry:
  # Retries connection failures only; HTTP status codes are never retried
  enabled: false
  max_attempts: 3
  initial_backoff: 1s
  max_backoff: 30s
  multiplier: 2

run:
  # Crawl the three sources concurrently
  parallel: false
  # Bound the whole run, 0 for none
  timeout: 0s

logging:
  level: "info"
  file: ""

metrics:
  # Prometheus textfile written after every run
  textfile: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "brandscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return &exitError{code: exitFatal, err: fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to create configuration file: %w", err)}
	}

	printer.Success("Configuration file created: " + configPath)
	printer.Println("\nNext steps:")
	printer.Println("1. Edit the file, or store the token with 'brandscraper auth set-token'")
	printer.Println("2. Run 'brandscraper config validate' to check it")
	printer.Println("3. Run 'brandscraper scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to load configuration: %w", err)}
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to format configuration: %w", err)}
	}

	printer.Highlight("Effective configuration")
	printer.Println()
	printer.Printf("%s", data)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		printer.Error("Configuration is invalid")
		for _, problem := range problems(err) {
			printer.Printf("  - %s\n", problem)
		}
		return &exitError{code: exitFatal}
	}

	printer.Success("Configuration is valid")
	printer.Println("\nConfiguration summary:")
	printer.Table([][]string{
		{"Site", cfg.Site.BaseURL},
		{"Secret token", config.MaskSecret(cfg.Site.SecretToken)},
		{"Referer", cfg.RefererURL()},
		{"Output", cfg.Output.Path},
		{"Catalog pages", fmt.Sprintf("%d (strict: %t)", cfg.Catalog.MaxPages, cfg.Catalog.Strict)},
		{"Review page size", fmt.Sprintf("%d", cfg.Reviews.PageSize)},
		{"Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute)},
		{"Parallel", fmt.Sprintf("%t", cfg.Run.Parallel)},
	})
	return nil
}

// problems flattens an errors.Join tree into one line per problem
func problems(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, problems(e)...)
		}
		return out
	}
	return strings.Split(err.Error(), "\n")
}
