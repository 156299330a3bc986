package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	errs "brandscraper/pkg/errors"
)

// EnvPrefix prefixes every environment variable the crawler reads
const EnvPrefix = "BRANDSCRAPER_"

// Config holds all configuration options for the crawler
type Config struct {
	Site      SiteConfig      `yaml:"site" json:"site"`
	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Feed      FeedConfig      `yaml:"feed" json:"feed"`
	Reviews   ReviewsConfig   `yaml:"reviews" json:"reviews"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Run       RunConfig       `yaml:"run" json:"run"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// SiteConfig describes the upstream site and the header set sent on authenticated calls
type SiteConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	SecretToken string        `yaml:"secret_token" json:"secret_token"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Referer     string        `yaml:"referer" json:"referer"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// CatalogConfig controls the product listing walk
type CatalogConfig struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// Strict makes a product without title or price abort the run.
	Strict bool `yaml:"strict" json:"strict"`
}

// FeedConfig controls the testimonial feed walk
type FeedConfig struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// ReviewsConfig controls the GraphQL cursor walk
type ReviewsConfig struct {
	PageSize  int           `yaml:"page_size" json:"page_size"`
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`
	MaxPages  int           `yaml:"max_pages" json:"max_pages"`
}

// OutputConfig holds the snapshot location
type OutputConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RateLimitConfig holds rate limiting configuration. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds retry configuration for transport failures
type RetryConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// RunConfig holds orchestration settings
type RunConfig struct {
	Parallel bool          `yaml:"parallel" json:"parallel"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after every run when set.
	Textfile string `yaml:"textfile" json:"textfile"`
}

// DefaultBaseURL is the upstream site crawled when nothing else is configured
const DefaultBaseURL = "https://web-scraping.dev"

// DefaultSecretToken is the public demo token web-scraping.dev accepts
const DefaultSecretToken = "secret123"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     DefaultBaseURL,
			SecretToken: DefaultSecretToken,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/119.0.0.0 Safari/537.36",
			Referer:     "",
			Timeout:     30 * time.Second,
		},
		Catalog: CatalogConfig{
			MaxPages: 6,
			Strict:   true,
		},
		Feed: FeedConfig{
			MaxPages: 500,
		},
		Reviews: ReviewsConfig{
			PageSize:  20,
			PageDelay: 100 * time.Millisecond,
			MaxPages:  1000,
		},
		Output: OutputConfig{
			Path: "data.json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Retry: RetryConfig{
			Enabled:        false,
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Run: RunConfig{
			Parallel: false,
			Timeout:  0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// RefererURL returns the configured referer or the testimonials page of the base site
func (c *Config) RefererURL() string {
	if c.Site.Referer != "" {
		return c.Site.Referer
	}
	return strings.TrimRight(c.Site.BaseURL, "/") + "/testimonials"
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var problems []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}
	setBool := func(name string, dst *bool) {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}
	setDuration := func(name string, dst *time.Duration) {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = d
	}

	setString("BASE_URL", &c.Site.BaseURL)
	setString("SECRET_TOKEN", &c.Site.SecretToken)
	setString("USER_AGENT", &c.Site.UserAgent)
	setString("REFERER", &c.Site.Referer)
	setDuration("TIMEOUT", &c.Site.Timeout)

	setInt("CATALOG_MAX_PAGES", &c.Catalog.MaxPages)
	setBool("CATALOG_STRICT", &c.Catalog.Strict)
	setInt("FEED_MAX_PAGES", &c.Feed.MaxPages)
	setInt("REVIEWS_PAGE_SIZE", &c.Reviews.PageSize)
	setDuration("REVIEWS_PAGE_DELAY", &c.Reviews.PageDelay)
	setInt("REVIEWS_MAX_PAGES", &c.Reviews.MaxPages)

	setString("OUTPUT", &c.Output.Path)
	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setBool("RETRY_ENABLED", &c.Retry.Enabled)
	setInt("RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setBool("PARALLEL", &c.Run.Parallel)
	setDuration("RUN_TIMEOUT", &c.Run.Timeout)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)
	setString("METRICS_TEXTFILE", &c.Metrics.Textfile)

	if err := errors.Join(problems...); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "invalid environment")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range SearchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// SearchPaths lists the config file locations tried when no path is given, in order
func SearchPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		"brandscraper.yaml",
		"brandscraper.yml",
		".brandscraper.yaml",
		".brandscraper.yml",
		filepath.Join(home, ".config", "brandscraper", "config.yaml"),
		filepath.Join(home, ".brandscraper.yaml"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var problems []error

	if c.Site.BaseURL == "" {
		problems = append(problems, errors.New("site base URL is required"))
	} else if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Errorf("site base URL %q is not an absolute URL", c.Site.BaseURL))
	}
	if c.Site.SecretToken == "" {
		problems = append(problems, errors.New("site secret token is required"))
	}
	if c.Site.Timeout < 0 {
		problems = append(problems, errors.New("site timeout cannot be negative"))
	}

	if c.Catalog.MaxPages <= 0 {
		problems = append(problems, errors.New("catalog max pages must be positive"))
	}
	if c.Feed.MaxPages < 0 {
		problems = append(problems, errors.New("feed max pages cannot be negative"))
	}
	if c.Reviews.PageSize <= 0 {
		problems = append(problems, errors.New("reviews page size must be positive"))
	}
	if c.Reviews.PageDelay < 0 {
		problems = append(problems, errors.New("reviews page delay cannot be negative"))
	}
	if c.Reviews.MaxPages < 0 {
		problems = append(problems, errors.New("reviews max pages cannot be negative"))
	}

	if c.Output.Path == "" {
		problems = append(problems, errors.New("output path is required"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		problems = append(problems, errors.New("requests per minute cannot be negative"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
			problems = append(problems, errors.New("retry max attempts must be between 1 and 10"))
		}
		if c.Retry.Multiplier < 1 {
			problems = append(problems, errors.New("retry multiplier must be at least 1"))
		}
	}

	if c.Run.Timeout < 0 {
		problems = append(problems, errors.New("run timeout cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		problems = append(problems, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if err := errors.Join(problems...); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "invalid configuration")
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Masked returns a copy with the secret token obscured, for display
func (c *Config) Masked() *Config {
	out := *c
	out.Site.SecretToken = MaskSecret(c.Site.SecretToken)
	return &out
}

// MaskSecret masks all but the first and last two characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Site.BaseURL = v
	}
	if v, ok := flags["token"].(string); ok && v != "" {
		c.Site.SecretToken = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Path = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["parallel"].(bool); ok {
		c.Run.Parallel = v
	}
	if v, ok := flags["lenient"].(bool); ok && v {
		c.Catalog.Strict = false
	}
	if v, ok := flags["feed-max-pages"].(int); ok && v > 0 {
		c.Feed.MaxPages = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Run.Timeout = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".brandscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
