package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "brandscraper/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultBaseURL, cfg.Site.BaseURL)
	assert.Equal(t, "secret123", cfg.Site.SecretToken)
	assert.Equal(t, 6, cfg.Catalog.MaxPages)
	assert.True(t, cfg.Catalog.Strict)
	assert.Equal(t, 20, cfg.Reviews.PageSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Reviews.PageDelay)
	assert.Equal(t, "data.json", cfg.Output.Path)
	assert.False(t, cfg.Run.Parallel)
	assert.NoError(t, cfg.Validate())
}

func TestRefererURL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://web-scraping.dev/testimonials", cfg.RefererURL())

	cfg.Site.BaseURL = "http://127.0.0.1:8080/"
	assert.Equal(t, "http://127.0.0.1:8080/testimonials", cfg.RefererURL())

	cfg.Site.Referer = "http://example.test/ref"
	assert.Equal(t, "http://example.test/ref", cfg.RefererURL())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BRANDSCRAPER_BASE_URL", "http://mock.local")
	t.Setenv("BRANDSCRAPER_SECRET_TOKEN", "tok-from-env")
	t.Setenv("BRANDSCRAPER_FEED_MAX_PAGES", "12")
	t.Setenv("BRANDSCRAPER_REVIEWS_PAGE_DELAY", "250ms")
	t.Setenv("BRANDSCRAPER_CATALOG_STRICT", "false")
	t.Setenv("BRANDSCRAPER_PARALLEL", "true")
	t.Setenv("BRANDSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "http://mock.local", cfg.Site.BaseURL)
	assert.Equal(t, "tok-from-env", cfg.Site.SecretToken)
	assert.Equal(t, 12, cfg.Feed.MaxPages)
	assert.Equal(t, 250*time.Millisecond, cfg.Reviews.PageDelay)
	assert.False(t, cfg.Catalog.Strict)
	assert.True(t, cfg.Run.Parallel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("BRANDSCRAPER_FEED_MAX_PAGES", "many")
	t.Setenv("BRANDSCRAPER_REVIEWS_PAGE_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRANDSCRAPER_FEED_MAX_PAGES")
	assert.Contains(t, err.Error(), "BRANDSCRAPER_REVIEWS_PAGE_DELAY")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
	assert.Equal(t, 500, cfg.Feed.MaxPages)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "relative base url", mutate: func(c *Config) { c.Site.BaseURL = "web-scraping.dev" }, wantErr: "not an absolute URL"},
		{name: "missing token", mutate: func(c *Config) { c.Site.SecretToken = "" }, wantErr: "secret token"},
		{name: "zero catalog pages", mutate: func(c *Config) { c.Catalog.MaxPages = 0 }, wantErr: "catalog max pages"},
		{name: "zero page size", mutate: func(c *Config) { c.Reviews.PageSize = 0 }, wantErr: "page size"},
		{name: "negative delay", mutate: func(c *Config) { c.Reviews.PageDelay = -time.Second }, wantErr: "page delay"},
		{name: "empty output", mutate: func(c *Config) { c.Output.Path = "" }, wantErr: "output path"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
		{name: "retry attempts out of range", mutate: func(c *Config) {
			c.Retry.Enabled = true
			c.Retry.MaxAttempts = 0
		}, wantErr: "retry max attempts"},
		{name: "unbounded feed allowed", mutate: func(c *Config) { c.Feed.MaxPages = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.SecretToken = ""
	cfg.Output.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret token")
	assert.Contains(t, err.Error(), "output path")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"base-url":       "http://flags.local",
		"output":         "out/snapshot.json",
		"parallel":       true,
		"lenient":        true,
		"feed-max-pages": 3,
		"timeout":        2 * time.Minute,
	})

	assert.Equal(t, "http://flags.local", cfg.Site.BaseURL)
	assert.Equal(t, "out/snapshot.json", cfg.Output.Path)
	assert.True(t, cfg.Run.Parallel)
	assert.False(t, cfg.Catalog.Strict)
	assert.Equal(t, 3, cfg.Feed.MaxPages)
	assert.Equal(t, 2*time.Minute, cfg.Run.Timeout)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "brandscraper.yaml")

	cfg := DefaultConfig()
	cfg.Site.BaseURL = "http://saved.local"
	cfg.Reviews.PageSize = 5
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "http://saved.local", loaded.Site.BaseURL)
	assert.Equal(t, 5, loaded.Reviews.PageSize)
}

func TestLoadFromFilePartialYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  max_pages: 7\nreviews:\n  page_delay: 1s\n"), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, 7, cfg.Feed.MaxPages)
	assert.Equal(t, time.Second, cfg.Reviews.PageDelay)
	assert.Equal(t, 6, cfg.Catalog.MaxPages)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brandscraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  base_url: http://file.local\noutput:\n  path: file.json\n"), 0644))

	t.Setenv("BRANDSCRAPER_OUTPUT", "env.json")

	cfg, err := Load(path, map[string]interface{}{"base-url": "http://flag.local"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag.local", cfg.Site.BaseURL)
	assert.Equal(t, "env.json", cfg.Output.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  max_pages: 0\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "******", MaskSecret("abc"))
	assert.Equal(t, "se*****23", MaskSecret("secret123"))

	cfg := DefaultConfig()
	masked := cfg.Masked()
	assert.Equal(t, "se*****23", masked.Site.SecretToken)
	assert.Equal(t, "secret123", cfg.Site.SecretToken)
}
