package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"brandscraper/pkg/config"
	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/metrics"
	"brandscraper/pkg/ratelimit"
	"brandscraper/pkg/retry"
)

// Request describes one upstream HTTP exchange
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the raw outcome of a request. Status is never turned into an
// error here; callers decide what a non-2xx code means for them.
type Response struct {
	Status   int
	Body     []byte
	Duration time.Duration
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return errs.IsSuccessStatus(r.Status)
}

// Client performs requests against the crawled site
type Client struct {
	http    *resty.Client
	limiter ratelimit.Limiter
	retry   *retry.Config
	metrics *metrics.Metrics
	logger  logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLimiter waits on l before every request. A nil limiter disables pacing.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry retries transport failures according to cfg. nil disables retries.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithMetrics records every exchange in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

// New creates a client. timeout bounds a single exchange; zero means none.
func New(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetLogger(restyLogger{log: log.WithField("component", "resty")})

	c := &Client{
		http:   httpClient,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig wires a client with the limiter, retry policy and timeout
// from cfg
func NewFromConfig(cfg *config.Config, log logger.Logger, m *metrics.Metrics) *Client {
	return New(cfg.Site.Timeout, log,
		WithLimiter(ratelimit.FromRequestsPerMinute(cfg.RateLimit.RequestsPerMinute)),
		WithRetry(retry.FromConfig(cfg.Retry, log)),
		WithMetrics(m),
	)
}

// AuthHeaders builds the header set sent to the authenticated endpoints
func AuthHeaders(cfg *config.Config) map[string]string {
	return map[string]string{
		"x-secret-token": cfg.Site.SecretToken,
		"User-Agent":     cfg.Site.UserAgent,
		"Referer":        cfg.RefererURL(),
		"Content-Type":   "application/json",
	}
}

// Fetch sends req and returns the response, or a transport-typed error when
// no response was obtained
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	return retry.DoWithResult(ctx, func() (*Response, error) {
		if err := c.wait(ctx, req); err != nil {
			return nil, err
		}
		return c.do(ctx, req)
	}, c.retry)
}

// wait paces every attempt, retries included
func (c *Client) wait(ctx context.Context, req Request) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeTransport, err, "%s %s: waiting for rate limiter", req.Method, req.URL)
	}
	return nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Fetch(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
}

// PostJSON marshals payload and POSTs it as application/json
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDecode, err, "failed to encode request body")
	}

	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	h["Content-Type"] = "application/json"

	return c.Fetch(ctx, Request{Method: http.MethodPost, URL: url, Headers: h, Body: body})
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.http.R().SetContext(ctx).SetHeaders(req.Headers)
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": method,
		"url":    req.URL,
	})

	start := time.Now()
	resp, err := r.Execute(method, req.URL)
	duration := time.Since(start)

	if err != nil {
		c.metrics.ObserveRequest(method, 0, duration)
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      req.URL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeTransport, err, "%s %s", method, req.URL)
	}

	c.metrics.ObserveRequest(method, resp.StatusCode(), duration)
	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"url":      req.URL,
		"status":   resp.StatusCode(),
		"bytes":    len(resp.Body()),
		"duration": duration,
	})

	return &Response{
		Status:   resp.StatusCode(),
		Body:     resp.Body(),
		Duration: duration,
	}, nil
}

// restyLogger routes resty's internal warnings into the crawler logger
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
