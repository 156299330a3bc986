package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandscraper/pkg/config"
	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/logger"
)

func transportErr() error {
	return errs.Wrap(errs.ErrorTypeTransport, errors.New("connection refused"), "GET /products")
}

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: 5 * time.Millisecond},
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoRetriesTransportErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transportErr()
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return transportErr()
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	cases := map[string]error{
		"decode":  errs.New(errs.ErrorTypeDecode, "bad json"),
		"parsing": errs.New(errs.ErrorTypeParsing, "missing price"),
		"untyped": errors.New("plain"),
	}

	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), func() error {
				attempts++
				return want
			}, fastConfig(5))

			assert.Same(t, want, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestDoWithNilConfigRunsOnce(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return transportErr()
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return transportErr()
	}, &Config{MaxAttempts: 10, Backoff: &ConstantBackoff{Delay: time.Second}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 2, attempts)
}

func TestDoLogsAndCallsOnRetry(t *testing.T) {
	log := logger.NewTestLogger()
	var seen []int

	cfg := fastConfig(3)
	cfg.Logger = log
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	attempts := 0
	require.NoError(t, Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transportErr()
		}
		return nil
	}, cfg))

	assert.Equal(t, []int{1, 2}, seen)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
	assert.True(t, log.HasMessage("operation succeeded after retry"))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", transportErr()
		}
		return "success", nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestFromConfig(t *testing.T) {
	rc := config.DefaultConfig().Retry
	assert.Nil(t, FromConfig(rc, nil), "disabled by default")

	rc.Enabled = true
	rc.MaxAttempts = 4
	cfg := FromConfig(rc, nil)
	require.NotNil(t, cfg)
	assert.Equal(t, 4, cfg.MaxAttempts)

	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, rc.InitialBackoff, eb.BaseDelay)
	assert.Equal(t, rc.MaxBackoff, eb.MaxDelay)
}
