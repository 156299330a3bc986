// Package retry re-runs operations that fail with transient transport errors.
//
// Only errors typed as transport failures by pkg/errors are retried by
// default; an HTTP status is never an error at this layer, so a 404 or a 500
// reaches the caller on the first attempt.
//
//	err := retry.Do(ctx, func() error {
//		resp, err = send(ctx)
//		return err
//	}, retry.FromConfig(cfg.Retry, log))
//
// FromConfig returns nil when retries are disabled, and Do with a nil Config
// runs the operation exactly once.
package retry
