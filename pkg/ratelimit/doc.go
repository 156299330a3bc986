// Package ratelimit paces outbound requests to the crawled site.
//
// SlidingWindow counts requests inside a moving window, so a burst at the
// end of one minute cannot be followed by a full burst at the start of the
// next. Wait blocks until a request is allowed or the context is done.
//
//	limiter := ratelimit.NewSlidingWindow(120, time.Minute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // cancelled while waiting
//	}
//
// FromRequestsPerMinute returns nil for a non-positive rate; callers treat a
// nil Limiter as unlimited.
package ratelimit
