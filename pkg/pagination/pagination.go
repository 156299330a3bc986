// Package pagination drives any page-by-page upstream walk through a single
// loop. Each phase supplies a Source that knows how to fetch and interpret
// one page; Drive owns cancellation, pacing, the page limit and the
// bookkeeping of why the walk ended.
package pagination

import (
	"context"
	"fmt"
	"time"

	"brandscraper/pkg/logger"
	"brandscraper/pkg/metrics"
)

// Outcome classifies a single page fetch
type Outcome int

const (
	// OutcomePage means the page yielded records and the walk may continue
	OutcomePage Outcome = iota
	// OutcomeExhausted means the upstream signalled end of data
	OutcomeExhausted
	// OutcomeFailed means the page could not be fetched or interpreted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePage:
		return "page"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Step is what a Source reports for one page
type Step[T any, S any] struct {
	Outcome Outcome
	// Records are appended even when Outcome is OutcomeExhausted
	Records []T
	// Next is the state for the following call. It is kept for OutcomePage,
	// and for OutcomeExhausted when Advance is set.
	Next    S
	Advance bool
	Reason  string
	// Err is the cause of an OutcomeFailed step
	Err error
	// Fatal aborts the whole run instead of ending just this phase
	Fatal bool
}

// Page builds a continuing step
func Page[T any, S any](records []T, next S) Step[T, S] {
	return Step[T, S]{Outcome: OutcomePage, Records: records, Next: next}
}

// Exhausted builds a clean end-of-data step, keeping any final records
func Exhausted[T any, S any](reason string, records ...T) Step[T, S] {
	return Step[T, S]{Outcome: OutcomeExhausted, Records: records, Reason: reason}
}

// Last builds an end-of-data step that still carries the records and state
// of a final, successful page
func Last[T any, S any](reason string, records []T, next S) Step[T, S] {
	return Step[T, S]{Outcome: OutcomeExhausted, Records: records, Next: next, Advance: true, Reason: reason}
}

// Failed builds a best-effort end caused by err
func Failed[T any, S any](err error) Step[T, S] {
	return Step[T, S]{Outcome: OutcomeFailed, Err: err, Reason: err.Error()}
}

// Fatal builds a step that aborts the run
func Fatal[T any, S any](err error) Step[T, S] {
	return Step[T, S]{Outcome: OutcomeFailed, Err: err, Reason: err.Error(), Fatal: true}
}

// Source fetches and interprets one page given the current state
type Source[T any, S any] interface {
	Next(ctx context.Context, state S) Step[T, S]
}

// SourceFunc adapts a function to Source
type SourceFunc[T any, S any] func(ctx context.Context, state S) Step[T, S]

// Next calls f
func (f SourceFunc[T, S]) Next(ctx context.Context, state S) Step[T, S] {
	return f(ctx, state)
}

// Termination records why a walk ended
type Termination string

const (
	TerminationEndOfData Termination = "end_of_data"
	TerminationPageLimit Termination = "page_limit"
	TerminationFailed    Termination = "failed"
	TerminationCancelled Termination = "cancelled"
	TerminationFatal     Termination = "fatal"
)

// Incomplete reports whether the walk stopped before the upstream was drained
// for reasons other than the configured page limit
func (t Termination) Incomplete() bool {
	return t == TerminationFailed || t == TerminationCancelled || t == TerminationFatal
}

// Options tunes Drive
type Options struct {
	// Name labels logs and metrics, e.g. "reviews"
	Name string
	// MaxPages stops the walk after this many fetches; 0 means unbounded
	MaxPages int
	// Delay paces fetches after a successful page
	Delay   time.Duration
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Result is the outcome of a whole walk
type Result[T any, S any] struct {
	Records []T
	// Pages counts fetches attempted, including the terminating one
	Pages int
	// FinalState is the state after the last successful page
	FinalState  S
	Termination Termination
	Reason      string
	// Err is set for TerminationFailed, TerminationCancelled and TerminationFatal
	Err error
}

// Drive runs src from initial until it reports exhaustion or failure, the
// page limit is reached, or ctx is done. Only a fatal step produces a non-nil
// error; every other ending is described by the Result.
func Drive[T any, S any](ctx context.Context, src Source[T, S], initial S, opts Options) (Result[T, S], error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("phase", opts.Name)

	res := Result[T, S]{Records: []T{}, FinalState: initial}
	state := initial

	finish := func(t Termination, reason string, err error) {
		res.Termination = t
		res.Reason = reason
		res.Err = err
		opts.Metrics.ObserveTermination(opts.Name, string(t))

		fields := map[string]interface{}{
			"termination": string(t),
			"reason":      reason,
			"pages":       res.Pages,
			"records":     len(res.Records),
		}
		switch t {
		case TerminationEndOfData:
			log.InfoWithFields("phase finished", fields)
		case TerminationPageLimit, TerminationCancelled:
			log.WarnWithFields("phase stopped early", fields)
		default:
			log.WithError(err).ErrorWithFields("phase failed", fields)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			finish(TerminationCancelled, "context done before next page", err)
			return res, nil
		}
		if opts.MaxPages > 0 && res.Pages >= opts.MaxPages {
			finish(TerminationPageLimit, fmt.Sprintf("reached max pages (%d)", opts.MaxPages), nil)
			return res, nil
		}

		res.Pages++
		step := src.Next(ctx, state)
		res.Records = append(res.Records, step.Records...)
		if len(step.Records) > 0 {
			opts.Metrics.ObservePage(opts.Name, len(step.Records))
		}

		log.DebugWithFields("page fetched", map[string]interface{}{
			"page":    res.Pages,
			"outcome": step.Outcome.String(),
			"records": len(step.Records),
		})

		switch step.Outcome {
		case OutcomeExhausted:
			if step.Advance {
				res.FinalState = step.Next
			}
			finish(TerminationEndOfData, step.Reason, nil)
			return res, nil
		case OutcomeFailed:
			if step.Fatal {
				finish(TerminationFatal, step.Reason, step.Err)
				return res, fmt.Errorf("%s phase: %w", opts.Name, step.Err)
			}
			if ctx.Err() != nil {
				finish(TerminationCancelled, step.Reason, step.Err)
				return res, nil
			}
			finish(TerminationFailed, step.Reason, step.Err)
			return res, nil
		}

		state = step.Next
		res.FinalState = state

		if opts.Delay > 0 {
			timer := time.NewTimer(opts.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				finish(TerminationCancelled, "context done while pacing", ctx.Err())
				return res, nil
			case <-timer.C:
			}
		}
	}
}
