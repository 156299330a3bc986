// Package logger provides the structured logging interface used across brandscraper.
//
// It wraps zerolog. On a terminal the console output is colourised; when
// stderr is redirected every event is written as a JSON line. An optional
// log file always receives JSON lines.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("phase", "reviews")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "page":    3,
//	    "records": 20,
//	})
//
// TestLogger captures messages in memory so tests can assert on them.
package logger
