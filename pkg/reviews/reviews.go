// Package reviews drives the relay-style GraphQL review connection. Each
// request carries the page size and the endCursor of the previous page; the
// walk ends when pageInfo.hasNextPage is false, when a page has no edges, or
// on the first transport or decode failure.
package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"brandscraper/pkg/client"
	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/models"
	"brandscraper/pkg/pagination"
)

// Phase is the name used in logs and metrics
const Phase = "reviews"

// Query is the GraphQL document sent on every page
const Query = `query GetReviews($first: Int, $after: String) {
  reviews(first: $first, after: $after) {
    edges {
      node {
        text
        date
      }
      cursor
    }
    pageInfo {
      endCursor
      hasNextPage
    }
  }
}`

// CursorState drives the walk. It is never persisted.
type CursorState struct {
	// After is the endCursor of the last page; nil fetches from the beginning
	After   *string
	HasNext bool
}

// Cursor returns After or "" when unset
func (s CursorState) Cursor() string {
	if s.After == nil {
		return ""
	}
	return *s.After
}

// Poster is the part of the HTTP client the review walk needs
type Poster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (*client.Response, error)
}

// Source fetches one page of the review connection per call
type Source struct {
	poster   Poster
	endpoint string
	headers  map[string]string
	pageSize int
	logger   logger.Logger
}

// NewSource creates a review source posting to {baseURL}/api/graphql
func NewSource(p Poster, baseURL string, headers map[string]string, pageSize int, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Source{
		poster:   p,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/graphql",
		headers:  headers,
		pageSize: pageSize,
		logger:   log.WithField("phase", Phase),
	}
}

type request struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

type variables struct {
	First int     `json:"first"`
	After *string `json:"after"`
}

type response struct {
	Data *struct {
		Reviews *connection `json:"reviews"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type connection struct {
	Edges []struct {
		Node   *node  `json:"node"`
		Cursor string `json:"cursor"`
	} `json:"edges"`
	PageInfo struct {
		EndCursor   *string `json:"endCursor"`
		HasNextPage bool    `json:"hasNextPage"`
	} `json:"pageInfo"`
}

type node struct {
	Text *string `json:"text"`
	Date *string `json:"date"`
}

// record applies the defaulting rules: a missing or null text is "", a
// missing or null date is models.DefaultReviewDate
func (n *node) record() models.ReviewRecord {
	r := models.ReviewRecord{Date: models.DefaultReviewDate}
	if n == nil {
		return r
	}
	if n.Text != nil {
		r.Text = *n.Text
	}
	if n.Date != nil {
		r.Date = *n.Date
	}
	return r
}

type step = pagination.Step[models.ReviewRecord, CursorState]

// Next fetches the page after state.After
func (s *Source) Next(ctx context.Context, state CursorState) step {
	payload := request{
		Query:     Query,
		Variables: variables{First: s.pageSize, After: state.After},
	}

	resp, err := s.poster.PostJSON(ctx, s.endpoint, s.headers, payload)
	if err != nil {
		return pagination.Failed[models.ReviewRecord, CursorState](err)
	}
	if !resp.OK() {
		statusErr := errs.New(errs.ErrorTypeStatus, "graphql endpoint returned status %d", resp.Status)
		statusErr.Code = resp.Status
		return pagination.Failed[models.ReviewRecord, CursorState](statusErr)
	}

	conn, err := s.decode(resp.Body)
	if err != nil {
		return pagination.Failed[models.ReviewRecord, CursorState](err)
	}
	if conn == nil || len(conn.Edges) == 0 {
		return pagination.Exhausted[models.ReviewRecord, CursorState]("page has no edges")
	}

	records := make([]models.ReviewRecord, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		records = append(records, e.Node.record())
	}

	next := CursorState{After: conn.PageInfo.EndCursor, HasNext: conn.PageInfo.HasNextPage}
	switch {
	case !next.HasNext:
		return pagination.Last("hasNextPage is false", records, next)
	case next.After == nil:
		return pagination.Last("hasNextPage without endCursor", records, next)
	}
	return pagination.Page(records, next)
}

func (s *Source) decode(body []byte) (*connection, error) {
	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDecode, err, "failed to decode graphql response")
	}

	if len(out.Errors) > 0 {
		messages := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			messages = append(messages, e.Message)
		}
		if out.Data == nil || out.Data.Reviews == nil {
			return nil, errs.New(errs.ErrorTypeDecode, "graphql errors: %s", strings.Join(messages, "; "))
		}
		s.logger.WarnWithFields("graphql response carried errors alongside data", map[string]interface{}{
			"errors": messages,
		})
	}

	if out.Data == nil {
		return nil, nil
	}
	return out.Data.Reviews, nil
}

// InitialState is the state of a walk from the beginning
func InitialState() CursorState {
	return CursorState{HasNext: true}
}

// Collect walks the connection from the beginning. The returned FinalState
// holds the last endCursor received.
func Collect(ctx context.Context, src *Source, opts pagination.Options) (pagination.Result[models.ReviewRecord, CursorState], error) {
	if opts.Name == "" {
		opts.Name = Phase
	}
	return pagination.Drive[models.ReviewRecord, CursorState](ctx, src, InitialState(), opts)
}

// String is used in logs
func (s CursorState) String() string {
	if s.After == nil {
		return fmt.Sprintf("after=<nil> hasNext=%t", s.HasNext)
	}
	return fmt.Sprintf("after=%s hasNext=%t", *s.After, s.HasNext)
}
