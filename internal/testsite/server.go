// Package testsite is an in-process stand-in for the crawled site. It serves
// the product listing, the authenticated testimonial feed and the GraphQL
// review connection from fixtures set by each test.
package testsite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultToken is the secret the server accepts unless SetToken is called
const DefaultToken = "secret123"

// Product is one product card. OmitTitle and OmitPrice render a malformed card.
type Product struct {
	Name      string
	Price     string
	OmitTitle bool
	OmitPrice bool
}

// Testimonial is one feed entry. An empty Author renders no identity widget.
type Testimonial struct {
	Text   string
	Author string
}

// Review is one GraphQL node. An empty Date omits the field.
type Review struct {
	Text string `json:"text"`
	Date string `json:"date,omitempty"`
}

// ReviewPage is one response of the review connection
type ReviewPage struct {
	Reviews     []Review
	EndCursor   string
	HasNextPage bool
	// Status overrides the 200 response when set
	Status int
	// RawBody replaces the JSON document when set
	RawBody string
}

// RecordedRequest is a request the server received
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is the mock site
type Server struct {
	server *httptest.Server

	mu           sync.RWMutex
	token        string
	products     map[int][]Product
	testimonials map[int][]Testimonial
	feedBodies   map[int]string
	reviewPages  []ReviewPage
	statuses     map[string]int
	delay        time.Duration
	requests     []RecordedRequest
}

// New starts a server with no fixtures. Every listing page is empty and the
// review connection has no pages.
func New() *Server {
	s := &Server{
		token:        DefaultToken,
		products:     make(map[int][]Product),
		testimonials: make(map[int][]Testimonial),
		feedBodies:   make(map[int]string),
		statuses:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/api/testimonials", s.handleTestimonials)
	mux.HandleFunc("/api/graphql", s.handleGraphQL)

	s.server = httptest.NewServer(s.record(mux))
	return s
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts down the server
func (s *Server) Close() {
	s.server.Close()
}

// SetToken changes the accepted secret token
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetProducts sets the cards shown on listing page p
func (s *Server) SetProducts(p int, products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p] = products
}

// SetTestimonials sets the entries returned for feed page p
func (s *Server) SetTestimonials(p int, testimonials ...Testimonial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testimonials[p] = testimonials
}

// SetFeedBody makes feed page p return body verbatim
func (s *Server) SetFeedBody(p int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedBodies[p] = body
}

// SetReviewPages sets the review connection. Page i+1 is served for the
// endCursor of page i; the first page is served for a null cursor.
func (s *Server) SetReviewPages(pages ...ReviewPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewPages = pages
}

// SetStatus forces a status for a request key: "/products?page=4",
// "/api/testimonials?page=2" or "/api/graphql"
func (s *Server) SetStatus(key string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[key] = code
}

// SetDelay delays every response by d, or until the client goes away
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the requests received so far
func (s *Server) Requests() []RecordedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the requests received for path
func (s *Server) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		delay := s.delay
		code, forced := s.statuses[requestKey(r)]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if forced {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestKey(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.Header.Get("x-secret-token") == s.token
}

func pageParam(r *http.Request) (int, bool) {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	return p, err == nil && p > 0
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParam(r)
	if !ok {
		p = 1
	}

	s.mu.RLock()
	products := s.products[p]
	s.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<html><body><div class=\"products\">\n")
	for _, prod := range products {
		b.WriteString("  <div class=\"product\">\n")
		if !prod.OmitTitle {
			fmt.Fprintf(&b, "    <h3><a href=\"#\">\n      %s\n    </a></h3>\n", html.EscapeString(prod.Name))
		}
		if !prod.OmitPrice {
			fmt.Fprintf(&b, "    <div class=\"price\"> %s </div>\n", html.EscapeString(prod.Price))
		}
		b.WriteString("  </div>\n")
	}
	b.WriteString("</div></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) handleTestimonials(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	p, ok := pageParam(r)
	if !ok {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	body, raw := s.feedBodies[p]
	testimonials, known := s.testimonials[p]
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if raw {
		_, _ = io.WriteString(w, body)
		return
	}
	if !known {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	for _, t := range testimonials {
		b.WriteString("<div class=\"testimonial\">\n")
		if t.Author != "" {
			fmt.Fprintf(&b, "  <identicon-svg username=\"%s\"></identicon-svg>\n", html.EscapeString(t.Author))
		}
		fmt.Fprintf(&b, "  <p class=\"text\">\n    %s\n  </p>\n", html.EscapeString(t.Text))
		b.WriteString("</div>\n")
	}
	_, _ = io.WriteString(w, b.String())
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables struct {
		First int     `json:"first"`
		After *string `json:"after"`
	} `json:"variables"`
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	pages := s.reviewPages
	s.mu.RUnlock()

	idx := 0
	if req.Variables.After != nil {
		idx = -1
		for i, page := range pages {
			if page.EndCursor == *req.Variables.After {
				idx = i + 1
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if idx < 0 || idx >= len(pages) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "unknown cursor"}},
		})
		return
	}

	page := pages[idx]
	if page.Status != 0 {
		w.WriteHeader(page.Status)
	}
	if page.RawBody != "" {
		_, _ = io.WriteString(w, page.RawBody)
		return
	}

	edges := make([]map[string]interface{}, 0, len(page.Reviews))
	for i, review := range page.Reviews {
		edges = append(edges, map[string]interface{}{
			"node":   review,
			"cursor": fmt.Sprintf("%s#%d", page.EndCursor, i),
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"reviews": map[string]interface{}{
				"edges": edges,
				"pageInfo": map[string]interface{}{
					"endCursor":   page.EndCursor,
					"hasNextPage": page.HasNextPage,
				},
			},
		},
	})
}
