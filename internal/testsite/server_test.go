package testsite

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postGraphQL(t *testing.T, s *Server, after interface{}) (int, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"query":     "query GetReviews",
		"variables": map[string]interface{}{"first": 20, "after": after},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL()+"/api/graphql", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("x-secret-token", DefaultToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestGraphQLWalksCursors(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed()

	_, first := postGraphQL(t, s, nil)
	info := first["data"].(map[string]interface{})["reviews"].(map[string]interface{})["pageInfo"].(map[string]interface{})
	assert.Equal(t, "cursor-2", info["endCursor"])
	assert.Equal(t, true, info["hasNextPage"])

	_, second := postGraphQL(t, s, "cursor-2")
	edges := second["data"].(map[string]interface{})["reviews"].(map[string]interface{})["edges"].([]interface{})
	require.Len(t, edges, 2)
	node := edges[1].(map[string]interface{})["node"].(map[string]interface{})
	assert.NotContains(t, node, "date")

	_, unknown := postGraphQL(t, s, "nope")
	assert.Contains(t, unknown, "errors")
}

func TestFeedRequiresToken(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed()

	resp, err := http.Get(s.URL() + "/api/testimonials?page=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedUnknownPageIs404(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed()

	req, _ := http.NewRequest(http.MethodGet, s.URL()+"/api/testimonials?page=3", nil)
	req.Header.Set("x-secret-token", DefaultToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestForcedStatusAndRecording(t *testing.T) {
	s := New()
	defer s.Close()
	s.SetStatus("/products?page=2", http.StatusBadGateway)

	resp, err := http.Get(s.URL() + "/products?page=2")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	reqs := s.RequestsTo("/products")
	require.Len(t, reqs, 1)
	assert.Equal(t, "page=2", reqs[0].Query)
}
