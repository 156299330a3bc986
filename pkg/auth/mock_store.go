package auth

import (
	"sync"
)

// MockStore implements TokenStore in memory for tests
type MockStore struct {
	tokens map[string]*Token
	mu     sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates a new mock token store
func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]*Token)}
}

// Name identifies the backend
func (m *MockStore) Name() string { return "mock" }

// Store saves a copy of token
func (m *MockStore) Store(token *Token) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if token == nil || token.Site == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tokenCopy := *token
	m.tokens[token.Site] = &tokenCopy
	return nil
}

// Retrieve returns a copy of the stored token
func (m *MockStore) Retrieve(site string) (*Token, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	token, exists := m.tokens[site]
	if !exists {
		return nil, ErrTokenNotFound
	}
	tokenCopy := *token
	return &tokenCopy, nil
}

// Delete removes the token for site
func (m *MockStore) Delete(site string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[site]; !exists {
		return ErrTokenNotFound
	}
	delete(m.tokens, site)
	return nil
}

// Exists checks if a token exists for site
func (m *MockStore) Exists(site string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.tokens[site]
	return exists
}

// Count returns the number of stored tokens
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
