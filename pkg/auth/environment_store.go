package auth

import (
	"os"
	"time"
)

// TokenEnvVar is read by EnvironmentStore for any site
const TokenEnvVar = "BRANDSCRAPER_SECRET_TOKEN"

// EnvironmentStore implements TokenStore over TokenEnvVar. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Name identifies the backend
func (e *EnvironmentStore) Name() string { return "environment" }

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token for any site
func (e *EnvironmentStore) Retrieve(site string) (*Token, error) {
	value := os.Getenv(TokenEnvVar)
	if value == "" {
		return nil, ErrTokenNotFound
	}
	return &Token{Site: site, Value: value, LastModified: time.Now()}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(site string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set
func (e *EnvironmentStore) Exists(site string) bool {
	return os.Getenv(TokenEnvVar) != ""
}
