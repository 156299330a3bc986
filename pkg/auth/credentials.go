package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Token is the shared secret sent as x-secret-token to one site
type Token struct {
	// Site is the host the token belongs to, e.g. "web-scraping.dev"
	Site         string    `json:"site"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is the interface for storing and retrieving tokens
type TokenStore interface {
	// Name identifies the backend in status output
	Name() string
	Store(token *Token) error
	Retrieve(site string) (*Token, error)
	Delete(site string) error
	Exists(site string) bool
}

// Manager handles token storage with fallback mechanisms
type Manager struct {
	stores []TokenStore
}

// NewManager creates a token manager over the system keychain, sealed token
// files and the environment, in that order
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileStore, err := NewFileStore(filepath.Join(configDir, "tokens"))
	if err != nil {
		return nil, fmt.Errorf("failed to create token file store: %w", err)
	}
	stores = append(stores, fileStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// SiteKey normalises a base URL or host to the key tokens are stored under
func SiteKey(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	return strings.ToLower(strings.TrimRight(baseURL, "/"))
}

// Store saves the token using the first store that accepts it
func (m *Manager) Store(token *Token) error {
	if token == nil || token.Site == "" {
		return errors.New("site is required")
	}
	if token.Value == "" {
		return errors.New("token value is required")
	}

	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return errors.New("no available token stores")
}

// Retrieve gets the token from the first store that has it, and names that store
func (m *Manager) Retrieve(site string) (*Token, string, error) {
	for _, store := range m.stores {
		if token, err := store.Retrieve(site); err == nil && token != nil {
			return token, store.Name(), nil
		}
	}
	return nil, "", fmt.Errorf("%w for site: %s", ErrTokenNotFound, site)
}

// Delete removes the token from every writable store
func (m *Manager) Delete(site string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(site)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for site: %s", ErrTokenNotFound, site)
	}
	return nil
}

// StoreStatus reports whether one backend holds a token for a site
type StoreStatus struct {
	Store  string
	Exists bool
}

// Status reports every backend's view of site
func (m *Manager) Status(site string) []StoreStatus {
	out := make([]StoreStatus, 0, len(m.stores))
	for _, store := range m.stores {
		out = append(out, StoreStatus{Store: store.Name(), Exists: store.Exists(site)})
	}
	return out
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "brandscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "brandscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "brandscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "brandscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Errors
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)
