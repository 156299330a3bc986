package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"brandscraper/pkg/snapshot"
)

// PassphraseEnvVar overrides the key file generated beside the tokens
const PassphraseEnvVar = "BRANDSCRAPER_PASSPHRASE"

const (
	tokenExt    = ".token"
	keyFileName = ".key"
	fileVersion = 1

	saltLen   = 16
	keyLen    = 32
	kdfRounds = 100000
)

// host:port keys become plain file names
var siteFileName = strings.NewReplacer(":", "_", "/", "_", `\`, "_")

// FileStore keeps one sealed file per site under a directory. Every file has
// its own salt, and the site is bound into the seal as associated data, so a
// file copied under another site's name does not open.
type FileStore struct {
	dir        string
	passphrase []byte
	mu         sync.RWMutex
}

// sealedToken is the on-disk form of one site's token
type sealedToken struct {
	Version int    `json:"version"`
	Site    string `json:"site"`
	Salt    []byte `json:"salt"`
	Sealed  []byte `json:"sealed"`
}

// NewFileStore opens the token directory, creating it and its key file on
// first use
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	passphrase, err := loadPassphrase(dir)
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, passphrase: passphrase}, nil
}

// Name identifies the backend
func (f *FileStore) Name() string { return "token-file" }

func (f *FileStore) path(site string) string {
	return filepath.Join(f.dir, siteFileName.Replace(site)+tokenExt)
}

// Store seals token and replaces the site's file
func (f *FileStore) Store(token *Token) error {
	if token == nil || token.Site == "" {
		return ErrInvalidToken
	}

	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := f.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	data, err := json.MarshalIndent(sealedToken{
		Version: fileVersion,
		Site:    token.Site,
		Salt:    salt,
		Sealed:  aead.Seal(nonce, nonce, plaintext, []byte(token.Site)),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return snapshot.WriteFile(f.path(token.Site), data, 0600)
}

// Retrieve opens the site's file
func (f *FileStore) Retrieve(site string) (*Token, error) {
	if site == "" {
		return nil, ErrInvalidToken
	}

	f.mu.RLock()
	data, err := os.ReadFile(f.path(site))
	f.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var doc sealedToken
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt token file for %s: %w", site, err)
	}
	if doc.Version != fileVersion {
		return nil, fmt.Errorf("token file for %s has unsupported version %d", site, doc.Version)
	}

	aead, err := f.aead(doc.Salt)
	if err != nil {
		return nil, err
	}
	if len(doc.Sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("token file for %s is truncated", site)
	}
	nonce, body := doc.Sealed[:aead.NonceSize()], doc.Sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, body, []byte(site))
	if err != nil {
		return nil, fmt.Errorf("failed to open token for %s (wrong passphrase?): %w", site, err)
	}

	var token Token
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, fmt.Errorf("corrupt token for %s: %w", site, err)
	}
	return &token, nil
}

// Delete removes the site's file
func (f *FileStore) Delete(site string) error {
	if site == "" {
		return ErrInvalidToken
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(site))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrTokenNotFound
	}
	return err
}

// Exists reports whether a readable token is stored for site
func (f *FileStore) Exists(site string) bool {
	token, err := f.Retrieve(site)
	return err == nil && token != nil
}

// aead derives the per-file AES-GCM cipher from the passphrase and salt
func (f *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(f.passphrase, salt, kdfRounds, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// loadPassphrase prefers the environment, then the key file in dir, and
// writes a fresh random key file when neither exists
func loadPassphrase(dir string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnvVar); pass != "" {
		return []byte(pass), nil
	}

	keyPath := filepath.Join(dir, keyFileName)
	key, err := os.ReadFile(keyPath)
	switch {
	case err == nil && len(key) > 0:
		return key, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	key = []byte(base64.RawURLEncoding.EncodeToString(raw))
	if err := snapshot.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to save key file: %w", err)
	}
	return key, nil
}
