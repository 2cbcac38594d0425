// Package credentials persists the backend connection settings.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/guillermoamaral/VSCside/internal/host"
)

// Keys of the stored settings.
const (
	KeyBackendURL = "backendURL"
	KeyDeveloper  = "developer"
)

// ErrMissingCredentials is returned when no connection has been configured.
var ErrMissingCredentials = errors.New("Missing credentials")

// DefaultPath returns ~/.webside/credentials.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".webside", "credentials.yaml")
}

// FileStore is a host.CredentialStore backed by a YAML file.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

var _ host.CredentialStore = (*FileStore)(nil)

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns a stored value.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value and writes the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.save()
}

// Clear removes every value and the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	// Owner only
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Stored returns the configured backend URL and developer.
func Stored(store host.CredentialStore) (url, developer string, err error) {
	url, ok1 := store.Get(KeyBackendURL)
	developer, ok2 := store.Get(KeyDeveloper)
	if !ok1 || !ok2 || url == "" || developer == "" {
		return "", "", ErrMissingCredentials
	}
	return url, developer, nil
}

// Connect stores a new connection. Empty input or settings equal to the
// stored ones leave the store untouched and report false.
func Connect(store host.CredentialStore, url, developer string) (bool, error) {
	if url == "" || developer == "" {
		return false, nil
	}
	oldURL, _ := store.Get(KeyBackendURL)
	oldDev, _ := store.Get(KeyDeveloper)
	if oldURL == url && oldDev == developer {
		return false, nil
	}
	if err := store.Clear(); err != nil {
		return false, err
	}
	if err := store.Set(KeyBackendURL, url); err != nil {
		return false, err
	}
	if err := store.Set(KeyDeveloper, developer); err != nil {
		return false, err
	}
	return true, nil
}
