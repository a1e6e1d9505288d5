// Package store provides durable local state for the gateway.
// Each piece of state lives under a fixed key mapped to a JSON file in the
// data directory. Reads that fail to open or parse fall back to documented
// defaults instead of erroring, so persistence problems never leak into
// application state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Storage keys. Each key maps to <key>.json inside the data directory.
const (
	KeyWatchlist = "watchlist"
	KeyTheme     = "theme"
)

// DefaultTheme is returned when no theme preference has been saved.
const DefaultTheme = "dark"

// DefaultWatchlist is returned when no watchlist has been saved.
var DefaultWatchlist = []string{"EUR_USD", "GBP_USD", "USD_JPY"}

// Store reads and writes local state files under a single data directory.
// Safe for concurrent use.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *logrus.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Watchlist returns the persisted watchlist, or DefaultWatchlist when the
// file is missing or unreadable.
func (s *Store) Watchlist() []string {
	var pairs []string
	if !s.read(KeyWatchlist, &pairs) {
		out := make([]string, len(DefaultWatchlist))
		copy(out, DefaultWatchlist)
		return out
	}
	return pairs
}

// SaveWatchlist persists the watchlist. The caller owns the cap; the store
// writes whatever it is given.
func (s *Store) SaveWatchlist(pairs []string) error {
	return s.write(KeyWatchlist, pairs)
}

// Theme returns the persisted theme preference, or DefaultTheme.
func (s *Store) Theme() string {
	var theme string
	if !s.read(KeyTheme, &theme) || theme == "" {
		return DefaultTheme
	}
	return theme
}

// SaveTheme persists the theme preference.
func (s *Store) SaveTheme(theme string) error {
	return s.write(KeyTheme, theme)
}

// read unmarshals the file for key into v. Returns false when the file is
// missing or corrupt; corruption is logged, not raised.
func (s *Store) read(key string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warnf("[store] Corrupt state file for %q, using default: %v", key, err)
		return false
	}
	return true
}

// write marshals v and replaces the file for key atomically (temp + rename)
// so a crash mid-write cannot corrupt existing state.
func (s *Store) write(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal state %q: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace state %q: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
