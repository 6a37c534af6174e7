// Package store persists the controller configuration as a versioned YAML
// file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// ErrIncompatible is returned by Load when the file was written with a
// different configuration layout.
var ErrIncompatible = errors.New("incompatible config version")

type document struct {
	SavedAt      time.Time `yaml:"saved_at"`
	logic.Config `yaml:",inline"`
}

// Store reads and writes one configuration file.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a store for path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration. found is false when no file exists. The
// returned config is not clamped; the controller does that on SetConfig.
func (s *Store) Load() (cfg logic.Config, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return logic.Config{}, false, nil
	}
	if err != nil {
		return logic.Config{}, false, fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return logic.Config{}, true, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.Version != logic.ConfigVersion {
		return logic.Config{}, true, fmt.Errorf("%w: file has %d, want %d", ErrIncompatible, doc.Version, logic.ConfigVersion)
	}
	return doc.Config, true, nil
}

// Save writes cfg atomically, creating the parent directory if needed.
func (s *Store) Save(cfg logic.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg.Version = logic.ConfigVersion
	data, err := yaml.Marshal(document{SavedAt: s.now().UTC(), Config: cfg})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
