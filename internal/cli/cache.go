package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dimitrije/jobboard-api/internal/models"
	"gopkg.in/yaml.v3"
)

// SessionCache keeps the CLI's session between invocations in a YAML file
// readable only by the owner.
type SessionCache struct {
	path string
}

func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// DefaultCachePath is ~/.config/jobboard/session.yaml, or the platform's
// equivalent config directory.
func DefaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "jobboard", "session.yaml")
}

func (c *SessionCache) Path() string {
	return c.path
}

// Load returns the cached session, or nil when none is cached.
func (c *SessionCache) Load() (*models.Session, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session cache: %w", err)
	}

	var s models.Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session cache %s: %w", c.path, err)
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

// Save writes s, or removes the cache when s is nil.
func (c *SessionCache) Save(s *models.Session) error {
	if s == nil {
		return c.Clear()
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating session cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session cache: %w", err)
	}
	return nil
}

func (c *SessionCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session cache: %w", err)
	}
	return nil
}
