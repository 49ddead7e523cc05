package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"physbook/internal/events"
)

// Store persists the settings blob to a JSON file and announces updates
// on the event bus.
type Store struct {
	path string
	bus  *events.Bus

	mu      sync.Mutex
	current Settings
}

// NewStore creates a store over the given file path. bus may be nil.
func NewStore(path string, bus *events.Bus) *Store {
	return &Store{path: path, bus: bus, current: Defaults()}
}

// Load reads the blob from disk. A missing file yields the defaults;
// a present file is unmarshalled over the defaults so unknown and
// newly-introduced keys keep their default values.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.current = Defaults()
			cur := s.current
			s.mu.Unlock()
			return cur, nil
		}
		return Settings{}, fmt.Errorf("reading settings %s: %w", s.path, err)
	}

	merged := Defaults()
	if err := json.Unmarshal(data, &merged); err != nil {
		return Settings{}, fmt.Errorf("parsing settings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = merged
	cur := s.current
	s.mu.Unlock()
	return cur, nil
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to the current settings, validates, persists, and
// publishes a settings-updated event carrying the full blob.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	s.current = next
	s.mu.Unlock()

	if err := s.save(next); err != nil {
		return Settings{}, err
	}
	if s.bus != nil {
		e := events.New(events.SettingsUpdated)
		e.Payload = next
		s.bus.Publish(e)
	}
	return next, nil
}

// Replace swaps in a whole settings blob, used by the form submit path.
func (s *Store) Replace(next Settings) (Settings, error) {
	return s.Update(func(cur *Settings) { *cur = next })
}

// RequestOpen publishes the open-settings-panel notification.
func (s *Store) RequestOpen() {
	if s.bus != nil {
		s.bus.Publish(events.New(events.OpenSettings))
	}
}

func (s *Store) save(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings to %s: %w", s.path, err)
	}
	return nil
}
