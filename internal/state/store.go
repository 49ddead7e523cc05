// Package state holds the shared reading-session state: which sections are
// loaded, which section is current, which fetches are pending, and the
// sidebar chrome flags. Collaborators react to changes via subscriptions
// instead of reaching into each other's internals.
package state

import (
	"sync"
	"time"
)

// ChangeKind names what part of the store changed.
type ChangeKind string

const (
	ChangeLoaded   ChangeKind = "loaded"
	ChangeUnloaded ChangeKind = "unloaded"
	ChangeCurrent  ChangeKind = "current"
	ChangeSidebar  ChangeKind = "sidebar"
)

// Change describes one state mutation delivered to subscribers.
type Change struct {
	Kind      ChangeKind
	SectionID string
}

// Sidebar holds the chrome flags consumed by the sidebar controller.
type Sidebar struct {
	Width     int
	Collapsed bool
}

// Store is the central session state. All methods are safe for concurrent
// use; listeners are invoked outside the store lock.
type Store struct {
	mu          sync.Mutex
	loaded      map[string]bool
	pending     map[string]time.Time
	current     string
	initialized map[string]bool
	sidebar     Sidebar
	listeners   []func(Change)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		loaded:      make(map[string]bool),
		pending:     make(map[string]time.Time),
		initialized: make(map[string]bool),
		sidebar:     Sidebar{Width: 280},
	}
}

// Subscribe registers a listener for state changes. Listeners registered
// during startup composition are never removed.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// MarkLoaded records a section as loaded and notifies subscribers.
func (s *Store) MarkLoaded(id string) {
	s.mu.Lock()
	already := s.loaded[id]
	s.loaded[id] = true
	s.mu.Unlock()
	if !already {
		s.notify(Change{Kind: ChangeLoaded, SectionID: id})
	}
}

// MarkUnloaded removes a section from the loaded set and notifies.
func (s *Store) MarkUnloaded(id string) {
	s.mu.Lock()
	was := s.loaded[id]
	delete(s.loaded, id)
	s.mu.Unlock()
	if was {
		s.notify(Change{Kind: ChangeUnloaded, SectionID: id})
	}
}

// IsLoaded reports whether the section is in the loaded set.
func (s *Store) IsLoaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[id]
}

// LoadedSections returns a copy of the loaded-section ids.
func (s *Store) LoadedSections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.loaded))
	for id := range s.loaded {
		ids = append(ids, id)
	}
	return ids
}

// LoadedCount returns the size of the loaded set.
func (s *Store) LoadedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaded)
}

// BeginPending marks a fetch as in flight for the id. It returns false if
// a fetch is already pending, making duplicate load requests no-ops.
func (s *Store) BeginPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		return false
	}
	s.pending[id] = time.Now()
	return true
}

// EndPending clears the in-flight flag for the id.
func (s *Store) EndPending(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// IsPending reports whether a fetch is in flight for the id.
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// PendingSince returns when the in-flight fetch for the id started.
func (s *Store) PendingSince(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	return t, ok
}

// SetCurrentSection updates the active reading position and notifies.
func (s *Store) SetCurrentSection(id string) {
	s.mu.Lock()
	changed := s.current != id
	s.current = id
	s.mu.Unlock()
	if changed {
		s.notify(Change{Kind: ChangeCurrent, SectionID: id})
	}
}

// CurrentSection returns the active section id.
func (s *Store) CurrentSection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetInitialized records that a named module finished startup.
func (s *Store) SetInitialized(module string) {
	s.mu.Lock()
	s.initialized[module] = true
	s.mu.Unlock()
}

// Initialized reports whether a named module finished startup.
func (s *Store) Initialized(module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized[module]
}

// SetSidebar updates the sidebar chrome flags and notifies.
func (s *Store) SetSidebar(sb Sidebar) {
	s.mu.Lock()
	changed := s.sidebar != sb
	s.sidebar = sb
	s.mu.Unlock()
	if changed {
		s.notify(Change{Kind: ChangeSidebar})
	}
}

// SidebarState returns the sidebar chrome flags.
func (s *Store) SidebarState() Sidebar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebar
}
