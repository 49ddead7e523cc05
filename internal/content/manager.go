package content

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"physbook/internal/book"
	"physbook/internal/device"
	"physbook/internal/events"
	"physbook/internal/fragment"
	"physbook/internal/state"
)

// lockRetryBuffer pads the deferred-load delay past the lock expiry so a
// deferred load never races the tail of a programmatic scroll.
const lockRetryBuffer = 100 * time.Millisecond

// Fetcher retrieves a fragment for a source path. Satisfied by
// *fragment.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, relPath string) (*fragment.Result, error)
}

// NavigationLock reports whether a programmatic scroll is in progress.
// Satisfied by *nav.Controller.
type NavigationLock interface {
	Active() bool
	Remaining() time.Duration
}

// Manager keeps the section the reader is looking at loaded while bounding
// the total number of loaded sections. All dependencies are injected; the
// manager holds no ambient state.
type Manager struct {
	manifest *book.Manifest
	store    *state.Store
	bus      *events.Bus
	fetcher  Fetcher
	policy   device.Policy

	lock NavigationLock // optional

	mu       sync.Mutex
	slots    map[string]*slot
	visible  map[string]bool
	disposer func(id string) // visualization teardown hook, optional
}

// NewManager builds a manager for the given book. Every section starts
// Unloaded with an empty slot.
func NewManager(m *book.Manifest, st *state.Store, bus *events.Bus, f Fetcher, policy device.Policy) *Manager {
	slots := make(map[string]*slot, len(m.Sections))
	for _, s := range m.Sections {
		slots[s.ID] = &slot{status: StatusUnloaded}
	}
	return &Manager{
		manifest: m,
		store:    st,
		bus:      bus,
		fetcher:  f,
		policy:   policy,
		slots:    slots,
		visible:  make(map[string]bool),
	}
}

// SetNavigationLock wires the navigation controller's lock.
func (m *Manager) SetNavigationLock(l NavigationLock) {
	m.mu.Lock()
	m.lock = l
	m.mu.Unlock()
}

// SetDisposer registers the visualization teardown hook invoked before a
// section's content is replaced on unload.
func (m *Manager) SetDisposer(fn func(id string)) {
	m.mu.Lock()
	m.disposer = fn
	m.mu.Unlock()
}

// SetVisible replaces the set of currently visible section ids. Visible
// sections are strongly protected from eviction.
func (m *Manager) SetVisible(ids []string) {
	vis := make(map[string]bool, len(ids))
	for _, id := range ids {
		vis[id] = true
	}
	m.mu.Lock()
	m.visible = vis
	m.mu.Unlock()
}

// SetHeight records a section's rendered height, reserved by the unloaded
// placeholder to avoid scroll jumps.
func (m *Manager) SetHeight(id string, height float64) {
	m.mu.Lock()
	if s, ok := m.slots[id]; ok && height > 0 {
		s.height = height
	}
	m.mu.Unlock()
}

// Snapshot returns a read-only view of a section's slot.
func (m *Manager) Snapshot(id string) (SlotView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return SlotView{}, false
	}
	return SlotView{ID: id, Status: s.status, HTML: s.html, Height: s.height}, true
}

// LoadSection ensures the section's fragment is present in its slot. It
// never returns an error: every failure is absorbed into the outcome and,
// for fetch exhaustion, an inline error block. Duplicate calls while a
// fetch is pending coalesce; calls during a navigation lock are deferred
// and retried after the lock expires.
func (m *Manager) LoadSection(ctx context.Context, id string) LoadOutcome {
	section := m.manifest.Section(id)
	if section == nil {
		log.Printf("content: load requested for unknown section %q", id)
		return LoadInvalid
	}
	if section.Source == "" {
		log.Printf("content: section %q has no fragment source", id)
		return LoadInvalid
	}

	m.mu.Lock()
	lock := m.lock
	m.mu.Unlock()
	if lock != nil && lock.Active() {
		delay := lock.Remaining() + lockRetryBuffer
		time.AfterFunc(delay, func() {
			m.LoadSection(context.Background(), id)
		})
		return LoadDeferred
	}

	if m.store.IsLoaded(id) {
		return LoadAlready
	}
	if !m.store.BeginPending(id) {
		return LoadCoalesced
	}

	title := m.manifest.FriendlyTitle(id)

	m.mu.Lock()
	s := m.slots[id]
	s.status = StatusLoading
	s.html = loadingPlaceholder(title)
	gen := s.generation
	m.mu.Unlock()

	res, err := m.fetcher.Fetch(ctx, section.Source)

	m.mu.Lock()
	if s.generation != gen {
		// The slot changed underneath the fetch; discard the result.
		m.mu.Unlock()
		m.store.EndPending(id)
		return LoadStale
	}
	if err != nil {
		s.status = StatusErrored
		s.html = errorBlock(id, title)
		m.mu.Unlock()
		m.store.EndPending(id)
		log.Printf("content: section %q failed to load: %v", id, err)
		m.bus.Publish(events.NewSection(events.SectionLoaded, id, false))
		return LoadFailed
	}
	s.status = StatusLoaded
	s.html = res.HTML
	s.generation++
	hasViz := section.Visualization
	m.mu.Unlock()

	m.store.MarkLoaded(id)
	m.store.EndPending(id)
	m.bus.Publish(events.NewSection(events.SectionLoaded, id, true))
	if hasViz {
		m.bus.Publish(events.NewSection(events.VisualizationReady, id, true))
	}

	m.manageLoadedSections(m.store.CurrentSection(), id)
	return LoadOK
}

// UnloadSection evicts a loaded section: visualization resources are
// disposed, the slot content is replaced with a height-reserving
// placeholder, and the id leaves the loaded set. Essential and
// already-unloaded sections are no-ops returning false.
func (m *Manager) UnloadSection(id string) bool {
	if m.manifest.IsEssential(id) {
		return false
	}
	if !m.store.IsLoaded(id) {
		return false
	}

	m.mu.Lock()
	s, ok := m.slots[id]
	disposer := m.disposer
	m.mu.Unlock()
	if !ok {
		// Loaded id with no slot on the page; just drop it from the set.
		m.store.MarkUnloaded(id)
		return true
	}

	// Tear the scene down before its container goes away.
	if disposer != nil {
		disposer(id)
	}

	title := m.manifest.FriendlyTitle(id)
	m.mu.Lock()
	s.status = StatusUnloaded
	s.html = unloadedPlaceholder(id, title, s.height)
	s.generation++
	m.mu.Unlock()

	m.store.MarkUnloaded(id)
	m.bus.Publish(events.NewSection(events.SectionUnloaded, id, true))
	return true
}

// evictionCandidate pairs a loaded id with its eviction distance.
type evictionCandidate struct {
	id       string
	distance int
}

// ManageLoadedSections enforces the loaded-section cap. Candidates are
// ranked by document-order distance from the current section; visible
// sections are strongly protected and essential sections never qualify.
// Eviction stops once the set is back under the cap or the farthest
// remaining candidate is closer than the unload distance.
func (m *Manager) ManageLoadedSections(currentID string) {
	m.manageLoadedSections(currentID, "")
}

// manageLoadedSections is the eviction pass. justLoaded names a section
// that must survive the pass that its own load triggered.
func (m *Manager) manageLoadedSections(currentID, justLoaded string) {
	loaded := m.store.LoadedSections()
	if len(loaded) <= m.policy.MaxLoadedSections {
		return
	}

	curIdx, _ := m.manifest.IndexOf(currentID)

	m.mu.Lock()
	visible := m.visible
	m.mu.Unlock()

	var candidates []evictionCandidate
	for _, id := range loaded {
		if m.manifest.IsEssential(id) || id == justLoaded {
			continue
		}
		var d int
		switch {
		case visible[id]:
			// Visible content must never be pulled out from under the
			// reader.
			d = -100
		default:
			idx, ok := m.manifest.IndexOf(id)
			if !ok {
				d = math.MaxInt
			} else {
				d = idx - curIdx
				if d < 0 {
					d = -d
				}
			}
		}
		candidates = append(candidates, evictionCandidate{id: id, distance: d})
	}

	// Farthest first.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance > candidates[j].distance
	})

	count := len(loaded)
	for _, c := range candidates {
		if count <= m.policy.MaxLoadedSections {
			break
		}
		if c.distance < m.policy.UnloadDistance {
			break
		}
		if m.UnloadSection(c.id) {
			count--
		}
	}
}
