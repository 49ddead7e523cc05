// Package session composes one reader's content pipeline: state store,
// viewport observer, content lifecycle manager, and navigation controller,
// wired together explicitly at construction. There is no shared global
// state; every collaborator is injected.
package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"physbook/internal/book"
	"physbook/internal/content"
	"physbook/internal/device"
	"physbook/internal/events"
	"physbook/internal/history"
	"physbook/internal/nav"
	"physbook/internal/state"
	"physbook/internal/viewport"
	"physbook/internal/viz"
)

// Options configures a new session.
type Options struct {
	Manifest *book.Manifest
	Fetcher  content.Fetcher

	// ViewportWidth is the client-reported width used to pick the device
	// policy. Zero means desktop.
	ViewportWidth int

	// History is the shared reading-history store. Optional.
	History *history.Store
	BookID  string

	// LockDuration overrides the navigation lock window when positive.
	LockDuration time.Duration

	// MaxLoadedSections overrides the device policy cap when positive,
	// driven by the reader's performance settings.
	MaxLoadedSections int

	// Scenes builds visualization scenes for sections that host one.
	// Optional; nil means no scene bookkeeping.
	Scenes viz.SceneFactory
}

// Session is one reader's live view of the book.
type Session struct {
	ID       string
	Class    device.Class
	Policy   device.Policy
	Manifest *book.Manifest

	Store    *state.Store
	Bus      *events.Bus
	Manager  *content.Manager
	Observer *viewport.Observer
	Nav      *nav.Controller
	Scenes   *viz.Registry

	history *history.Store
	bookID  string
	stopViz func()

	eventCh chan events.Event
	done    chan struct{}
}

// New wires a session together. The returned session owns its event bus;
// callers receive lifecycle notifications via Events.
func New(opts Options) *Session {
	class := device.Classify(opts.ViewportWidth)
	policy := device.PolicyFor(class)
	if opts.MaxLoadedSections > 0 {
		policy.MaxLoadedSections = opts.MaxLoadedSections
	}

	st := state.NewStore()
	bus := events.NewBus()
	mgr := content.NewManager(opts.Manifest, st, bus, opts.Fetcher, policy)
	obs := viewport.NewObserver(opts.Manifest, policy)
	nc := nav.NewController(opts.Manifest, st, mgr)
	if opts.LockDuration > 0 {
		nc.LockDuration = opts.LockDuration
	}
	mgr.SetNavigationLock(nc)

	s := &Session{
		ID:       uuid.New().String(),
		Class:    class,
		Policy:   policy,
		Manifest: opts.Manifest,
		Store:    st,
		Bus:      bus,
		Manager:  mgr,
		Observer: obs,
		Nav:      nc,
		history:  opts.History,
		bookID:   opts.BookID,
		eventCh:  make(chan events.Event, 64),
		done:     make(chan struct{}),
	}

	obs.Observe(s.handleBatch)

	if opts.Scenes != nil {
		s.Scenes = viz.NewRegistry(opts.Scenes)
		mgr.SetDisposer(func(id string) { s.Scenes.Dispose(id) })
		stop, err := s.Scenes.Attach(bus, "viz-"+s.ID)
		if err != nil {
			log.Printf("session: viz attach: %v", err)
		} else {
			s.stopViz = stop
		}
	}

	if err := bus.Subscribe("session-"+s.ID, s.eventCh); err != nil {
		log.Printf("session: subscribe: %v", err)
	}
	if s.history != nil {
		st.Subscribe(s.recordPosition)
		ch := make(chan events.Event, 16)
		if err := bus.Subscribe("history-"+s.ID, ch); err != nil {
			log.Printf("session: history subscribe: %v", err)
		} else {
			go s.recordLifecycle(ch)
		}
	}

	return s
}

// Events delivers the session's lifecycle notifications, suitable for
// forwarding over a websocket. Slow consumers lose events.
func (s *Session) Events() <-chan events.Event { return s.eventCh }

// Resume navigates to the saved reading position, falling back to the
// cover section.
func (s *Session) Resume(ctx context.Context) {
	target := book.DefaultSectionID
	if s.history != nil {
		pos, err := s.history.Position(ctx, s.bookID)
		if err != nil {
			log.Printf("session: reading position: %v", err)
		} else if pos != "" && s.Manifest.Section(pos) != nil {
			target = pos
		}
	}
	s.Nav.NavigateTo(ctx, target)
}

// Navigate handles a link click or hash change from the client.
func (s *Session) Navigate(ctx context.Context, hash string) bool {
	return s.Nav.HandleHash(ctx, hash)
}

// Retry re-requests a section after a user-initiated retry action.
func (s *Session) Retry(ctx context.Context, id string) content.LoadOutcome {
	return s.Manager.LoadSection(ctx, id)
}

// ReportLayout records a section's page geometry from the client.
func (s *Session) ReportLayout(id string, top, height float64) {
	s.Observer.SetLayout(id, device.Rect{Top: top, Height: height})
	s.Manager.SetHeight(id, height)
}

// ReportViewport is the primary visibility notification path.
func (s *Session) ReportViewport(vp device.Viewport) {
	s.Observer.Update(vp)
}

// ReportScroll is the throttled fallback path for delayed visibility
// signals.
func (s *Session) ReportScroll(vp device.Viewport) {
	s.Observer.OnScroll(vp)
}

// Close releases the session's resources.
func (s *Session) Close() {
	close(s.done)
	if s.stopViz != nil {
		s.stopViz()
	}
	if s.Scenes != nil {
		s.Scenes.DisposeAll()
	}
	s.Bus.Close()
}

// handleBatch reacts to a recomputed visible-section list: protect visible
// sections from eviction, start loads for load-worthy sections, and
// promote the most visible section when no navigation lock is active.
func (s *Session) handleBatch(b viewport.Batch) {
	s.Manager.SetVisible(b.IDs())

	for _, e := range b {
		if !s.Store.IsLoaded(e.ID) && !s.Store.IsPending(e.ID) {
			id := e.ID
			go s.Manager.LoadSection(context.Background(), id)
		}
	}

	best := b.Best()
	if best.ID == "" || best.Ratio < viewport.ActiveThreshold {
		return
	}
	if best.ID == s.Store.CurrentSection() || s.Nav.Active() {
		return
	}
	s.Store.SetCurrentSection(best.ID)
}

// recordPosition persists current-section changes.
func (s *Session) recordPosition(c state.Change) {
	if c.Kind != state.ChangeCurrent {
		return
	}
	if err := s.history.SetPosition(context.Background(), s.bookID, c.SectionID); err != nil {
		log.Printf("session: saving position: %v", err)
	}
}

// recordLifecycle mirrors load/unload notifications into the audit trail.
func (s *Session) recordLifecycle(ch <-chan events.Event) {
	for {
		select {
		case e := <-ch:
			var kind string
			switch {
			case e.Type == events.SectionLoaded && e.Success:
				kind = "loaded"
			case e.Type == events.SectionLoaded:
				kind = "errored"
			case e.Type == events.SectionUnloaded:
				kind = "unloaded"
			default:
				continue
			}
			if err := s.history.RecordEvent(context.Background(), s.bookID, e.SectionID, kind, e.Success); err != nil {
				log.Printf("session: recording event: %v", err)
			}
		case <-s.done:
			return
		}
	}
}
