// Package nav translates link clicks and URL-hash changes into scroll
// actions and state updates. A short-lived lock suppresses scroll-driven
// active-section detection while a programmatic jump is in progress.
package nav

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"physbook/internal/book"
	"physbook/internal/content"
	"physbook/internal/state"
)

// DefaultLockDuration is how long scroll-driven promotion stays suppressed
// after a programmatic jump. Empirically tuned, not derived.
const DefaultLockDuration = 800 * time.Millisecond

// State is the controller's externally observable state.
type State string

const (
	StateIdle   State = "idle"
	StateLocked State = "locked"
)

// Loader requests section content. Satisfied by *content.Manager.
type Loader interface {
	LoadSection(ctx context.Context, id string) content.LoadOutcome
}

// Controller owns programmatic navigation. The lock is deadline-based and
// auto-expires; there is no timer to cancel.
type Controller struct {
	manifest *book.Manifest
	store    *state.Store
	loader   Loader

	// Scroller instructs the client to scroll a section into view.
	// Optional; nil in headless use.
	Scroller func(id string)

	LockDuration time.Duration

	mu        sync.Mutex
	lockUntil time.Time
	now       func() time.Time
}

// NewController builds a navigation controller.
func NewController(m *book.Manifest, st *state.Store, loader Loader) *Controller {
	return &Controller{
		manifest:     m,
		store:        st,
		loader:       loader,
		LockDuration: DefaultLockDuration,
		now:          time.Now,
	}
}

// State reports Idle or Locked.
func (c *Controller) State() State {
	if c.Active() {
		return StateLocked
	}
	return StateIdle
}

// Active reports whether the navigation lock is engaged.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.lockUntil)
}

// Remaining returns how long the lock has left, zero when idle.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.lockUntil.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

// NavigateTo performs a user-initiated jump: engage the lock, scroll the
// target into view, promote it to the current section, and request its
// content. Unknown ids log a warning and are no-ops returning false.
func (c *Controller) NavigateTo(ctx context.Context, id string) bool {
	if c.manifest.Section(id) == nil {
		log.Printf("nav: no section matches %q", id)
		return false
	}

	c.mu.Lock()
	c.lockUntil = c.now().Add(c.LockDuration)
	c.mu.Unlock()

	if c.Scroller != nil {
		c.Scroller(id)
	}
	c.store.SetCurrentSection(id)

	// The lock we just engaged defers this; the manager retries it after
	// the lock window.
	c.loader.LoadSection(ctx, id)
	return true
}

// HandleHash navigates from a URL fragment identifier. An empty hash
// defaults to the cover section.
func (c *Controller) HandleHash(ctx context.Context, hash string) bool {
	id := strings.TrimPrefix(hash, "#")
	if id == "" {
		id = book.DefaultSectionID
	}
	return c.NavigateTo(ctx, id)
}
