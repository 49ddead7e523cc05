// Package viewport turns reported scroll geometry into per-section
// visibility ratios and decides which sections are worth loading and which
// one deserves to be the active reading position.
package viewport

import (
	"sort"
	"sync"
	"time"

	"physbook/internal/book"
	"physbook/internal/device"
)

// Threshold bands. A section is worth loading at 10% visibility and worth
// promoting to the active section at 50%.
const (
	LoadThreshold   = 0.1
	ActiveThreshold = 0.5
)

// RootMargin expands the viewport when testing load-worthiness so content
// starts fetching shortly before it scrolls into view.
const RootMargin = 200.0

// Entry is one visible section with its raw visibility ratio.
type Entry struct {
	ID    string  `json:"id"`
	Ratio float64 `json:"ratio"`
}

// Batch is the ordered list of visible sections, most visible first.
type Batch []Entry

// Best returns the most visible entry, or a zero Entry for an empty batch.
func (b Batch) Best() Entry {
	if len(b) == 0 {
		return Entry{}
	}
	return b[0]
}

// IDs returns the section ids in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, e := range b {
		ids[i] = e.ID
	}
	return ids
}

// Observer recomputes the visible-section list on every geometry update
// and hands each batch to a single handler. A throttled scroll fallback
// re-emits only when it disagrees with the last emitted state.
type Observer struct {
	manifest *book.Manifest
	throttle time.Duration
	now      func() time.Time

	mu         sync.Mutex
	layout     map[string]device.Rect
	handler    func(Batch)
	lastBest   string
	lastScroll time.Time
}

// NewObserver creates an observer for the book using the device policy's
// scroll throttle.
func NewObserver(m *book.Manifest, policy device.Policy) *Observer {
	return &Observer{
		manifest: m,
		throttle: policy.ScrollThrottle,
		now:      time.Now,
		layout:   make(map[string]device.Rect),
	}
}

// Observe registers the batch handler. Only one handler is supported; the
// session fans batches out from there.
func (o *Observer) Observe(fn func(Batch)) {
	o.mu.Lock()
	o.handler = fn
	o.mu.Unlock()
}

// SetLayout records a section's page rect as reported by the client.
func (o *Observer) SetLayout(id string, r device.Rect) {
	o.mu.Lock()
	o.layout[id] = r
	o.mu.Unlock()
}

// compute builds the batch for a viewport: sections whose margin-expanded
// visibility clears the load threshold, ordered by raw ratio descending
// with document order as the tie-break.
func (o *Observer) compute(vp device.Viewport) Batch {
	expanded := device.Viewport{
		ScrollTop: vp.ScrollTop - RootMargin,
		Height:    vp.Height + 2*RootMargin,
	}

	var batch Batch
	for _, s := range o.manifest.Sections {
		r, ok := o.layout[s.ID]
		if !ok {
			continue
		}
		if device.VisibilityRatio(r, expanded) < LoadThreshold {
			continue
		}
		batch = append(batch, Entry{ID: s.ID, Ratio: device.VisibilityRatio(r, vp)})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Ratio > batch[j].Ratio
	})
	return batch
}

// Update is the primary notification path: recompute and always emit.
func (o *Observer) Update(vp device.Viewport) Batch {
	o.mu.Lock()
	batch := o.compute(vp)
	o.lastBest = batch.Best().ID
	handler := o.handler
	o.mu.Unlock()

	if handler != nil {
		handler(batch)
	}
	return batch
}

// OnScroll is the throttled fallback for delayed intersection signals. It
// recomputes at most once per throttle window and emits only when the
// most-visible section disagrees with the last emitted state.
func (o *Observer) OnScroll(vp device.Viewport) {
	o.mu.Lock()
	now := o.now()
	if now.Sub(o.lastScroll) < o.throttle {
		o.mu.Unlock()
		return
	}
	o.lastScroll = now

	batch := o.compute(vp)
	if batch.Best().ID == o.lastBest {
		o.mu.Unlock()
		return
	}
	o.lastBest = batch.Best().ID
	handler := o.handler
	o.mu.Unlock()

	if handler != nil {
		handler(batch)
	}
}
