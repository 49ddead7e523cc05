// Package content owns the section content lifecycle: fetching fragments
// into slots, bounding how many sections stay loaded, and evicting the
// ones farthest from the reading position.
package content

// Status is a section's lifecycle state.
type Status string

const (
	StatusUnloaded Status = "unloaded"
	StatusLoading  Status = "loading"
	StatusLoaded   Status = "loaded"
	StatusErrored  Status = "errored"
)

// slot is the mutable content holder for one section. Guarded by the
// manager's mutex.
type slot struct {
	status Status
	html   string
	// height is the last reported rendered height, reserved by the
	// unloaded placeholder to avoid scroll jumps on reflow.
	height float64
	// generation increments whenever the slot's content changes
	// authoritatively. A fetch only applies its result if the generation
	// it captured at start still matches.
	generation uint64
}

// SlotView is a read-only snapshot of a slot.
type SlotView struct {
	ID     string  `json:"id"`
	Status Status  `json:"status"`
	HTML   string  `json:"html"`
	Height float64 `json:"height,omitempty"`
}

// LoadOutcome describes how a LoadSection call resolved.
type LoadOutcome int

const (
	// LoadInvalid means the id is unknown or has no fragment source.
	LoadInvalid LoadOutcome = iota
	// LoadDeferred means a navigation lock was active and the load was
	// rescheduled for after the lock expires.
	LoadDeferred
	// LoadCoalesced means a fetch for the id was already in flight.
	LoadCoalesced
	// LoadAlready means the id was already in the loaded set.
	LoadAlready
	// LoadStale means the fetch completed but the slot changed underneath
	// it, so the result was discarded.
	LoadStale
	// LoadFailed means every candidate URL failed and the error block was
	// rendered.
	LoadFailed
	// LoadOK means the fragment was fetched and spliced into the slot.
	LoadOK
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadInvalid:
		return "invalid"
	case LoadDeferred:
		return "deferred"
	case LoadCoalesced:
		return "coalesced"
	case LoadAlready:
		return "already-loaded"
	case LoadStale:
		return "stale"
	case LoadFailed:
		return "failed"
	case LoadOK:
		return "ok"
	default:
		return "unknown"
	}
}
