// Package device classifies reader viewports into breakpoint classes and
// provides the geometry helpers used to decide how much of a section is
// on screen. It is a leaf package with no physbook dependencies.
package device

import "time"

// Class is a viewport breakpoint class.
type Class string

const (
	Mobile  Class = "mobile"
	Tablet  Class = "tablet"
	Desktop Class = "desktop"
)

// Breakpoints in CSS pixels. Widths below MobileMax are mobile, below
// TabletMax are tablet, everything else desktop.
const (
	MobileMax = 768
	TabletMax = 1024
)

// Classify returns the breakpoint class for a viewport width in pixels.
// Non-positive widths are treated as desktop, matching a headless reader
// that never reported a real viewport.
func Classify(width int) Class {
	switch {
	case width <= 0:
		return Desktop
	case width < MobileMax:
		return Mobile
	case width < TabletMax:
		return Tablet
	default:
		return Desktop
	}
}

// Policy holds the device-dependent tuning constants for the content
// lifecycle. The numbers are empirically tuned defaults, not derived.
type Policy struct {
	// MaxLoadedSections bounds the number of non-essential sections kept
	// in the loaded set at once.
	MaxLoadedSections int

	// UnloadDistance is the minimum document-order distance from the
	// current section before a loaded section becomes evictable.
	UnloadDistance int

	// ScrollThrottle is the minimum interval between scroll-driven
	// visibility recomputations.
	ScrollThrottle time.Duration
}

// PolicyFor returns the lifecycle policy for a breakpoint class.
func PolicyFor(c Class) Policy {
	switch c {
	case Mobile:
		return Policy{MaxLoadedSections: 3, UnloadDistance: 2, ScrollThrottle: 350 * time.Millisecond}
	case Tablet:
		return Policy{MaxLoadedSections: 4, UnloadDistance: 3, ScrollThrottle: 200 * time.Millisecond}
	default:
		return Policy{MaxLoadedSections: 5, UnloadDistance: 3, ScrollThrottle: 100 * time.Millisecond}
	}
}

// Rect is an axis-aligned rectangle in page coordinates. Top is the offset
// from the top of the document; Height must be non-negative.
type Rect struct {
	Top    float64
	Height float64
}

// Viewport describes the visible window over the page: the current scroll
// offset and the window height.
type Viewport struct {
	ScrollTop float64
	Height    float64
}

// VisibilityRatio returns the fraction of r that lies inside the viewport,
// in [0, 1]. A zero-height rect is never visible.
func VisibilityRatio(r Rect, v Viewport) float64 {
	if r.Height <= 0 || v.Height <= 0 {
		return 0
	}
	top := max(r.Top, v.ScrollTop)
	bottom := min(r.Top+r.Height, v.ScrollTop+v.Height)
	if bottom <= top {
		return 0
	}
	return (bottom - top) / r.Height
}
