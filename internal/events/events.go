// Package events carries the lifecycle notifications between the content
// core and its collaborators (session bridge, visualization registry,
// sidebar chrome). Delivery is fan-out over channels with a drop policy:
// a slow subscriber loses events rather than stalling the publisher.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a notification kind.
type Type string

const (
	// SectionLoaded fires after a fetch attempt for a section finishes,
	// successfully or not.
	SectionLoaded Type = "section-loaded"

	// SectionUnloaded fires after a section's content is evicted.
	SectionUnloaded Type = "section-unloaded"

	// VisualizationReady fires when a visualization-capable section has
	// its content present and a scene can be initialized.
	VisualizationReady Type = "visualization-ready"

	// SettingsUpdated fires after the settings store persists a change.
	// Payload carries the full settings object.
	SettingsUpdated Type = "settings-updated"

	// OpenSettings requests the settings panel to open.
	OpenSettings Type = "open-settings"
)

// Event is one notification. SectionID and Success are only meaningful
// for the section-scoped types.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	SectionID string    `json:"section_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// New builds an event of the given type with a fresh id and timestamp.
func New(t Type) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// NewSection builds a section-scoped event.
func NewSection(t Type, sectionID string, success bool) Event {
	e := New(t)
	e.SectionID = sectionID
	e.Success = success
	return e
}
