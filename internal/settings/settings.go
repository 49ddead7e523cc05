// Package settings is the reader-facing preference store: a single JSON
// blob of categorized settings, merged defensively against defaults on
// load so keys introduced by later versions are backfilled.
package settings

import "fmt"

// Performance holds the settings that trade smoothness for resources.
type Performance struct {
	// MaxLoadedSections overrides the device default when positive.
	MaxLoadedSections int  `json:"max_loaded_sections"`
	LazyVisualization bool `json:"lazy_visualization"`
	ReducedPhysics    bool `json:"reduced_physics"`
}

// Appearance holds theme and layout preferences.
type Appearance struct {
	Theme        string  `json:"theme"` // "light" or "dark"
	FontScale    float64 `json:"font_scale"`
	SidebarWidth int     `json:"sidebar_width"`
	SidebarOpen  bool    `json:"sidebar_open"`
}

// Accessibility holds assistive preferences.
type Accessibility struct {
	ReduceMotion  bool `json:"reduce_motion"`
	HighContrast  bool `json:"high_contrast"`
	KeyboardHints bool `json:"keyboard_hints"`
}

// Development holds debug toggles.
type Development struct {
	Verbose       bool `json:"verbose"`
	ShowLoadState bool `json:"show_load_state"`
}

// Settings is the full persisted blob.
type Settings struct {
	Performance   Performance   `json:"performance"`
	Appearance    Appearance    `json:"appearance"`
	Accessibility Accessibility `json:"accessibility"`
	Development   Development   `json:"development"`
}

// Defaults returns the settings used before anything is persisted.
func Defaults() Settings {
	return Settings{
		Performance: Performance{
			LazyVisualization: true,
		},
		Appearance: Appearance{
			Theme:        "light",
			FontScale:    1.0,
			SidebarWidth: 280,
			SidebarOpen:  true,
		},
		Accessibility: Accessibility{
			KeyboardHints: true,
		},
	}
}

// Validate rejects values a form should never produce.
func (s Settings) Validate() error {
	if s.Appearance.Theme != "light" && s.Appearance.Theme != "dark" {
		return fmt.Errorf("invalid theme %q", s.Appearance.Theme)
	}
	if s.Appearance.FontScale < 0.5 || s.Appearance.FontScale > 3 {
		return fmt.Errorf("font_scale %v out of range", s.Appearance.FontScale)
	}
	if s.Performance.MaxLoadedSections < 0 {
		return fmt.Errorf("max_loaded_sections must be non-negative")
	}
	return nil
}

// CSSClasses returns the class toggles the shell applies to the document
// root for the current settings.
func (s Settings) CSSClasses() []string {
	classes := []string{"theme-" + s.Appearance.Theme}
	if s.Accessibility.ReduceMotion {
		classes = append(classes, "reduce-motion")
	}
	if s.Accessibility.HighContrast {
		classes = append(classes, "high-contrast")
	}
	if s.Performance.ReducedPhysics {
		classes = append(classes, "reduced-physics")
	}
	if s.Development.ShowLoadState {
		classes = append(classes, "show-load-state")
	}
	return classes
}
