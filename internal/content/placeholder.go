package content

import (
	"fmt"
	"html"
)

// loadingPlaceholder is shown while a fragment fetch is in flight.
func loadingPlaceholder(title string) string {
	return fmt.Sprintf(
		`<div class="section-placeholder section-loading"><div class="spinner"></div><p>Loading %s…</p></div>`,
		html.EscapeString(title))
}

// unloadedPlaceholder replaces evicted content. It reserves the prior
// rendered height so eviction does not jump the scroll position.
func unloadedPlaceholder(id, title string, height float64) string {
	style := ""
	if height > 0 {
		style = fmt.Sprintf(` style="min-height:%.0fpx"`, height)
	}
	return fmt.Sprintf(
		`<div class="section-placeholder section-unloaded" data-section=%q%s><p>%s</p><p class="placeholder-hint">Scroll here or tap to reload.</p></div>`,
		html.EscapeString(id), style, html.EscapeString(title))
}

// errorBlock replaces the loading placeholder when every candidate URL
// failed. Retry is user-initiated via the retry button, never automatic.
func errorBlock(id, title string) string {
	return fmt.Sprintf(
		`<div class="section-error" data-section=%q><p>Could not load %s.</p><button class="retry-button" data-retry=%q>Retry</button><button class="reload-button" data-reload="page">Reload page</button></div>`,
		html.EscapeString(id), html.EscapeString(title), html.EscapeString(id))
}
