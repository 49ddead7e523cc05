package book

import "strings"

// FriendlyTitle derives a human-readable title for a section. The manifest
// title wins; otherwise the id is de-hyphenated and title-cased, so
// "wave-mechanics" becomes "Wave Mechanics".
func (m *Manifest) FriendlyTitle(id string) string {
	if s := m.Section(id); s != nil && s.Title != "" {
		return s.Title
	}
	return titleFromID(id)
}

func titleFromID(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
